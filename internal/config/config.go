package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const appDir = "console-auth"

// Config contains client configuration parameters.
type Config struct {
	LogLevel int      `env:"LOG_LEVEL" envDefault:"0"`
	GRPC     GRPC     `envPrefix:"GRPC_"`
	KeyStore KeyStore `envPrefix:"KEYSTORE_"`
	State    State    `envPrefix:"STATE_"`
	Session  Session  `envPrefix:"SESSION_"`
}

// GRPC contains identity service connection parameters.
type GRPC struct {
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:50051"`
	CACertFile string `env:"CA_CERT_FILE"`
}

// KeyStore contains device key store parameters.
type KeyStore struct {
	Path   string `env:"PATH"`
	Secret string `env:"SECRET,required,notEmpty"`
}

// State contains session state blob parameters.
type State struct {
	Path string `env:"PATH"`
}

// Session contains session lifecycle parameters.
type Session struct {
	SafetyMargin  time.Duration `env:"SAFETY_MARGIN" envDefault:"10s"`
	DeviceKeyBits int           `env:"DEVICE_KEY_BITS" envDefault:"4096"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.KeyStore.Path == "" || cfg.State.Path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		if cfg.KeyStore.Path == "" {
			cfg.KeyStore.Path = filepath.Join(dir, appDir, "device.key")
		}
		if cfg.State.Path == "" {
			cfg.State.Path = filepath.Join(dir, appDir, "session.json")
		}
	}

	if cfg.Session.DeviceKeyBits < 2048 {
		return nil, fmt.Errorf("device key size %d is below 2048 bits", cfg.Session.DeviceKeyBits)
	}

	return &cfg, nil
}
