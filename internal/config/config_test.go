package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_DefaultValues(t *testing.T) {
	t.Setenv("KEYSTORE_SECRET", "s3cret")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("HOME", "/tmp/home")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.LogLevel)
	assert.Equal(t, "http://localhost:50051", cfg.GRPC.BaseURL)
	assert.Equal(t, "", cfg.GRPC.CACertFile)
	assert.Equal(t, "s3cret", cfg.KeyStore.Secret)
	assert.Equal(t, "device.key", filepath.Base(cfg.KeyStore.Path))
	assert.Equal(t, "session.json", filepath.Base(cfg.State.Path))
	assert.Equal(t, appDir, filepath.Base(filepath.Dir(cfg.State.Path)))
	assert.Equal(t, 10*time.Second, cfg.Session.SafetyMargin)
	assert.Equal(t, 4096, cfg.Session.DeviceKeyBits)
}

func TestNewConfig_MissingSecret(t *testing.T) {
	t.Setenv("KEYSTORE_SECRET", "")

	_, err := NewConfig()
	require.Error(t, err)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*testing.T, *Config)
	}{
		{
			name: "log level override",
			envVars: map[string]string{
				"LOG_LEVEL": "-4",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, -4, cfg.LogLevel)
			},
		},
		{
			name: "grpc config override",
			envVars: map[string]string{
				"GRPC_BASE_URL":     "https://console.example.com",
				"GRPC_CA_CERT_FILE": "ca.pem",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://console.example.com", cfg.GRPC.BaseURL)
				assert.Equal(t, "ca.pem", cfg.GRPC.CACertFile)
			},
		},
		{
			name: "storage paths override",
			envVars: map[string]string{
				"KEYSTORE_PATH": "/var/lib/auth/key",
				"STATE_PATH":    "/var/lib/auth/state.json",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/var/lib/auth/key", cfg.KeyStore.Path)
				assert.Equal(t, "/var/lib/auth/state.json", cfg.State.Path)
			},
		},
		{
			name: "session config override",
			envVars: map[string]string{
				"SESSION_SAFETY_MARGIN":   "30s",
				"SESSION_DEVICE_KEY_BITS": "3072",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Second, cfg.Session.SafetyMargin)
				assert.Equal(t, 3072, cfg.Session.DeviceKeyBits)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KEYSTORE_SECRET", "s3cret")
			t.Setenv("KEYSTORE_PATH", "/tmp/key")
			t.Setenv("STATE_PATH", "/tmp/state.json")
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := NewConfig()
			require.NoError(t, err)

			tt.expected(t, cfg)
		})
	}
}

func TestNewConfig_RejectsWeakKeySize(t *testing.T) {
	t.Setenv("KEYSTORE_SECRET", "s3cret")
	t.Setenv("KEYSTORE_PATH", "/tmp/key")
	t.Setenv("STATE_PATH", "/tmp/state.json")
	t.Setenv("SESSION_DEVICE_KEY_BITS", "1024")

	_, err := NewConfig()
	require.Error(t, err)
}
