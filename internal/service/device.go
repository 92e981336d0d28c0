package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
)

// KeyGenerator creates a new device keypair.
type KeyGenerator func() (*rsa.PrivateKey, error)

// RSAKeyGenerator returns a KeyGenerator for RSA keys of the given size.
func RSAKeyGenerator(bits int) KeyGenerator {
	return func() (*rsa.PrivateKey, error) {
		return rsa.GenerateKey(rand.Reader, bits)
	}
}

type deviceStatus int

const (
	deviceUninitialized deviceStatus = iota
	deviceLoading
	deviceReady
)

// DeviceIdentity owns the device keypair: it loads it once, generates it
// when absent and decrypts session tokens issued to this device.
type DeviceIdentity struct {
	store    model.KeyStore
	generate KeyGenerator
	logger   *logger.Logger

	mu     sync.Mutex
	status deviceStatus
	key    *rsa.PrivateKey
	ready  chan struct{}

	// held across generate and save
	createMu sync.Mutex
}

// NewDeviceIdentity creates an uninitialized DeviceIdentity.
func NewDeviceIdentity(store model.KeyStore, generate KeyGenerator, logger *logger.Logger) *DeviceIdentity {
	return &DeviceIdentity{
		store:    store,
		generate: generate,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Initialize starts loading the stored keypair. Calls after the first are no-ops.
func (d *DeviceIdentity) Initialize(ctx context.Context) {
	d.mu.Lock()
	if d.status != deviceUninitialized {
		d.mu.Unlock()
		return
	}
	d.status = deviceLoading
	d.mu.Unlock()

	go d.load(context.WithoutCancel(ctx))
}

func (d *DeviceIdentity) load(ctx context.Context) {
	key, err := d.store.Load(ctx)
	switch {
	case errors.Is(err, model.ErrNotFound):
		d.logger.Debug("Device identity: no stored device key")
	case err != nil:
		d.logger.Warn("Device identity: failed to load device key, treating as absent",
			"error", err.Error())
		key = nil
	default:
		d.logger.Debug("Device identity: device key loaded")
	}

	d.mu.Lock()
	d.key = key
	d.status = deviceReady
	d.mu.Unlock()
	close(d.ready)
}

// Ready blocks until the stored keypair has been loaded or ctx is done.
func (d *DeviceIdentity) Ready(ctx context.Context) error {
	select {
	case <-d.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetOrCreateDevice returns the device record, generating and saving a
// keypair first if none exists. It returns only after the key is saved.
func (d *DeviceIdentity) GetOrCreateDevice(ctx context.Context) (model.Device, error) {
	d.Initialize(ctx)
	if err := d.Ready(ctx); err != nil {
		return model.Device{}, err
	}

	d.createMu.Lock()
	defer d.createMu.Unlock()

	d.mu.Lock()
	key := d.key
	d.mu.Unlock()

	if key == nil {
		d.logger.Info("Device identity: generating device key")

		generated, err := d.generate()
		if err != nil {
			d.logger.Error("Device identity: failed to generate device key",
				"error", err.Error())
			return model.Device{}, fmt.Errorf("failed to generate device key: %w", err)
		}

		if err := d.store.Save(ctx, generated); err != nil {
			d.logger.Error("Device identity: failed to save device key",
				"error", err.Error())
			return model.Device{}, fmt.Errorf("%w: %w", model.ErrKeyUnavailable, err)
		}

		d.mu.Lock()
		d.key = generated
		d.mu.Unlock()
		key = generated
	}

	publicKey, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return model.Device{}, fmt.Errorf("failed to export public key: %w", err)
	}

	return model.Device{
		Algorithm:     model.DeviceAlgorithmRsaOaepSha256,
		PublicKeyData: publicKey,
	}, nil
}

// DecryptToken decrypts a session token encrypted to this device.
func (d *DeviceIdentity) DecryptToken(ciphertext []byte) ([]byte, error) {
	d.mu.Lock()
	status, key := d.status, d.key
	d.mu.Unlock()

	if status != deviceReady {
		return nil, model.ErrNotInitialized
	}
	if key == nil {
		return nil, model.ErrNoKey
	}

	secret, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		d.logger.Warn("Device identity: failed to decrypt session token",
			"error", err.Error())
		return nil, model.ErrDecryptFailure
	}

	return secret, nil
}
