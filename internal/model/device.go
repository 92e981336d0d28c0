package model

import (
	"context"
	"crypto/rsa"
)

// DeviceAlgorithm identifies how the server must encrypt tokens for a device.
type DeviceAlgorithm string

// DeviceAlgorithmRsaOaepSha256 is RSA-OAEP with SHA-256 over a PKIX public key.
const DeviceAlgorithmRsaOaepSha256 DeviceAlgorithm = "RSA_OAEP_SHA256"

// Device is the wire record describing this device's public key.
type Device struct {
	Algorithm     DeviceAlgorithm `json:"algorithm"`
	PublicKeyData []byte          `json:"publicKeyData"`
}

// KeyStore persists the single device keypair.
type KeyStore interface {
	// Load returns ErrNotFound when no keypair was saved.
	Load(ctx context.Context) (*rsa.PrivateKey, error)
	Save(ctx context.Context, key *rsa.PrivateKey) error
}
