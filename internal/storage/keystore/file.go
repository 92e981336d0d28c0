package keystore

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dtroode/console-auth/internal/model"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var magic = []byte("CAK1")

const (
	saltLen = 16

	kdfTime    uint32 = 1
	kdfMemory  uint32 = 64 * 1024
	kdfThreads uint8  = 4
)

var _ model.KeyStore = (*FileStore)(nil)

// FileStore keeps the device keypair in a single file sealed with a key
// derived from a local secret.
//
// Layout: magic | salt | nonce | XChaCha20-Poly1305(PKCS#8 DER).
type FileStore struct {
	path   string
	secret []byte
}

// NewFileStore creates a FileStore at path. The secret never leaves the process.
func NewFileStore(path, secret string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("key store path is empty")
	}
	if secret == "" {
		return nil, fmt.Errorf("key store secret is empty")
	}
	return &FileStore{path: path, secret: []byte(secret)}, nil
}

// Load reads and unseals the keypair.
func (s *FileStore) Load(_ context.Context) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	der, err := s.open(raw)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse device key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("device key has unexpected type %T", parsed)
	}

	return key, nil
}

// Save seals and atomically replaces the stored keypair.
func (s *FileStore) Save(_ context.Context, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal device key: %w", err)
	}

	sealed, err := s.seal(der)
	if err != nil {
		return err
	}

	return writeFileAtomic(s.path, sealed)
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := make([]byte, 0, len(magic)+saltLen+len(nonce))
	header = append(header, magic...)
	header = append(header, salt...)
	header = append(header, nonce...)

	return aead.Seal(header, nonce, plaintext, magic), nil
}

func (s *FileStore) open(raw []byte) ([]byte, error) {
	nonceLen := chacha20poly1305.NonceSizeX
	if len(raw) < len(magic)+saltLen+nonceLen || !bytes.Equal(raw[:len(magic)], magic) {
		return nil, fmt.Errorf("key file has unknown format")
	}

	salt := raw[len(magic) : len(magic)+saltLen]
	nonce := raw[len(magic)+saltLen : len(magic)+saltLen+nonceLen]
	ciphertext := raw[len(magic)+saltLen+nonceLen:]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, magic)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key file: %w", err)
	}

	return plaintext, nil
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".device-key-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace key file: %w", err)
	}
	return nil
}
