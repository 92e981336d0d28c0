package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// TestKeyBits keeps key generation fast in tests.
const TestKeyBits = 2048

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// DeviceKey returns a process-wide RSA key for tests.
func DeviceKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, TestKeyBits)
	})
	require.NoError(t, keyErr)
	return key
}

// GenerateKey is a KeyGenerator producing small keys.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, TestKeyBits)
}

// EncryptForDevice encrypts secret the way the identity service does.
func EncryptForDevice(t testing.TB, pub *rsa.PublicKey, secret []byte) []byte {
	t.Helper()
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, secret, nil)
	require.NoError(t, err)
	return ct
}

// IssueToken builds a server token response for pub.
func IssueToken(t testing.TB, pub *rsa.PublicKey, id, userID string, secret []byte, tokenTTL, sessionTTL time.Duration, mfa ...model.MfaMethod) *model.NewUserSessionToken {
	t.Helper()
	now := time.Now()
	return &model.NewUserSessionToken{
		ID:               id,
		EncryptedToken:   EncryptForDevice(t, pub, secret),
		UserID:           userID,
		ExpiresAt:        timestamppb.New(now.Add(tokenTTL)),
		SessionExpiresAt: timestamppb.New(now.Add(sessionTTL)),
		MfaOptions:       mfa,
	}
}
