package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NonceSize is the number of random bytes in a request nonce.
const NonceSize = 32

// Method describes the signature scheme and the signed fields, in order.
const Method = "HMAC-SHA256;auth-token-id,auth-timestamp,auth-nonce"

// Signature is the set of values attached to one authenticated request.
type Signature struct {
	TokenID   string
	Timestamp string
	Nonce     string
	MAC       string
}

// Signer produces request signatures keyed by the session secret.
type Signer struct {
	now   func() time.Time
	nonce io.Reader
}

// NewSigner creates a Signer using the wall clock and crypto/rand.
func NewSigner() *Signer {
	return &Signer{now: time.Now, nonce: rand.Reader}
}

// NewSignerWithSource creates a Signer with an explicit clock and nonce source.
func NewSignerWithSource(now func() time.Time, nonce io.Reader) *Signer {
	return &Signer{now: now, nonce: nonce}
}

// Sign signs tokenID with a fresh timestamp and nonce.
func (s *Signer) Sign(tokenID string, secret []byte) (Signature, error) {
	if len(secret) == 0 {
		return Signature{}, jwt.ErrInvalidKey
	}

	raw := make([]byte, NonceSize)
	if _, err := io.ReadFull(s.nonce, raw); err != nil {
		return Signature{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sig := Signature{
		TokenID:   tokenID,
		Timestamp: strconv.FormatInt(s.now().UnixMilli(), 10),
		Nonce:     base64.StdEncoding.EncodeToString(raw),
	}

	mac, err := jwt.SigningMethodHS256.Sign(sig.signingString(), secret)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign request: %w", err)
	}
	sig.MAC = base64.StdEncoding.EncodeToString(mac)

	return sig, nil
}

// Verify checks sig against secret.
func Verify(sig Signature, secret []byte) error {
	if len(secret) == 0 {
		return jwt.ErrInvalidKey
	}

	mac, err := base64.StdEncoding.DecodeString(sig.MAC)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	if err := jwt.SigningMethodHS256.Verify(sig.signingString(), mac, secret); err != nil {
		return fmt.Errorf("failed to verify signature: %w", err)
	}
	return nil
}

func (s Signature) signingString() string {
	return s.TokenID + s.Timestamp + s.Nonce
}
