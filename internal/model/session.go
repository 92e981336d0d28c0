package model

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// MfaMethod identifies a second-factor verification method.
type MfaMethod string

const (
	MfaMethodWebAuthn     MfaMethod = "webauthn"
	MfaMethodTotp         MfaMethod = "totp"
	MfaMethodRecoveryCode MfaMethod = "recovery_code"
)

// Valid reports whether m is a known method.
func (m MfaMethod) Valid() bool {
	switch m {
	case MfaMethodWebAuthn, MfaMethodTotp, MfaMethodRecoveryCode:
		return true
	default:
		return false
	}
}

// SessionToken is the decrypted session token held by the session cache.
// A non-empty PendingMfaOptions marks the token as provisional.
type SessionToken struct {
	ID                string
	Secret            []byte
	UserID            string
	TokenExpiresAt    *time.Time
	SessionExpiresAt  *time.Time
	PendingMfaOptions []MfaMethod
}

// MfaPending reports whether a second factor is still required.
func (t SessionToken) MfaPending() bool {
	return len(t.PendingMfaOptions) > 0
}

// Clone returns a deep copy of t.
func (t SessionToken) Clone() SessionToken {
	c := t
	c.Secret = slices.Clone(t.Secret)
	c.PendingMfaOptions = slices.Clone(t.PendingMfaOptions)
	if t.TokenExpiresAt != nil {
		v := *t.TokenExpiresAt
		c.TokenExpiresAt = &v
	}
	if t.SessionExpiresAt != nil {
		v := *t.SessionExpiresAt
		c.SessionExpiresAt = &v
	}
	return c
}

// LogValue keeps the secret out of logs.
func (t SessionToken) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", t.ID),
		slog.String("user_id", t.UserID),
		slog.Bool("mfa_pending", t.MfaPending()),
	}
	if t.TokenExpiresAt != nil {
		attrs = append(attrs, slog.Time("token_expires_at", *t.TokenExpiresAt))
	}
	if t.SessionExpiresAt != nil {
		attrs = append(attrs, slog.Time("session_expires_at", *t.SessionExpiresAt))
	}
	return slog.GroupValue(attrs...)
}

// StateStore persists the serialized session state blob.
type StateStore interface {
	Load(ctx context.Context) (AuthState[SessionToken], error)
	Save(ctx context.Context, state AuthState[SessionToken]) error
	Clear(ctx context.Context) error
}
