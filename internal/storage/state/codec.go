package state

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtroode/console-auth/internal/model"
)

// CorruptedMessage is the error-state message for a blob that fails validation.
const CorruptedMessage = "Failed to parse session token"

type blob struct {
	State model.AuthStateKind `json:"state"`
	Data  *tokenBlob          `json:"data,omitempty"`
	Error *string             `json:"error,omitempty"`
}

type tokenBlob struct {
	ID               *string  `json:"id"`
	Token            *string  `json:"token"`
	UserID           *string  `json:"userId"`
	ExpiresAt        *string  `json:"expiresAt,omitempty"`
	SessionExpiresAt *string  `json:"sessionExpiresAt,omitempty"`
	MfaOptions       []string `json:"mfaOptions,omitempty"`
}

// Encode serializes s. The secret is stored base64 encoded.
func Encode(s model.AuthState[model.SessionToken]) ([]byte, error) {
	b := blob{State: s.Kind()}

	switch s.Kind() {
	case model.StateAuthenticated:
		token, _ := s.Data()
		secret := base64.StdEncoding.EncodeToString(token.Secret)
		data := &tokenBlob{
			ID:               &token.ID,
			Token:            &secret,
			UserID:           &token.UserID,
			ExpiresAt:        formatTime(token.TokenExpiresAt),
			SessionExpiresAt: formatTime(token.SessionExpiresAt),
		}
		for _, m := range token.PendingMfaOptions {
			data.MfaOptions = append(data.MfaOptions, string(m))
		}
		b.Data = data
	case model.StateError:
		msg := s.Message()
		b.Error = &msg
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	return raw, nil
}

// Decode parses a blob produced by Encode. A blob that is not structurally
// valid for its tag yields the error state together with ErrCorrupted.
func Decode(raw []byte) (model.AuthState[model.SessionToken], error) {
	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return corrupted(fmt.Errorf("failed to unmarshal session state: %w", err))
	}

	switch b.State {
	case model.StateUnauthenticated:
		return model.Unauthenticated[model.SessionToken](), nil
	case model.StateLoading:
		return model.Loading[model.SessionToken](), nil
	case model.StateError:
		if b.Error == nil {
			return corrupted(fmt.Errorf("error state has no message"))
		}
		return model.Failed[model.SessionToken](*b.Error), nil
	case model.StateAuthenticated:
		token, err := b.Data.token()
		if err != nil {
			return corrupted(err)
		}
		return model.Authenticated(token), nil
	default:
		return corrupted(fmt.Errorf("unknown state %q", b.State))
	}
}

func (d *tokenBlob) token() (model.SessionToken, error) {
	if d == nil {
		return model.SessionToken{}, fmt.Errorf("authenticated state has no data")
	}
	if d.ID == nil || *d.ID == "" {
		return model.SessionToken{}, fmt.Errorf("missing token id")
	}
	if d.Token == nil {
		return model.SessionToken{}, fmt.Errorf("missing token secret")
	}
	if d.UserID == nil {
		return model.SessionToken{}, fmt.Errorf("missing user id")
	}

	secret, err := base64.StdEncoding.DecodeString(*d.Token)
	if err != nil {
		return model.SessionToken{}, fmt.Errorf("failed to decode token secret: %w", err)
	}
	if len(secret) == 0 {
		return model.SessionToken{}, fmt.Errorf("empty token secret")
	}

	token := model.SessionToken{
		ID:     *d.ID,
		Secret: secret,
		UserID: *d.UserID,
	}

	if token.TokenExpiresAt, err = parseTime(d.ExpiresAt); err != nil {
		return model.SessionToken{}, fmt.Errorf("invalid token expiry: %w", err)
	}
	if token.SessionExpiresAt, err = parseTime(d.SessionExpiresAt); err != nil {
		return model.SessionToken{}, fmt.Errorf("invalid session expiry: %w", err)
	}

	// Methods this build does not know still mark the token as pending.
	for _, opt := range d.MfaOptions {
		if opt == "" {
			return model.SessionToken{}, fmt.Errorf("empty mfa method")
		}
		token.PendingMfaOptions = append(token.PendingMfaOptions, model.MfaMethod(opt))
	}

	return token, nil
}

func corrupted(cause error) (model.AuthState[model.SessionToken], error) {
	return model.Failed[model.SessionToken](CorruptedMessage), fmt.Errorf("%w: %w", model.ErrCorrupted, cause)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func parseTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
