package context

import (
	"context"

	"github.com/dtroode/console-auth/internal/token"
	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the request signature.
const (
	TokenIDKey   string = "auth-token-id"
	TimestampKey string = "auth-timestamp"
	NonceKey     string = "auth-nonce"
	MethodKey    string = "auth-method"
	HMACKey      string = "auth-hmac"
)

type skipValidityKey struct{}

// Manager represents a gRPC context manager for per-call auth options.
// It provides methods to mark calls and to set and read the request signature
// in outgoing gRPC metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
//
// Returns a pointer to the newly created Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// WithSkipValidity marks the call made with ctx to bypass the session validity check.
//
// Parameters:
//   - ctx: The context of the outgoing call
//
// Returns a new context carrying the marker.
func (m *Manager) WithSkipValidity(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipValidityKey{}, true)
}

// SkipValidity reports whether ctx was marked with WithSkipValidity.
//
// Parameters:
//   - ctx: The context of the outgoing call
//
// Returns true if the validity check must be skipped.
func (m *Manager) SkipValidity(ctx context.Context) bool {
	skip, _ := ctx.Value(skipValidityKey{}).(bool)
	return skip
}

// SetSignatureToContext sets sig on the outgoing metadata of ctx, replacing
// any signature already present. Other outgoing metadata is kept.
//
// Parameters:
//   - ctx: The context of the outgoing call
//   - sig: The request signature to attach
//
// Returns a new context with the signature in outgoing metadata.
func (m *Manager) SetSignatureToContext(ctx context.Context, sig token.Signature) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(TokenIDKey, sig.TokenID)
	md.Set(TimestampKey, sig.Timestamp)
	md.Set(NonceKey, sig.Nonce)
	md.Set(MethodKey, token.Method)
	md.Set(HMACKey, sig.MAC)
	return metadata.NewOutgoingContext(ctx, md)
}

// GetSignatureFromContext reads the signature from the outgoing metadata of ctx.
//
// Parameters:
//   - ctx: The context of the outgoing call
//
// Returns the signature and a boolean indicating if all fields were found.
func (m *Manager) GetSignatureFromContext(ctx context.Context) (token.Signature, bool) {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return token.Signature{}, false
	}

	sig := token.Signature{}
	fields := []struct {
		key string
		dst *string
	}{
		{TokenIDKey, &sig.TokenID},
		{TimestampKey, &sig.Timestamp},
		{NonceKey, &sig.Nonce},
		{HMACKey, &sig.MAC},
	}
	for _, f := range fields {
		values := md.Get(f.key)
		if len(values) == 0 {
			return token.Signature{}, false
		}
		*f.dst = values[0]
	}

	if methods := md.Get(MethodKey); len(methods) == 0 || methods[0] != token.Method {
		return token.Signature{}, false
	}

	return sig, true
}
