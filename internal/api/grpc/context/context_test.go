package context

import (
	stdctx "context"
	"testing"

	"github.com/dtroode/console-auth/internal/token"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestManager_SkipValidity(t *testing.T) {
	m := NewManager()

	assert.False(t, m.SkipValidity(stdctx.Background()))
	assert.True(t, m.SkipValidity(m.WithSkipValidity(stdctx.Background())))
}

func TestManager_SetAndGetSignature(t *testing.T) {
	m := NewManager()
	sig := token.Signature{TokenID: "tok-1", Timestamp: "1700000000000", Nonce: "bm9uY2U=", MAC: "bWFj"}

	ctx := m.SetSignatureToContext(stdctx.Background(), sig)

	got, ok := m.GetSignatureFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, sig, got)

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{token.Method}, md.Get(MethodKey))
}

func TestManager_GetSignature_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetSignatureFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_SetSignature_WithExistingMetadata(t *testing.T) {
	m := NewManager()
	sig := token.Signature{TokenID: "tok-1", Timestamp: "1", Nonce: "n", MAC: "m"}
	ctxWithMD := metadata.AppendToOutgoingContext(stdctx.Background(), "x-trace-id", "t")

	ctx := m.SetSignatureToContext(ctxWithMD, sig)
	got, ok := m.GetSignatureFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, sig, got)

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"t"}, md.Get("x-trace-id"))
}

func TestManager_GetSignature_Incomplete(t *testing.T) {
	m := NewManager()
	ctx := metadata.AppendToOutgoingContext(stdctx.Background(),
		TokenIDKey, "tok-1",
		TimestampKey, "1",
		MethodKey, token.Method,
	)
	_, ok := m.GetSignatureFromContext(ctx)
	assert.False(t, ok)
}

func TestManager_SetSignature_ReplacesPrevious(t *testing.T) {
	m := NewManager()
	first := token.Signature{TokenID: "tok-1", Timestamp: "1", Nonce: "n1", MAC: "m1"}
	second := token.Signature{TokenID: "tok-2", Timestamp: "2", Nonce: "n2", MAC: "m2"}

	ctx := m.SetSignatureToContext(m.SetSignatureToContext(stdctx.Background(), first), second)

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"tok-2"}, md.Get(TokenIDKey))
	assert.Equal(t, []string{"m2"}, md.Get(HMACKey))

	got, ok := m.GetSignatureFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, second, got)
}
