package model

import (
	"context"

	"github.com/dtroode/console-auth/internal/token"
)

// ContextManager marks outgoing calls with per-call auth options.
type ContextManager interface {
	WithSkipValidity(ctx context.Context) context.Context
	SkipValidity(ctx context.Context) bool
	SetSignatureToContext(ctx context.Context, sig token.Signature) context.Context
}
