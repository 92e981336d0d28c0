package middleware

import (
	"context"
	"fmt"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"github.com/dtroode/console-auth/internal/token"
	"google.golang.org/grpc"
)

// SessionCache exposes the current session and its validity check.
type SessionCache interface {
	State() model.AuthState[model.SessionToken]
	CheckValidity(ctx context.Context) error
}

// Signer signs a request for a session token.
type Signer interface {
	Sign(tokenID string, secret []byte) (token.Signature, error)
}

// Authenticate signs every outgoing call made while a session is held.
type Authenticate struct {
	sessions       SessionCache
	signer         Signer
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionCache, signer Signer, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{sessions: sessions, signer: signer, contextManager: contextManager, logger: logger}
}

// HandleGRPC attaches the request signature to the outgoing metadata.
// Calls made without a session go out unsigned.
func (m *Authenticate) HandleGRPC(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	session, ok := m.sessions.State().Data()
	if !ok {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	sig, err := m.signer.Sign(session.ID, session.Secret)
	if err != nil {
		m.logger.Error("Authenticate: failed to sign request", "method", method, "error", err)
		return fmt.Errorf("failed to sign request: %w", err)
	}

	return invoker(m.contextManager.SetSignatureToContext(ctx, sig), method, req, reply, cc, opts...)
}
