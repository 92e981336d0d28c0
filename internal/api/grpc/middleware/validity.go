package middleware

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"google.golang.org/grpc"
)

// Validity starts a session validity check alongside every outgoing call.
// The call itself does not wait for the check. The error of the last finished
// check is returned by the next matched call instead of invoking it.
type Validity struct {
	sessions       SessionCache
	contextManager model.ContextManager
	logger         *logger.Logger

	mu      sync.Mutex
	lastErr error
}

// NewValidity creates a new Validity middleware instance.
func NewValidity(sessions SessionCache, contextManager model.ContextManager, logger *logger.Logger) *Validity {
	return &Validity{sessions: sessions, contextManager: contextManager, logger: logger}
}

// HandleGRPC triggers CheckValidity in the background and proceeds with the call.
// A failure of the previous check fails the call once.
func (m *Validity) HandleGRPC(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if err := m.takeLastErr(); err != nil {
		m.logger.Warn("Validity: failing call after session check error", "method", method, "error", err)
		return fmt.Errorf("session validity check failed: %w", err)
	}

	if m.sessions.State().IsAuthenticated() {
		checkCtx := context.WithoutCancel(ctx)
		go func() {
			err := m.sessions.CheckValidity(checkCtx)
			if err != nil {
				m.logger.Warn("Validity: background session check failed", "method", method, "error", err)
			}
			m.setLastErr(err)
		}()
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// Match reports whether the validity check applies to the call.
func (m *Validity) Match(ctx context.Context, _ interceptors.CallMeta) bool {
	return !m.contextManager.SkipValidity(ctx)
}

func (m *Validity) setLastErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

func (m *Validity) takeLastErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.lastErr
	m.lastErr = nil
	return err
}
