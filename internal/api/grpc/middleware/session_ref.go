package middleware

import (
	"context"
	"sync"

	"github.com/dtroode/console-auth/internal/model"
)

// SessionRef lets the interceptor chain be built before the session cache
// that depends on the resulting connection. Until bound it reports no session.
type SessionRef struct {
	mu    sync.RWMutex
	cache SessionCache
}

// Bind sets the session cache the interceptors read from.
func (r *SessionRef) Bind(cache SessionCache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = cache
}

func (r *SessionRef) get() SessionCache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache
}

func (r *SessionRef) State() model.AuthState[model.SessionToken] {
	if c := r.get(); c != nil {
		return c.State()
	}
	return model.Unauthenticated[model.SessionToken]()
}

func (r *SessionRef) CheckValidity(ctx context.Context) error {
	if c := r.get(); c != nil {
		return c.CheckValidity(ctx)
	}
	return nil
}
