package mocks

import (
	"context"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/stretchr/testify/mock"
)

// SessionCache is a mock of middleware.SessionCache.
type SessionCache struct {
	mock.Mock
}

// NewSessionCache creates a SessionCache mock that asserts its expectations on cleanup.
func NewSessionCache(t TestingT) *SessionCache {
	m := &SessionCache{}
	register(&m.Mock, t)
	return m
}

func (_m *SessionCache) State() model.AuthState[model.SessionToken] {
	ret := _m.Called()

	var r0 model.AuthState[model.SessionToken]
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.AuthState[model.SessionToken])
	}
	return r0
}

func (_m *SessionCache) CheckValidity(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}
