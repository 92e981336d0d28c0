package mocks

import (
	"context"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/stretchr/testify/mock"
)

// StateStore is a mock of model.StateStore.
type StateStore struct {
	mock.Mock
}

// NewStateStore creates a StateStore mock that asserts its expectations on cleanup.
func NewStateStore(t TestingT) *StateStore {
	m := &StateStore{}
	register(&m.Mock, t)
	return m
}

func (_m *StateStore) Load(ctx context.Context) (model.AuthState[model.SessionToken], error) {
	ret := _m.Called(ctx)

	var r0 model.AuthState[model.SessionToken]
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.AuthState[model.SessionToken])
	}
	return r0, ret.Error(1)
}

func (_m *StateStore) Save(ctx context.Context, state model.AuthState[model.SessionToken]) error {
	ret := _m.Called(ctx, state)
	return ret.Error(0)
}

func (_m *StateStore) Clear(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}
