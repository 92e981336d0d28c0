package mocks

import (
	"context"
	"crypto/rsa"

	"github.com/stretchr/testify/mock"
)

// KeyStore is a mock of model.KeyStore.
type KeyStore struct {
	mock.Mock
}

// NewKeyStore creates a KeyStore mock that asserts its expectations on cleanup.
func NewKeyStore(t TestingT) *KeyStore {
	m := &KeyStore{}
	register(&m.Mock, t)
	return m
}

func (_m *KeyStore) Load(ctx context.Context) (*rsa.PrivateKey, error) {
	ret := _m.Called(ctx)

	var r0 *rsa.PrivateKey
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*rsa.PrivateKey)
	}
	return r0, ret.Error(1)
}

func (_m *KeyStore) Save(ctx context.Context, key *rsa.PrivateKey) error {
	ret := _m.Called(ctx, key)
	return ret.Error(0)
}
