package mocks

import (
	"context"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/mock"
)

// CredentialPlatform is a mock of model.CredentialPlatform.
type CredentialPlatform struct {
	mock.Mock
}

// NewCredentialPlatform creates a CredentialPlatform mock that asserts its expectations on cleanup.
func NewCredentialPlatform(t TestingT) *CredentialPlatform {
	m := &CredentialPlatform{}
	register(&m.Mock, t)
	return m
}

func (_m *CredentialPlatform) Supported() bool {
	ret := _m.Called()
	return ret.Bool(0)
}

func (_m *CredentialPlatform) GetAssertion(ctx context.Context, options protocol.PublicKeyCredentialRequestOptions) (*model.Assertion, error) {
	ret := _m.Called(ctx, options)

	var r0 *model.Assertion
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Assertion)
	}
	return r0, ret.Error(1)
}
