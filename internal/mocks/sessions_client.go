package mocks

import (
	"context"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/stretchr/testify/mock"
)

// SessionsClient is a mock of model.SessionsClient.
type SessionsClient struct {
	mock.Mock
}

// NewSessionsClient creates a SessionsClient mock that asserts its expectations on cleanup.
func NewSessionsClient(t TestingT) *SessionsClient {
	m := &SessionsClient{}
	register(&m.Mock, t)
	return m
}

func tokenResult(ret mock.Arguments) (*model.NewUserSessionToken, error) {
	var r0 *model.NewUserSessionToken
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.NewUserSessionToken)
	}
	return r0, ret.Error(1)
}

func (_m *SessionsClient) LoginWithPassword(ctx context.Context, req *model.LoginWithPasswordRequest) (*model.NewUserSessionToken, error) {
	return tokenResult(_m.Called(ctx, req))
}

func (_m *SessionsClient) LoginWithMagicLink(ctx context.Context, req *model.LoginWithMagicLinkRequest) error {
	return _m.Called(ctx, req).Error(0)
}

func (_m *SessionsClient) CompleteLoginWithMagicLink(ctx context.Context, req *model.CompleteMagicLinkRequest) (*model.NewUserSessionToken, error) {
	return tokenResult(_m.Called(ctx, req))
}

func (_m *SessionsClient) LoginWithOAuthProvider(ctx context.Context, req *model.LoginWithOAuthProviderRequest) (*model.LoginWithOAuthProviderResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *model.LoginWithOAuthProviderResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.LoginWithOAuthProviderResponse)
	}
	return r0, ret.Error(1)
}

func (_m *SessionsClient) CompleteLoginWithOAuthProvider(ctx context.Context, req *model.CompleteLoginWithOAuthProviderRequest) (*model.CompleteLoginWithOAuthProviderResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *model.CompleteLoginWithOAuthProviderResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.CompleteLoginWithOAuthProviderResponse)
	}
	return r0, ret.Error(1)
}

func (_m *SessionsClient) RegisterWithEmail(ctx context.Context, req *model.RegisterWithEmailRequest) error {
	return _m.Called(ctx, req).Error(0)
}

func (_m *SessionsClient) CompleteRegisterWithEmail(ctx context.Context, req *model.CompleteMagicLinkRequest) (*model.NewUserSessionToken, error) {
	return tokenResult(_m.Called(ctx, req))
}

func (_m *SessionsClient) RefreshSession(ctx context.Context) (*model.NewUserSessionToken, error) {
	return tokenResult(_m.Called(ctx))
}

func (_m *SessionsClient) InvalidateSession(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

func (_m *SessionsClient) CreateMfaChallenge(ctx context.Context, req *model.CreateMfaChallengeRequest) (*model.CreateMfaChallengeResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *model.CreateMfaChallengeResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.CreateMfaChallengeResponse)
	}
	return r0, ret.Error(1)
}

func (_m *SessionsClient) ValidateMfaChallenge(ctx context.Context, req *model.ValidateMfaChallengeRequest) (*model.UserSession, error) {
	ret := _m.Called(ctx, req)

	var r0 *model.UserSession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.UserSession)
	}
	return r0, ret.Error(1)
}

func (_m *SessionsClient) GetUserProfile(ctx context.Context, req *model.GetUserProfileRequest) (*model.User, error) {
	ret := _m.Called(ctx, req)

	var r0 *model.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.User)
	}
	return r0, ret.Error(1)
}
