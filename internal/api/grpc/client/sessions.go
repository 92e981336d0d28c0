package client

import (
	"context"

	"github.com/dtroode/console-auth/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	sessionsService = "/identity.v1.SessionsService/"
	usersService    = "/identity.v1.UsersService/"
)

// Full method names of the identity service calls.
const (
	MethodLoginWithPassword              = sessionsService + "LoginWithPassword"
	MethodLoginWithMagicLink             = sessionsService + "LoginWithMagicLink"
	MethodCompleteLoginWithMagicLink     = sessionsService + "CompleteLoginWithMagicLink"
	MethodLoginWithOAuthProvider         = sessionsService + "LoginWithOAuthProvider"
	MethodCompleteLoginWithOAuthProvider = sessionsService + "CompleteLoginWithOAuthProvider"
	MethodRefreshSession                 = sessionsService + "RefreshSession"
	MethodInvalidateSession              = sessionsService + "InvalidateSession"
	MethodCreateMfaChallenge             = sessionsService + "CreateMfaChallenge"
	MethodValidateMfaChallenge           = sessionsService + "ValidateMfaForUserSession"
	MethodRegisterWithEmail              = usersService + "RegisterWithEmail"
	MethodCompleteRegisterWithEmail      = usersService + "CompleteRegisterWithEmail"
	MethodGetUserProfile                 = usersService + "GetUserProfile"
)

var _ model.SessionsClient = (*Sessions)(nil)

// Sessions calls the identity service over a client connection.
type Sessions struct {
	conn           grpc.ClientConnInterface
	contextManager model.ContextManager
}

// NewSessions creates a new Sessions client.
func NewSessions(conn grpc.ClientConnInterface, contextManager model.ContextManager) *Sessions {
	return &Sessions{conn: conn, contextManager: contextManager}
}

func (s *Sessions) invoke(ctx context.Context, method string, req, reply any) error {
	return handleError(s.conn.Invoke(ctx, method, req, reply, grpc.CallContentSubtype(CodecName)))
}

func (s *Sessions) invokeToken(ctx context.Context, method string, req any) (*model.NewUserSessionToken, error) {
	reply := &model.NewUserSessionToken{}
	if err := s.invoke(ctx, method, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Sessions) LoginWithPassword(ctx context.Context, req *model.LoginWithPasswordRequest) (*model.NewUserSessionToken, error) {
	return s.invokeToken(ctx, MethodLoginWithPassword, req)
}

func (s *Sessions) LoginWithMagicLink(ctx context.Context, req *model.LoginWithMagicLinkRequest) error {
	return s.invoke(ctx, MethodLoginWithMagicLink, req, &emptypb.Empty{})
}

func (s *Sessions) CompleteLoginWithMagicLink(ctx context.Context, req *model.CompleteMagicLinkRequest) (*model.NewUserSessionToken, error) {
	return s.invokeToken(ctx, MethodCompleteLoginWithMagicLink, req)
}

func (s *Sessions) LoginWithOAuthProvider(ctx context.Context, req *model.LoginWithOAuthProviderRequest) (*model.LoginWithOAuthProviderResponse, error) {
	reply := &model.LoginWithOAuthProviderResponse{}
	if err := s.invoke(ctx, MethodLoginWithOAuthProvider, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Sessions) CompleteLoginWithOAuthProvider(ctx context.Context, req *model.CompleteLoginWithOAuthProviderRequest) (*model.CompleteLoginWithOAuthProviderResponse, error) {
	reply := &model.CompleteLoginWithOAuthProviderResponse{}
	if err := s.invoke(ctx, MethodCompleteLoginWithOAuthProvider, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Sessions) RegisterWithEmail(ctx context.Context, req *model.RegisterWithEmailRequest) error {
	return s.invoke(ctx, MethodRegisterWithEmail, req, &emptypb.Empty{})
}

func (s *Sessions) CompleteRegisterWithEmail(ctx context.Context, req *model.CompleteMagicLinkRequest) (*model.NewUserSessionToken, error) {
	return s.invokeToken(ctx, MethodCompleteRegisterWithEmail, req)
}

// RefreshSession is exempt from the validity check so a refresh never triggers another refresh.
func (s *Sessions) RefreshSession(ctx context.Context) (*model.NewUserSessionToken, error) {
	return s.invokeToken(s.contextManager.WithSkipValidity(ctx), MethodRefreshSession, &emptypb.Empty{})
}

func (s *Sessions) InvalidateSession(ctx context.Context) error {
	return s.invoke(ctx, MethodInvalidateSession, &emptypb.Empty{}, &emptypb.Empty{})
}

func (s *Sessions) CreateMfaChallenge(ctx context.Context, req *model.CreateMfaChallengeRequest) (*model.CreateMfaChallengeResponse, error) {
	reply := &model.CreateMfaChallengeResponse{}
	if err := s.invoke(ctx, MethodCreateMfaChallenge, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Sessions) ValidateMfaChallenge(ctx context.Context, req *model.ValidateMfaChallengeRequest) (*model.UserSession, error) {
	reply := &model.UserSession{}
	if err := s.invoke(ctx, MethodValidateMfaChallenge, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Sessions) GetUserProfile(ctx context.Context, req *model.GetUserProfileRequest) (*model.User, error) {
	reply := &model.User{}
	if err := s.invoke(ctx, MethodGetUserProfile, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}
