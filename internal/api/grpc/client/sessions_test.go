package client

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	grpcctx "github.com/dtroode/console-auth/internal/api/grpc/context"
	"github.com/dtroode/console-auth/internal/mocks"
	"github.com/dtroode/console-auth/internal/model"
	"github.com/dtroode/console-auth/internal/testutil"
	"github.com/dtroode/console-auth/internal/token"
	"github.com/dtroode/console-auth/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type recordedCall struct {
	method string
	md     metadata.MD
	body   json.RawMessage
}

type fakeIdentityService struct {
	mu      sync.Mutex
	calls   []recordedCall
	replies map[string]any
	errs    map[string]error
}

func (f *fakeIdentityService) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)

	var body json.RawMessage
	if err := stream.RecvMsg(&body); err != nil {
		return err
	}
	md, _ := metadata.FromIncomingContext(stream.Context())

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: method, md: md, body: body})
	reply, replyErr := f.replies[method], f.errs[method]
	f.mu.Unlock()

	if replyErr != nil {
		return replyErr
	}
	if reply == nil {
		reply = &emptypb.Empty{}
	}
	return stream.SendMsg(reply)
}

func (f *fakeIdentityService) lastCall(t *testing.T) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func setupClient(t *testing.T, sessions *mocks.SessionCache, svc *fakeIdentityService) *Sessions {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(svc.handle))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	cm := grpcctx.NewManager()
	conn, err := Dial("passthrough:///bufnet", transport.NewPlainLayer(), sessions, token.NewSigner(), cm, testutil.MakeNoopLogger(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewSessions(conn, cm)
}

func TestSessions_UnauthenticatedCall(t *testing.T) {
	t.Parallel()

	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeIdentityService{replies: map[string]any{
		MethodLoginWithPassword: &model.NewUserSessionToken{
			ID:             "tok-1",
			EncryptedToken: []byte{1, 2, 3},
			UserID:         "user-1",
			ExpiresAt:      timestamppb.New(expires),
			MfaOptions:     []model.MfaMethod{model.MfaMethodTotp},
		},
	}}
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Unauthenticated[model.SessionToken]())

	c := setupClient(t, sessions, svc)

	resp, err := c.LoginWithPassword(context.Background(), &model.LoginWithPasswordRequest{
		Email:    "a@example.com",
		Password: "hunter2",
		Device:   model.Device{Algorithm: model.DeviceAlgorithmRsaOaepSha256, PublicKeyData: []byte{9}},
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", resp.ID)
	assert.Equal(t, []byte{1, 2, 3}, resp.EncryptedToken)
	assert.Equal(t, "user-1", resp.UserID)
	assert.True(t, resp.ExpiresAt.AsTime().Equal(expires))
	assert.Nil(t, resp.SessionExpiresAt)
	assert.Equal(t, []model.MfaMethod{model.MfaMethodTotp}, resp.MfaOptions)

	call := svc.lastCall(t)
	assert.Equal(t, MethodLoginWithPassword, call.method)
	assert.Empty(t, call.md.Get(grpcctx.TokenIDKey))
	assert.Empty(t, call.md.Get(grpcctx.HMACKey))

	var body map[string]any
	require.NoError(t, json.Unmarshal(call.body, &body))
	assert.Equal(t, "a@example.com", body["email"])
	assert.Equal(t, "RSA_OAEP_SHA256", body["device"].(map[string]any)["algorithm"])
	sessions.AssertNotCalled(t, "CheckValidity", mock.Anything)
}

func TestSessions_AuthenticatedCallIsSignedAndChecked(t *testing.T) {
	t.Parallel()

	secret := []byte("session-secret")
	svc := &fakeIdentityService{replies: map[string]any{
		MethodGetUserProfile: &model.User{ID: "user-1", PrimaryEmail: "a@example.com"},
	}}

	checked := make(chan struct{})
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Authenticated(model.SessionToken{ID: "tok-1", Secret: secret, UserID: "user-1"}))
	sessions.On("CheckValidity", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(checked) }).Once()

	c := setupClient(t, sessions, svc)

	user, err := c.GetUserProfile(context.Background(), &model.GetUserProfileRequest{ID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, &model.User{ID: "user-1", PrimaryEmail: "a@example.com"}, user)

	select {
	case <-checked:
	case <-time.After(time.Second):
		t.Fatal("validity check was not triggered")
	}

	call := svc.lastCall(t)
	assert.Equal(t, MethodGetUserProfile, call.method)
	assert.Equal(t, []string{token.Method}, call.md.Get(grpcctx.MethodKey))

	sig := token.Signature{
		TokenID:   call.md.Get(grpcctx.TokenIDKey)[0],
		Timestamp: call.md.Get(grpcctx.TimestampKey)[0],
		Nonce:     call.md.Get(grpcctx.NonceKey)[0],
		MAC:       call.md.Get(grpcctx.HMACKey)[0],
	}
	assert.Equal(t, "tok-1", sig.TokenID)
	assert.NoError(t, token.Verify(sig, secret))
}

func TestSessions_RefreshSkipsValidity(t *testing.T) {
	t.Parallel()

	svc := &fakeIdentityService{replies: map[string]any{
		MethodRefreshSession: &model.NewUserSessionToken{ID: "tok-2", EncryptedToken: []byte{4}, UserID: "user-1"},
	}}
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Authenticated(model.SessionToken{ID: "tok-1", Secret: []byte("s")}))

	c := setupClient(t, sessions, svc)

	resp, err := c.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", resp.ID)

	call := svc.lastCall(t)
	assert.Equal(t, MethodRefreshSession, call.method)
	assert.Equal(t, []string{"tok-1"}, call.md.Get(grpcctx.TokenIDKey))
	sessions.AssertNotCalled(t, "CheckValidity", mock.Anything)
}

func TestSessions_ErrorMapping(t *testing.T) {
	t.Parallel()

	svc := &fakeIdentityService{errs: map[string]error{
		MethodValidateMfaChallenge: status.Error(codes.PermissionDenied, "Invalid TOTP code"),
	}}
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Unauthenticated[model.SessionToken]())

	c := setupClient(t, sessions, svc)

	session, err := c.ValidateMfaChallenge(context.Background(), &model.ValidateMfaChallengeRequest{
		Method: model.MfaMethodTotp,
		Totp:   &model.TotpMfaResponse{Code: "123456"},
	})
	assert.Nil(t, session)

	var rpcErr *model.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.ErrorIs(t, err, model.ErrServerRejected)
	assert.Equal(t, codes.PermissionDenied, rpcErr.Code)
	assert.Equal(t, "Invalid TOTP code", rpcErr.Error())

	var body map[string]any
	require.NoError(t, json.Unmarshal(svc.lastCall(t).body, &body))
	assert.Equal(t, map[string]any{"code": "123456"}, body["totp"])
	assert.NotContains(t, body, "webauthn")
}

func TestSessions_ValidateMfaChallengeReturnsSession(t *testing.T) {
	t.Parallel()

	expires := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	svc := &fakeIdentityService{replies: map[string]any{
		MethodValidateMfaChallenge: &model.UserSession{
			ID:        "tok-1",
			UserID:    "user-1",
			ExpiresAt: timestamppb.New(expires),
		},
	}}
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Unauthenticated[model.SessionToken]())

	c := setupClient(t, sessions, svc)

	session, err := c.ValidateMfaChallenge(context.Background(), &model.ValidateMfaChallengeRequest{
		Method:       model.MfaMethodRecoveryCode,
		RecoveryCode: &model.RecoveryCodeResponse{Code: "abcd"},
	})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "tok-1", session.ID)
	assert.Equal(t, "user-1", session.UserID)
	require.NotNil(t, session.ExpiresAt)
	assert.True(t, session.ExpiresAt.AsTime().Equal(expires))
	assert.Equal(t, MethodValidateMfaChallenge, svc.lastCall(t).method)
}

func TestSessions_EmptyReplies(t *testing.T) {
	t.Parallel()

	svc := &fakeIdentityService{}
	sessions := mocks.NewSessionCache(t)
	sessions.On("State").Return(model.Unauthenticated[model.SessionToken]())

	c := setupClient(t, sessions, svc)
	ctx := context.Background()

	require.NoError(t, c.LoginWithMagicLink(ctx, &model.LoginWithMagicLinkRequest{Email: "a@example.com"}))
	assert.Equal(t, MethodLoginWithMagicLink, svc.lastCall(t).method)

	require.NoError(t, c.RegisterWithEmail(ctx, &model.RegisterWithEmailRequest{Email: "a@example.com"}))
	assert.Equal(t, MethodRegisterWithEmail, svc.lastCall(t).method)

	require.NoError(t, c.InvalidateSession(ctx))
	assert.Equal(t, MethodInvalidateSession, svc.lastCall(t).method)
}
