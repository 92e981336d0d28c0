package state

import (
	"testing"
	"time"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	tokenExp := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	sessionExp := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state model.AuthState[model.SessionToken]
	}{
		{
			name:  "unauthenticated",
			state: model.Unauthenticated[model.SessionToken](),
		},
		{
			name:  "loading",
			state: model.Loading[model.SessionToken](),
		},
		{
			name:  "error",
			state: model.Failed[model.SessionToken]("Failed to parse session token"),
		},
		{
			name:  "error with empty message",
			state: model.Failed[model.SessionToken](""),
		},
		{
			name: "authenticated full",
			state: model.Authenticated(model.SessionToken{
				ID:               "tok-1",
				Secret:           []byte{0x01, 0x02, 0xff},
				UserID:           "user-1",
				TokenExpiresAt:   &tokenExp,
				SessionExpiresAt: &sessionExp,
			}),
		},
		{
			name: "authenticated mfa pending",
			state: model.Authenticated(model.SessionToken{
				ID:                "tok-2",
				Secret:            []byte("secret"),
				UserID:            "user-2",
				SessionExpiresAt:  &sessionExp,
				PendingMfaOptions: []model.MfaMethod{model.MfaMethodTotp, model.MfaMethodWebAuthn},
			}),
		},
		{
			name: "authenticated with unknown mfa method",
			state: model.Authenticated(model.SessionToken{
				ID:                "tok-4",
				Secret:            []byte("secret"),
				UserID:            "user-4",
				PendingMfaOptions: []model.MfaMethod{"passkey", model.MfaMethodTotp},
			}),
		},
		{
			name: "authenticated without expiries",
			state: model.Authenticated(model.SessionToken{
				ID:     "tok-3",
				Secret: []byte("secret"),
				UserID: "",
			}),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw, err := Encode(tt.state)
			require.NoError(t, err)

			decoded, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.state, decoded)
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	t.Parallel()

	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := Encode(model.Authenticated(model.SessionToken{
		ID:                "tok-1",
		Secret:            []byte("secret"),
		UserID:            "user-1",
		TokenExpiresAt:    &exp,
		PendingMfaOptions: []model.MfaMethod{model.MfaMethodRecoveryCode},
	}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"state": "authenticated",
		"data": {
			"id": "tok-1",
			"token": "c2VjcmV0",
			"userId": "user-1",
			"expiresAt": "2026-03-01T12:00:00Z",
			"mfaOptions": ["recovery_code"]
		}
	}`, string(raw))

	raw, err = Encode(model.Failed[model.SessionToken]("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"error","error":"boom"}`, string(raw))

	raw, err = Encode(model.AuthState[model.SessionToken]{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"unauthenticated"}`, string(raw))
}

func TestDecode_Corrupted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{"state":`},
		{name: "unknown tag", raw: `{"state":"pending"}`},
		{name: "missing tag", raw: `{}`},
		{name: "authenticated without data", raw: `{"state":"authenticated"}`},
		{name: "missing id", raw: `{"state":"authenticated","data":{"token":"c2VjcmV0","userId":"u"}}`},
		{name: "empty id", raw: `{"state":"authenticated","data":{"id":"","token":"c2VjcmV0","userId":"u"}}`},
		{name: "missing token", raw: `{"state":"authenticated","data":{"id":"t","userId":"u"}}`},
		{name: "missing user id", raw: `{"state":"authenticated","data":{"id":"t","token":"c2VjcmV0"}}`},
		{name: "bad base64", raw: `{"state":"authenticated","data":{"id":"t","token":"***","userId":"u"}}`},
		{name: "empty secret", raw: `{"state":"authenticated","data":{"id":"t","token":"","userId":"u"}}`},
		{name: "bad timestamp", raw: `{"state":"authenticated","data":{"id":"t","token":"c2VjcmV0","userId":"u","expiresAt":"tomorrow"}}`},
		{name: "empty mfa method", raw: `{"state":"authenticated","data":{"id":"t","token":"c2VjcmV0","userId":"u","mfaOptions":[""]}}`},
		{name: "error without message", raw: `{"state":"error"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state, err := Decode([]byte(tt.raw))
			require.ErrorIs(t, err, model.ErrCorrupted)
			assert.Equal(t, model.StateError, state.Kind())
			assert.Equal(t, CorruptedMessage, state.Message())
		})
	}
}

func TestDecode_ParsesOffsetTimestamps(t *testing.T) {
	t.Parallel()

	state, err := Decode([]byte(`{"state":"authenticated","data":{"id":"t","token":"c2VjcmV0","userId":"u","sessionExpiresAt":"2026-03-01T14:00:00+02:00"}}`))
	require.NoError(t, err)

	token, ok := state.Data()
	require.True(t, ok)
	require.NotNil(t, token.SessionExpiresAt)
	assert.True(t, token.SessionExpiresAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, token.TokenExpiresAt)
	assert.Equal(t, "t", token.ID)
}
