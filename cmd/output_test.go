package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestSessionRows(t *testing.T) {
	color.NoColor = true

	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		state      model.AuthState[model.SessionToken]
		authorized bool
		want       [][]string
	}{
		{
			name:  "unauthenticated",
			state: model.Unauthenticated[model.SessionToken](),
			want:  [][]string{{"State", "unauthenticated"}},
		},
		{
			name:  "error",
			state: model.Failed[model.SessionToken]("Failed to parse session token"),
			want: [][]string{
				{"State", "error"},
				{"Error", "Failed to parse session token"},
			},
		},
		{
			name: "mfa pending",
			state: model.Authenticated(model.SessionToken{
				ID:                "tok-1",
				UserID:            "user-1",
				SessionExpiresAt:  &expires,
				PendingMfaOptions: []model.MfaMethod{model.MfaMethodTotp, model.MfaMethodWebAuthn},
			}),
			want: [][]string{
				{"State", "authenticated"},
				{"Token ID", "tok-1"},
				{"User ID", "user-1"},
				{"Pending MFA", "totp, webauthn"},
				{"Authorized", "no"},
				{"Token expires", "-"},
				{"Session expires", expires.Local().Format(time.RFC3339)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sessionRows(tt.state, tt.authorized))
		})
	}
}

func TestDeviceRows(t *testing.T) {
	color.NoColor = true

	rows := deviceRows(model.Device{Algorithm: model.DeviceAlgorithmRsaOaepSha256, PublicKeyData: []byte("key")})

	assert.Equal(t, []string{"Algorithm", "RSA_OAEP_SHA256"}, rows[0])
	assert.Equal(t, "Fingerprint", rows[1][0])
	assert.Regexp(t, `^SHA256:[A-Za-z0-9+/]{43}$`, rows[1][1])
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, userRows(model.User{ID: "user-1", PrimaryEmail: "ada@example.com", FirstName: "Ada"}))

	out := buf.String()
	assert.Contains(t, out, "user-1")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Ada")
}

func TestReadLine(t *testing.T) {
	got, err := readLine(bytes.NewBufferString("hunter2\r\nrest"))
	assert.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	got, err = readLine(bytes.NewBufferString("no-newline"))
	assert.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}
