package model

import (
	"context"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// SessionsClient is the identity service surface consumed by the auth core.
type SessionsClient interface {
	LoginWithPassword(ctx context.Context, req *LoginWithPasswordRequest) (*NewUserSessionToken, error)
	LoginWithMagicLink(ctx context.Context, req *LoginWithMagicLinkRequest) error
	CompleteLoginWithMagicLink(ctx context.Context, req *CompleteMagicLinkRequest) (*NewUserSessionToken, error)
	LoginWithOAuthProvider(ctx context.Context, req *LoginWithOAuthProviderRequest) (*LoginWithOAuthProviderResponse, error)
	CompleteLoginWithOAuthProvider(ctx context.Context, req *CompleteLoginWithOAuthProviderRequest) (*CompleteLoginWithOAuthProviderResponse, error)
	RegisterWithEmail(ctx context.Context, req *RegisterWithEmailRequest) error
	CompleteRegisterWithEmail(ctx context.Context, req *CompleteMagicLinkRequest) (*NewUserSessionToken, error)
	RefreshSession(ctx context.Context) (*NewUserSessionToken, error)
	InvalidateSession(ctx context.Context) error
	CreateMfaChallenge(ctx context.Context, req *CreateMfaChallengeRequest) (*CreateMfaChallengeResponse, error)
	ValidateMfaChallenge(ctx context.Context, req *ValidateMfaChallengeRequest) (*UserSession, error)
	GetUserProfile(ctx context.Context, req *GetUserProfileRequest) (*User, error)
}

// NewUserSessionToken is a token issued by the server, encrypted to a device.
type NewUserSessionToken struct {
	ID               string                 `json:"id"`
	EncryptedToken   []byte                 `json:"encryptedToken"`
	UserID           string                 `json:"userId"`
	ExpiresAt        *timestamppb.Timestamp `json:"expiresAt,omitempty"`
	SessionExpiresAt *timestamppb.Timestamp `json:"sessionExpiresAt,omitempty"`
	MfaOptions       []MfaMethod            `json:"mfaOptions,omitempty"`
}

// Captcha carries a captcha proof for endpoints that require one.
type Captcha struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

type LoginWithPasswordRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Captcha  *Captcha `json:"captcha,omitempty"`
	Device   Device   `json:"device"`
}

type LoginWithMagicLinkRequest struct {
	Email   string  `json:"email"`
	Captcha Captcha `json:"captcha"`
}

// CompleteMagicLinkRequest completes both login and registration magic links.
type CompleteMagicLinkRequest struct {
	Code   []byte `json:"code"`
	Device Device `json:"device"`
}

type LoginWithOAuthProviderRequest struct {
	Provider string `json:"provider"`
	Device   Device `json:"device"`
}

type LoginWithOAuthProviderResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type CompleteLoginWithOAuthProviderRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	State    string `json:"state"`
	Device   Device `json:"device"`
}

type CompleteLoginWithOAuthProviderResponse struct {
	NewUserSessionToken *NewUserSessionToken `json:"newUserSessionToken,omitempty"`
}

type RegisterWithEmailRequest struct {
	Email   string  `json:"email"`
	Captcha Captcha `json:"captcha"`
}

type CreateMfaChallengeRequest struct {
	Method MfaMethod `json:"method"`
}

type CreateMfaChallengeResponse struct {
	OptionsJSON string `json:"optionsJson"`
}

// ValidateMfaChallengeRequest carries exactly one of the method payloads.
type ValidateMfaChallengeRequest struct {
	Method       MfaMethod             `json:"method"`
	WebAuthn     *WebAuthnMfaResponse  `json:"webauthn,omitempty"`
	Totp         *TotpMfaResponse      `json:"totp,omitempty"`
	RecoveryCode *RecoveryCodeResponse `json:"recoveryCode,omitempty"`
}

// UserSession is the session record returned once a second factor is accepted.
// ExpiresAt is the full session lifetime that replaces the MFA window.
type UserSession struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	ExpiresAt *timestamppb.Timestamp `json:"expiresAt,omitempty"`
}

type WebAuthnMfaResponse struct {
	ResponseJSON string `json:"responseJson"`
}

type TotpMfaResponse struct {
	Code string `json:"code"`
}

type RecoveryCodeResponse struct {
	Code string `json:"code"`
}

type GetUserProfileRequest struct {
	ID string `json:"id"`
}
