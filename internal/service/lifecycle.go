package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"golang.org/x/sync/singleflight"
)

// DeviceProvider returns the device the server encrypts tokens to.
type DeviceProvider interface {
	GetOrCreateDevice(ctx context.Context) (model.Device, error)
}

// LifecycleSessions is the part of the session cache used by Lifecycle.
type LifecycleSessions interface {
	State() model.AuthState[model.SessionToken]
	HandleNewToken(ctx context.Context, resp *model.NewUserSessionToken) error
	Logout(ctx context.Context) error
	Reset(ctx context.Context)
}

// Lifecycle turns login and registration responses into session updates.
type Lifecycle struct {
	client   model.SessionsClient
	device   DeviceProvider
	sessions LifecycleSessions
	logger   *logger.Logger

	oauth          singleflight.Group
	oauthMu        sync.Mutex
	oauthCompleted map[string]struct{}
}

// NewLifecycle creates a Lifecycle.
func NewLifecycle(client model.SessionsClient, device DeviceProvider, sessions LifecycleSessions, logger *logger.Logger) *Lifecycle {
	return &Lifecycle{
		client:         client,
		device:         device,
		sessions:       sessions,
		logger:         logger,
		oauthCompleted: make(map[string]struct{}),
	}
}

// LoginWithPassword signs in with email and password. captcha may be nil.
func (l *Lifecycle) LoginWithPassword(ctx context.Context, email, password string, captcha *model.Captcha) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.NewInputError("Email and password are required.")
	}

	device, err := l.prepare(ctx)
	if err != nil {
		return err
	}

	resp, err := l.client.LoginWithPassword(ctx, &model.LoginWithPasswordRequest{
		Email:    email,
		Password: password,
		Captcha:  captcha,
		Device:   device,
	})
	if err != nil {
		l.logger.Warn("Lifecycle: password login failed", "error", err.Error())
		return fmt.Errorf("failed to login with password: %w", err)
	}

	return l.handleToken(ctx, "password", resp)
}

// SendMagicLink asks the server to email a sign-in link.
func (l *Lifecycle) SendMagicLink(ctx context.Context, email string, captcha model.Captcha) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewInputError("Email is required.")
	}

	if err := l.client.LoginWithMagicLink(ctx, &model.LoginWithMagicLinkRequest{Email: email, Captcha: captcha}); err != nil {
		l.logger.Warn("Lifecycle: failed to send magic link", "error", err.Error())
		return fmt.Errorf("failed to send magic link: %w", err)
	}

	l.logger.Info("Lifecycle: magic link sent")
	return nil
}

// CompleteMagicLink signs in with the base64url code from a magic link.
func (l *Lifecycle) CompleteMagicLink(ctx context.Context, code string) error {
	raw, err := decodeLinkCode(code)
	if err != nil {
		return err
	}

	device, err := l.prepare(ctx)
	if err != nil {
		return err
	}

	resp, err := l.client.CompleteLoginWithMagicLink(ctx, &model.CompleteMagicLinkRequest{Code: raw, Device: device})
	if err != nil {
		l.logger.Warn("Lifecycle: magic link login failed", "error", err.Error())
		return fmt.Errorf("failed to complete magic link login: %w", err)
	}

	return l.handleToken(ctx, "magic_link", resp)
}

// RegisterWithEmail asks the server to email a registration link.
func (l *Lifecycle) RegisterWithEmail(ctx context.Context, email string, captcha model.Captcha) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewInputError("Email is required.")
	}

	if err := l.client.RegisterWithEmail(ctx, &model.RegisterWithEmailRequest{Email: email, Captcha: captcha}); err != nil {
		l.logger.Warn("Lifecycle: failed to start registration", "error", err.Error())
		return fmt.Errorf("failed to register with email: %w", err)
	}

	l.logger.Info("Lifecycle: registration link sent")
	return nil
}

// CompleteRegistration finishes registration with the base64url code from
// the registration link and signs the new user in.
func (l *Lifecycle) CompleteRegistration(ctx context.Context, code string) error {
	raw, err := decodeLinkCode(code)
	if err != nil {
		return err
	}

	device, err := l.prepare(ctx)
	if err != nil {
		return err
	}

	resp, err := l.client.CompleteRegisterWithEmail(ctx, &model.CompleteMagicLinkRequest{Code: raw, Device: device})
	if err != nil {
		l.logger.Warn("Lifecycle: registration failed", "error", err.Error())
		return fmt.Errorf("failed to complete registration: %w", err)
	}

	return l.handleToken(ctx, "registration", resp)
}

// StartOAuth returns the provider authorization URL to send the user to.
func (l *Lifecycle) StartOAuth(ctx context.Context, provider string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", model.NewInputError("OAuth provider is required.")
	}

	device, err := l.prepare(ctx)
	if err != nil {
		return "", err
	}

	resp, err := l.client.LoginWithOAuthProvider(ctx, &model.LoginWithOAuthProviderRequest{Provider: provider, Device: device})
	if err != nil {
		l.logger.Warn("Lifecycle: failed to start OAuth login",
			"provider", provider,
			"error", err.Error())
		return "", fmt.Errorf("failed to start OAuth login: %w", err)
	}
	if resp == nil || resp.AuthorizationURL == "" {
		return "", fmt.Errorf("%w: empty authorization URL", model.ErrInvalidFormat)
	}

	return resp.AuthorizationURL, nil
}

// CompleteOAuth finishes an OAuth login. Calls that repeat the state of an
// in-flight or completed login share its outcome instead of sending the
// code again.
func (l *Lifecycle) CompleteOAuth(ctx context.Context, provider, code, state string) error {
	if provider == "" || code == "" || state == "" {
		return model.NewInputError("Invalid OAuth callback.")
	}

	if l.oauthDone(state) {
		l.logger.Debug("Lifecycle: OAuth callback already handled", "provider", provider)
		return nil
	}

	_, err, _ := l.oauth.Do(state, func() (any, error) {
		if l.oauthDone(state) {
			return nil, nil
		}

		device, err := l.prepare(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := l.client.CompleteLoginWithOAuthProvider(ctx, &model.CompleteLoginWithOAuthProviderRequest{
			Provider: provider,
			Code:     code,
			State:    state,
			Device:   device,
		})
		if err != nil {
			l.logger.Warn("Lifecycle: OAuth login failed",
				"provider", provider,
				"error", err.Error())
			return nil, fmt.Errorf("failed to complete OAuth login: %w", err)
		}
		if resp == nil {
			return nil, fmt.Errorf("%w: empty OAuth response", model.ErrInvalidFormat)
		}

		if err := l.handleToken(ctx, "oauth", resp.NewUserSessionToken); err != nil {
			return nil, err
		}

		l.oauthMu.Lock()
		l.oauthCompleted[state] = struct{}{}
		l.oauthMu.Unlock()
		return nil, nil
	})
	return err
}

// Logout ends the session on the server and locally.
func (l *Lifecycle) Logout(ctx context.Context) error {
	if !l.sessions.State().IsAuthenticated() {
		l.sessions.Reset(ctx)
		return nil
	}
	return l.sessions.Logout(ctx)
}

func (l *Lifecycle) oauthDone(state string) bool {
	l.oauthMu.Lock()
	defer l.oauthMu.Unlock()
	_, ok := l.oauthCompleted[state]
	return ok
}

// prepare clears a failed session state and returns the device to log in with.
func (l *Lifecycle) prepare(ctx context.Context) (model.Device, error) {
	if l.sessions.State().Kind() == model.StateError {
		l.sessions.Reset(ctx)
	}

	device, err := l.device.GetOrCreateDevice(ctx)
	if err != nil {
		l.logger.Error("Lifecycle: device unavailable", "error", err.Error())
		return model.Device{}, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

func (l *Lifecycle) handleToken(ctx context.Context, via string, resp *model.NewUserSessionToken) error {
	if err := l.sessions.HandleNewToken(ctx, resp); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	token, _ := l.sessions.State().Data()
	l.logger.Info("Lifecycle: logged in",
		"via", via,
		"user_id", token.UserID,
		"mfa_pending", token.MfaPending())
	return nil
}

func decodeLinkCode(code string) ([]byte, error) {
	code = strings.TrimRight(strings.TrimSpace(code), "=")
	if code == "" {
		return nil, model.NewInputError("Link code is required.")
	}

	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return nil, model.NewInputError("Link code is malformed.")
	}
	return raw, nil
}
