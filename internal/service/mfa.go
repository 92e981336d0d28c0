package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"github.com/dtroode/console-auth/internal/webauthn"
	"github.com/google/uuid"
)

var totpPattern = regexp.MustCompile(`^\d{6}$`)

// Platform error names that mean the user cancelled or the platform refused.
const (
	platformNotAllowed = "NotAllowedError"
	platformAbort      = "AbortError"
)

// MfaSession is the part of the session cache the MFA flows depend on.
type MfaSession interface {
	State() model.AuthState[model.SessionToken]
	CompleteMfa(ctx context.Context, tokenID string, sessionExpiresAt *time.Time) error
}

// MfaCoordinator runs second-factor verification for an MFA-pending session.
// Only one attempt may be in flight at a time.
type MfaCoordinator struct {
	client   model.SessionsClient
	sessions MfaSession
	platform model.CredentialPlatform
	logger   *logger.Logger

	mu       sync.Mutex
	inFlight bool
	status   model.AuthState[model.MfaChallenge]
}

// NewMfaCoordinator creates a MfaCoordinator. platform may be nil when no
// authenticator is available.
func NewMfaCoordinator(client model.SessionsClient, sessions MfaSession, platform model.CredentialPlatform, logger *logger.Logger) *MfaCoordinator {
	return &MfaCoordinator{
		client:   client,
		sessions: sessions,
		platform: platform,
		logger:   logger,
		status:   model.Unauthenticated[model.MfaChallenge](),
	}
}

// Status returns the state of the last attempt: loading while one is in
// flight, error with a user-facing message after a failure.
func (m *MfaCoordinator) Status() model.AuthState[model.MfaChallenge] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ValidateTotp checks a six digit code and submits it.
func (m *MfaCoordinator) ValidateTotp(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !totpPattern.MatchString(code) {
		return model.NewInputError("Code must be exactly 6 digits.")
	}

	return m.run(ctx, model.MfaMethodTotp, func(ctx context.Context, challenge *model.MfaChallenge) (*model.ValidateMfaChallengeRequest, error) {
		return &model.ValidateMfaChallengeRequest{
			Method: model.MfaMethodTotp,
			Totp:   &model.TotpMfaResponse{Code: code},
		}, nil
	})
}

// ValidateRecoveryCode submits a recovery code.
func (m *MfaCoordinator) ValidateRecoveryCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.NewInputError("Recovery code is required.")
	}

	return m.run(ctx, model.MfaMethodRecoveryCode, func(ctx context.Context, challenge *model.MfaChallenge) (*model.ValidateMfaChallengeRequest, error) {
		return &model.ValidateMfaChallengeRequest{
			Method:       model.MfaMethodRecoveryCode,
			RecoveryCode: &model.RecoveryCodeResponse{Code: code},
		}, nil
	})
}

// ValidateWebAuthn runs a platform assertion ceremony against a fresh server
// challenge and submits the result.
func (m *MfaCoordinator) ValidateWebAuthn(ctx context.Context) error {
	if m.platform == nil || !m.platform.Supported() {
		return fmt.Errorf("%w: credential API is not available", model.ErrUnsupported)
	}

	return m.run(ctx, model.MfaMethodWebAuthn, func(ctx context.Context, challenge *model.MfaChallenge) (*model.ValidateMfaChallengeRequest, error) {
		resp, err := m.client.CreateMfaChallenge(ctx, &model.CreateMfaChallengeRequest{Method: model.MfaMethodWebAuthn})
		if err != nil {
			return nil, fmt.Errorf("failed to create challenge: %w", err)
		}
		challenge.ServerOptions = resp.OptionsJSON

		options, err := webauthn.ParseRequestOptions(resp.OptionsJSON)
		if err != nil {
			return nil, err
		}

		assertion, err := m.platform.GetAssertion(ctx, options)
		if err != nil {
			return nil, platformError(err)
		}
		if assertion == nil {
			return nil, model.ErrNoCredential
		}

		result, err := webauthn.SerializeAssertion(assertion)
		if err != nil {
			return nil, err
		}
		challenge.CredentialResult = result

		return &model.ValidateMfaChallengeRequest{
			Method:   model.MfaMethodWebAuthn,
			WebAuthn: &model.WebAuthnMfaResponse{ResponseJSON: result},
		}, nil
	})
}

type buildRequestFunc func(ctx context.Context, challenge *model.MfaChallenge) (*model.ValidateMfaChallengeRequest, error)

func (m *MfaCoordinator) run(ctx context.Context, method model.MfaMethod, build buildRequestFunc) error {
	token, ok := m.sessions.State().Data()
	if !ok || !token.MfaPending() {
		return fmt.Errorf("%w: no session is waiting for a second factor", model.ErrNotAllowed)
	}

	challenge := &model.MfaChallenge{ID: uuid.NewString(), Method: method}
	if !m.begin() {
		return model.ErrChallengeInProgress
	}

	m.logger.Debug("MFA: verification started",
		"challenge_id", challenge.ID,
		"method", string(method),
		"token_id", token.ID)

	err := m.attempt(ctx, token.ID, challenge, build)
	m.finish(*challenge, err)
	if err != nil {
		m.logger.Warn("MFA: verification failed",
			"challenge_id", challenge.ID,
			"method", string(method),
			"error", err.Error())
		return err
	}

	m.logger.Info("MFA: verification succeeded",
		"challenge_id", challenge.ID,
		"method", string(method))
	return nil
}

func (m *MfaCoordinator) attempt(ctx context.Context, tokenID string, challenge *model.MfaChallenge, build buildRequestFunc) error {
	req, err := build(ctx, challenge)
	if err != nil {
		return err
	}

	session, err := m.client.ValidateMfaChallenge(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to validate challenge: %w", err)
	}

	var expiresAt *time.Time
	if session != nil && session.ExpiresAt != nil {
		t := session.ExpiresAt.AsTime()
		expiresAt = &t
	}

	if err := m.sessions.CompleteMfa(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("failed to complete MFA: %w", err)
	}
	return nil
}

func (m *MfaCoordinator) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return false
	}
	m.inFlight = true
	m.status = model.Loading[model.MfaChallenge]()
	return true
}

func (m *MfaCoordinator) finish(challenge model.MfaChallenge, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	if err != nil {
		m.status = model.Failed[model.MfaChallenge](model.UserMessage(err))
		return
	}
	m.status = model.Authenticated(challenge)
}

// platformError maps a credential platform failure onto the error taxonomy.
func platformError(err error) error {
	var pErr *model.PlatformError
	if errors.As(err, &pErr) {
		switch pErr.Name {
		case platformNotAllowed, platformAbort:
			return fmt.Errorf("%w: %w", model.ErrNotAllowed, err)
		}
	}
	return fmt.Errorf("assertion failed: %w", err)
}
