package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"golang.org/x/sync/singleflight"
)

// ErrSessionChanged is returned when the session was replaced while an
// operation on it was in flight.
var ErrSessionChanged = errors.New("session changed while the request was in flight")

// TokenDecrypter decrypts session tokens issued to this device.
type TokenDecrypter interface {
	DecryptToken(ciphertext []byte) ([]byte, error)
}

// SessionCache holds the current session and the user profile that goes with it.
//
// Every state replacement bumps a generation counter. Results of refresh and
// MFA calls are applied only if the generation they started from is still
// current, so a late response never clobbers a newer login.
type SessionCache struct {
	device       TokenDecrypter
	client       model.SessionsClient
	store        model.StateStore
	logger       *logger.Logger
	safetyMargin time.Duration
	now          func() time.Time

	// serializes state writers so persisted order matches memory order
	writeMu sync.Mutex

	mu          sync.RWMutex
	state       model.AuthState[model.SessionToken]
	generation  uint64
	user        model.AuthState[model.User]
	userGen     uint64
	subscribers map[int]func(model.AuthState[model.SessionToken])
	nextSubID   int

	refresh singleflight.Group
}

// NewSessionCache creates a SessionCache restored from store. Stored data that
// fails validation is surfaced as the error state.
func NewSessionCache(
	ctx context.Context,
	device TokenDecrypter,
	client model.SessionsClient,
	store model.StateStore,
	safetyMargin time.Duration,
	logger *logger.Logger,
) *SessionCache {
	c := &SessionCache{
		device:       device,
		client:       client,
		store:        store,
		logger:       logger,
		safetyMargin: safetyMargin,
		now:          time.Now,
		state:        model.Unauthenticated[model.SessionToken](),
		user:         model.Unauthenticated[model.User](),
		subscribers:  make(map[int]func(model.AuthState[model.SessionToken])),
	}

	restored, err := store.Load(ctx)
	switch {
	case errors.Is(err, model.ErrCorrupted):
		logger.Warn("Session cache: stored session is corrupted", "error", err.Error())
		c.state = restored
	case err != nil:
		logger.Error("Session cache: failed to load stored session", "error", err.Error())
	default:
		c.state = restored
		if token, ok := restored.Data(); ok {
			logger.Debug("Session cache: session restored", "session", token)
		}
	}

	return c
}

// State returns the current session snapshot.
func (c *SessionCache) State() model.AuthState[model.SessionToken] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// UserState returns the current profile snapshot.
func (c *SessionCache) UserState() model.AuthState[model.User] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Authorized reports whether the session may be used beyond MFA validation.
func (c *SessionCache) Authorized() bool {
	token, ok := c.State().Data()
	return ok && !token.MfaPending()
}

// Subscribe registers fn to receive every new session snapshot and returns a
// function that removes it. fn must not modify the cache.
func (c *SessionCache) Subscribe(fn func(model.AuthState[model.SessionToken])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *SessionCache) snapshot() (model.AuthState[model.SessionToken], uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.generation
}

// replace installs next and persists it. With expected set, nothing happens
// unless the current generation equals *expected. The profile is dropped
// unless keepUser is set.
func (c *SessionCache) replace(ctx context.Context, next model.AuthState[model.SessionToken], expected *uint64, keepUser bool) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if expected != nil && *expected != c.generation {
		c.mu.Unlock()
		return false
	}
	c.state = next
	c.generation++
	if !keepUser {
		c.user = model.Unauthenticated[model.User]()
		c.userGen++
	}
	subscribers := make([]func(model.AuthState[model.SessionToken]), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	var err error
	if next.Kind() == model.StateUnauthenticated {
		err = c.store.Clear(ctx)
	} else {
		err = c.store.Save(ctx, next)
	}
	if err != nil {
		c.logger.Error("Session cache: failed to persist session", "error", err.Error())
	}

	for _, fn := range subscribers {
		fn(next)
	}

	return true
}

// HandleNewToken decrypts a server-issued token and makes it the current
// session. On failure the current session is left untouched.
func (c *SessionCache) HandleNewToken(ctx context.Context, resp *model.NewUserSessionToken) error {
	if resp == nil {
		return fmt.Errorf("%w: empty token response", model.ErrInvalidFormat)
	}

	secret, err := c.device.DecryptToken(resp.EncryptedToken)
	if err != nil {
		c.logger.Warn("Session cache: failed to decrypt new token",
			"token_id", resp.ID,
			"error", err.Error())
		return err
	}

	token, err := newSessionToken(resp, secret, "")
	if err != nil {
		c.logger.Warn("Session cache: rejected new token",
			"token_id", resp.ID,
			"error", err.Error())
		return err
	}
	for _, m := range token.PendingMfaOptions {
		if !m.Valid() {
			c.logger.Warn("Session cache: server offered unsupported mfa method",
				"token_id", token.ID,
				"method", string(m))
		}
	}
	c.replace(ctx, model.Authenticated(token), nil, false)

	c.logger.Info("Session cache: new session token stored", "session", token)

	if !token.MfaPending() {
		c.startProfileFetch(ctx)
	}

	return nil
}

// CheckValidity ends the session when it is about to expire and refreshes the
// token when only the token is about to expire. A failed refresh call keeps the
// session; a refreshed token this device cannot use moves it to the error state.
func (c *SessionCache) CheckValidity(ctx context.Context) error {
	state, gen := c.snapshot()
	token, ok := state.Data()
	if !ok {
		return nil
	}

	now := c.now()
	if c.expiring(token.SessionExpiresAt, now) {
		if c.replace(ctx, model.Unauthenticated[model.SessionToken](), &gen, false) {
			c.logger.Info("Session cache: session expired", "session", token)
		}
		return nil
	}

	if !c.expiring(token.TokenExpiresAt, now) {
		return nil
	}

	_, err, _ := c.refresh.Do(token.ID, func() (any, error) {
		return nil, c.refreshToken(ctx, token.ID)
	})
	return err
}

func (c *SessionCache) refreshToken(ctx context.Context, tokenID string) error {
	state, gen := c.snapshot()
	current, ok := state.Data()
	if !ok || current.ID != tokenID || !c.expiring(current.TokenExpiresAt, c.now()) {
		return nil
	}

	c.logger.Debug("Session cache: refreshing session token", "token_id", tokenID)

	resp, err := c.client.RefreshSession(ctx)
	if err != nil {
		c.logger.Warn("Session cache: failed to refresh session token",
			"token_id", tokenID,
			"error", err.Error())
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	secret, err := c.device.DecryptToken(resp.EncryptedToken)
	if err != nil {
		c.logger.Warn("Session cache: failed to decrypt refreshed token",
			"token_id", resp.ID,
			"error", err.Error())
		c.fail(ctx, err, gen)
		return err
	}

	token, err := newSessionToken(resp, secret, current.UserID)
	if err != nil {
		c.logger.Warn("Session cache: rejected refreshed token",
			"token_id", resp.ID,
			"error", err.Error())
		c.fail(ctx, err, gen)
		return err
	}
	if !c.replace(ctx, model.Authenticated(token), &gen, true) {
		c.logger.Debug("Session cache: discarding stale refresh", "token_id", resp.ID)
		return nil
	}

	c.logger.Debug("Session cache: session token refreshed", "session", token)
	return nil
}

// fail replaces the session with the error state unless it changed since gen.
func (c *SessionCache) fail(ctx context.Context, cause error, gen uint64) {
	if c.replace(ctx, model.Failed[model.SessionToken](model.UserMessage(cause)), &gen, false) {
		c.logger.Error("Session cache: session unusable", "error", cause.Error())
	}
}

// CompleteMfa clears the pending MFA options of token tokenID and loads the
// profile. A non-nil sessionExpiresAt replaces the provisional session expiry.
func (c *SessionCache) CompleteMfa(ctx context.Context, tokenID string, sessionExpiresAt *time.Time) error {
	state, gen := c.snapshot()
	token, ok := state.Data()
	if !ok || token.ID != tokenID {
		return ErrSessionChanged
	}

	promoted := token.Clone()
	promoted.PendingMfaOptions = nil
	if sessionExpiresAt != nil {
		t := *sessionExpiresAt
		promoted.SessionExpiresAt = &t
	}
	if !c.replace(ctx, model.Authenticated(promoted), &gen, false) {
		return ErrSessionChanged
	}

	c.logger.Info("Session cache: MFA completed", "session", promoted)
	c.startProfileFetch(ctx)
	return nil
}

// Logout invalidates the session on the server and then forgets it locally.
// When the server call fails the local session is kept.
func (c *SessionCache) Logout(ctx context.Context) error {
	if err := c.client.InvalidateSession(ctx); err != nil {
		c.logger.Warn("Session cache: failed to invalidate session", "error", err.Error())
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	c.replace(ctx, model.Unauthenticated[model.SessionToken](), nil, false)
	c.logger.Info("Session cache: logged out")
	return nil
}

// Reset forgets any local session without contacting the server.
func (c *SessionCache) Reset(ctx context.Context) {
	c.replace(ctx, model.Unauthenticated[model.SessionToken](), nil, false)
}

// FetchProfile loads the profile of the signed-in user. A result that arrives
// after the session changed is dropped.
func (c *SessionCache) FetchProfile(ctx context.Context) error {
	c.mu.Lock()
	token, ok := c.state.Data()
	if !ok || token.MfaPending() {
		c.mu.Unlock()
		return fmt.Errorf("%w: session is not fully authorized", model.ErrNotAllowed)
	}
	c.user = model.Loading[model.User]()
	c.userGen++
	gen := c.userGen
	c.mu.Unlock()

	user, err := c.client.GetUserProfile(ctx, &model.GetUserProfileRequest{ID: token.UserID})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.userGen {
		return ErrSessionChanged
	}
	if err == nil && user == nil {
		err = fmt.Errorf("%w: empty profile response", model.ErrInvalidFormat)
	}
	if err != nil {
		c.user = model.Failed[model.User](model.UserMessage(err))
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	c.user = model.Authenticated(*user)
	return nil
}

func (c *SessionCache) startProfileFetch(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.FetchProfile(ctx); err != nil && !errors.Is(err, ErrSessionChanged) {
			c.logger.Warn("Session cache: failed to fetch profile", "error", err.Error())
		}
	}()
}

// expiring reports whether t falls within the safety margin of now. A nil
// expiry never expires.
func (c *SessionCache) expiring(t *time.Time, now time.Time) bool {
	return t != nil && !now.Add(c.safetyMargin).Before(*t)
}

// newSessionToken builds the cached token from a server response. It rejects
// what the state blob could not restore. Unknown MFA methods are kept so the
// token stays pending.
func newSessionToken(resp *model.NewUserSessionToken, secret []byte, fallbackUserID string) (model.SessionToken, error) {
	if resp.ID == "" {
		return model.SessionToken{}, fmt.Errorf("%w: token id is empty", model.ErrInvalidFormat)
	}
	if len(secret) == 0 {
		return model.SessionToken{}, fmt.Errorf("%w: token secret is empty", model.ErrInvalidFormat)
	}

	token := model.SessionToken{
		ID:     resp.ID,
		Secret: secret,
		UserID: resp.UserID,
	}
	if token.UserID == "" {
		token.UserID = fallbackUserID
	}
	if resp.ExpiresAt != nil {
		t := resp.ExpiresAt.AsTime()
		token.TokenExpiresAt = &t
	}
	if resp.SessionExpiresAt != nil {
		t := resp.SessionExpiresAt.AsTime()
		token.SessionExpiresAt = &t
	}
	for _, m := range resp.MfaOptions {
		if m != "" {
			token.PendingMfaOptions = append(token.PendingMfaOptions, m)
		}
	}
	return token, nil
}
