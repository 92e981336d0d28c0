package main

import (
	"context"
	"fmt"

	"github.com/dtroode/console-auth/internal/api/grpc/client"
	grpcctx "github.com/dtroode/console-auth/internal/api/grpc/context"
	"github.com/dtroode/console-auth/internal/api/grpc/middleware"
	"github.com/dtroode/console-auth/internal/config"
	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/service"
	"github.com/dtroode/console-auth/internal/storage/keystore"
	"github.com/dtroode/console-auth/internal/storage/state"
	"github.com/dtroode/console-auth/internal/token"
	"github.com/dtroode/console-auth/internal/transport"
	"google.golang.org/grpc"
)

// app holds the wired auth core for one CLI invocation.
type app struct {
	logger    *logger.Logger
	conn      *grpc.ClientConn
	device    *service.DeviceIdentity
	sessions  *service.SessionCache
	lifecycle *service.Lifecycle
	mfa       *service.MfaCoordinator
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	a.logger = logger.New(cfg.LogLevel)

	keys, err := keystore.NewFileStore(cfg.KeyStore.Path, cfg.KeyStore.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize key store: %w", err)
	}
	states, err := state.NewFileStore(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	a.device = service.NewDeviceIdentity(keys, service.RSAKeyGenerator(cfg.Session.DeviceKeyBits), a.logger)
	a.device.Initialize(ctx)
	if err := a.device.Ready(ctx); err != nil {
		return fmt.Errorf("failed to load device identity: %w", err)
	}

	target, securityLayer, err := transport.Resolve(cfg.GRPC.BaseURL, cfg.GRPC.CACertFile)
	if err != nil {
		return err
	}

	ctxMgr := grpcctx.NewManager()
	ref := &middleware.SessionRef{}

	a.conn, err = client.Dial(target, securityLayer, ref, token.NewSigner(), ctxMgr, a.logger)
	if err != nil {
		return err
	}
	sessionsClient := client.NewSessions(a.conn, ctxMgr)

	a.sessions = service.NewSessionCache(ctx, a.device, sessionsClient, states, cfg.Session.SafetyMargin, a.logger)
	ref.Bind(a.sessions)

	a.lifecycle = service.NewLifecycle(sessionsClient, a.device, a.sessions, a.logger)
	// No platform authenticator is reachable from a terminal.
	a.mfa = service.NewMfaCoordinator(sessionsClient, a.sessions, nil, a.logger)

	a.logger.Debug("CLI: initialized", "target", target)
	return nil
}

// Close releases the connection to the identity service.
func (a *app) Close() {
	if a.conn == nil {
		return
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Warn("CLI: failed to close connection", "error", err.Error())
	}
}
