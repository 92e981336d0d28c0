package client

import (
	"fmt"

	"github.com/dtroode/console-auth/internal/api/grpc/middleware"
	"github.com/dtroode/console-auth/internal/logger"
	"github.com/dtroode/console-auth/internal/model"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
)

// Dial creates a connection to the identity service.
// Every call is logged and signed with the current session. Calls not marked
// with WithSkipValidity also start a session validity check.
func Dial(
	target string,
	securityLayer model.SecurityLayer,
	sessions middleware.SessionCache,
	signer middleware.Signer,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts ...grpc.DialOption,
) (*grpc.ClientConn, error) {
	transportOption, err := securityLayer.DialOption()
	if err != nil {
		return nil, fmt.Errorf("failed to configure transport: %w", err)
	}

	logging := middleware.NewLogging(logger)
	authenticate := middleware.NewAuthenticate(sessions, signer, contextManager, logger)
	validity := middleware.NewValidity(sessions, contextManager, logger)

	opts = append([]grpc.DialOption{
		transportOption,
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithChainUnaryInterceptor(
			logging.HandleGRPC,
			authenticate.HandleGRPC,
			selector.UnaryClientInterceptor(
				validity.HandleGRPC,
				selector.MatchFunc(validity.Match),
			),
		),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return conn, nil
}
