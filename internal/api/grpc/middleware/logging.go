package middleware

import (
	"context"
	"time"

	"github.com/dtroode/console-auth/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Logging is a unary client interceptor that logs outgoing calls and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary call.
func (l *Logging) HandleGRPC(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	start := time.Now()

	l.logger.Debug("gRPC call started",
		"method", method,
		"start_time", start.Format(time.RFC3339))

	err := invoker(ctx, method, req, reply, cc, opts...)

	duration := time.Since(start)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Unknown
		}
	}

	l.logger.Debug("gRPC call completed",
		"method", method,
		"duration_ms", duration.Milliseconds(),
		"status", statusCode.String())

	if err != nil {
		l.logger.Warn("gRPC call failed",
			"method", method,
			"error", err.Error(),
			"status", statusCode.String())
	}

	return err
}
