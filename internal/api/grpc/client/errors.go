package client

import (
	"context"
	"errors"

	"github.com/dtroode/console-auth/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// handleError maps a failed call to a *model.RPCError carrying the server detail.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		switch {
		case errors.Is(err, context.Canceled):
			st = status.New(codes.Canceled, "")
		case errors.Is(err, context.DeadlineExceeded):
			st = status.New(codes.DeadlineExceeded, "")
		default:
			return err
		}
	}

	kind := model.ErrServerRejected
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		kind = model.ErrNetworkFailure
	}

	return &model.RPCError{Kind: kind, Code: st.Code(), Detail: st.Message()}
}
