package model

import (
	"errors"

	"google.golang.org/grpc/codes"
)

var (
	ErrUnsupported         = errors.New("unsupported on this platform")
	ErrNotInitialized      = errors.New("device identity is not initialized")
	ErrNoKey               = errors.New("no device key available")
	ErrKeyUnavailable      = errors.New("device key unavailable")
	ErrDecryptFailure      = errors.New("failed to decrypt session token")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrNotAllowed          = errors.New("not allowed")
	ErrNoCredential        = errors.New("no credential received from authenticator")
	ErrServerRejected      = errors.New("rejected by server")
	ErrNetworkFailure      = errors.New("network failure")
	ErrCorrupted           = errors.New("stored state is corrupted")
	ErrChallengeInProgress = errors.New("another verification is in progress")
	ErrNotFound            = errors.New("not found")
)

// RPCError is a non-OK status returned by the identity service.
type RPCError struct {
	Kind   error
	Code   codes.Code
	Detail string
}

func (e *RPCError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Detail
}

func (e *RPCError) Unwrap() error {
	return e.Kind
}

// InputError is a local validation failure.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidFormat
}

// NewInputError creates an InputError with a user-facing message.
func NewInputError(message string) error {
	return &InputError{Message: message}
}

// UserMessage returns a short message safe to show to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Detail != "" {
			return rpcErr.Detail
		}
		if rpcErr.Kind == ErrNetworkFailure {
			return "Could not reach the server. Please try again."
		}
		return "Request was rejected by the server."
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message
	}

	switch {
	case errors.Is(err, ErrUnsupported):
		return "This device does not support the requested authentication method."
	case errors.Is(err, ErrNotAllowed):
		return "Authentication was denied or cancelled."
	case errors.Is(err, ErrNoCredential):
		return "No credential received from authenticator."
	case errors.Is(err, ErrChallengeInProgress):
		return "Another verification is already in progress."
	case errors.Is(err, ErrDecryptFailure), errors.Is(err, ErrNoKey), errors.Is(err, ErrNotInitialized):
		return "Your sign-in could not be completed on this device. Please sign in again."
	case errors.Is(err, ErrKeyUnavailable):
		return "The device key could not be stored."
	case errors.Is(err, ErrCorrupted):
		return "Failed to parse session token"
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return "Authentication failed. Please try again."
	}
	return "Something went wrong. Please try again."
}
