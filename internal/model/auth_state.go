package model

// AuthStateKind tags the variant held by AuthState.
type AuthStateKind string

const (
	// StateUnauthenticated means no session is held.
	StateUnauthenticated AuthStateKind = "unauthenticated"
	// StateLoading means the value is being obtained.
	StateLoading AuthStateKind = "loading"
	// StateAuthenticated means the value is present.
	StateAuthenticated AuthStateKind = "authenticated"
	// StateError means the value could not be obtained.
	StateError AuthStateKind = "error"
)

// AuthState is an immutable tagged variant. Only the authenticated variant
// carries data and only the error variant carries a message.
type AuthState[T any] struct {
	kind    AuthStateKind
	data    T
	message string
}

// Authenticated returns the authenticated variant holding data.
func Authenticated[T any](data T) AuthState[T] {
	return AuthState[T]{kind: StateAuthenticated, data: data}
}

// Unauthenticated returns the unauthenticated variant.
func Unauthenticated[T any]() AuthState[T] {
	return AuthState[T]{kind: StateUnauthenticated}
}

// Loading returns the loading variant.
func Loading[T any]() AuthState[T] {
	return AuthState[T]{kind: StateLoading}
}

// Failed returns the error variant with a user-facing message.
func Failed[T any](message string) AuthState[T] {
	return AuthState[T]{kind: StateError, message: message}
}

// Kind returns the variant tag. The zero AuthState reports unauthenticated.
func (s AuthState[T]) Kind() AuthStateKind {
	if s.kind == "" {
		return StateUnauthenticated
	}
	return s.kind
}

// Data returns the payload and true for the authenticated variant.
func (s AuthState[T]) Data() (T, bool) {
	if s.kind != StateAuthenticated {
		var zero T
		return zero, false
	}
	return s.data, true
}

// Message returns the error message of the error variant.
func (s AuthState[T]) Message() string {
	return s.message
}

// IsAuthenticated reports whether the variant is authenticated.
func (s AuthState[T]) IsAuthenticated() bool {
	return s.kind == StateAuthenticated
}
