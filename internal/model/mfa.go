package model

import (
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
)

// MfaChallenge is the in-flight state of one verification attempt.
type MfaChallenge struct {
	ID               string
	Method           MfaMethod
	ServerOptions    string
	CredentialResult string
}

// Assertion is the raw output of a platform assertion ceremony.
type Assertion struct {
	ID                      string
	RawID                   []byte
	AuthenticatorData       []byte
	ClientDataJSON          []byte
	Signature               []byte
	UserHandle              []byte
	AuthenticatorAttachment string
}

// CredentialPlatform runs WebAuthn ceremonies on the local authenticator.
type CredentialPlatform interface {
	Supported() bool
	// GetAssertion may return (nil, nil) when the platform produced no credential.
	GetAssertion(ctx context.Context, options protocol.PublicKeyCredentialRequestOptions) (*Assertion, error)
}

// PlatformError is a named failure raised by the credential platform.
type PlatformError struct {
	Name    string
	Message string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}
