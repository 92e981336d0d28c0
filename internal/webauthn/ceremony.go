// Package webauthn converts between the identity service's JSON and the
// inputs and outputs of a platform assertion ceremony.
package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/go-webauthn/webauthn/protocol"
)

// ParseRequestOptions decodes the server challenge into ceremony input.
// The challenge and allowed credential ids arrive base64url encoded and are
// returned as raw bytes.
func ParseRequestOptions(optionsJSON string) (protocol.PublicKeyCredentialRequestOptions, error) {
	var assertion protocol.CredentialAssertion
	if err := json.Unmarshal([]byte(optionsJSON), &assertion); err != nil {
		return protocol.PublicKeyCredentialRequestOptions{}, fmt.Errorf("%w: failed to parse request options: %w", model.ErrInvalidFormat, err)
	}

	options := assertion.Response
	if len(options.Challenge) == 0 {
		return protocol.PublicKeyCredentialRequestOptions{}, fmt.Errorf("%w: request options have no challenge", model.ErrInvalidFormat)
	}
	if options.AllowedCredentials == nil {
		options.AllowedCredentials = []protocol.CredentialDescriptor{}
	}

	return options, nil
}

// SerializeAssertion encodes ceremony output as the JSON the server expects.
func SerializeAssertion(a *model.Assertion) (string, error) {
	if a == nil {
		return "", model.ErrNoCredential
	}

	id := a.ID
	if id == "" {
		id = base64.RawURLEncoding.EncodeToString(a.RawID)
	}

	response := protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   id,
				Type: string(protocol.PublicKeyCredentialType),
			},
			RawID:                   a.RawID,
			AuthenticatorAttachment: a.AuthenticatorAttachment,
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: a.ClientDataJSON,
			},
			AuthenticatorData: a.AuthenticatorData,
			Signature:         a.Signature,
			UserHandle:        a.UserHandle,
		},
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return "", fmt.Errorf("failed to marshal assertion: %w", err)
	}
	return string(raw), nil
}
