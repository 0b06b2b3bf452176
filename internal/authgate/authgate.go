// Package authgate authenticates shim clients against the operator's
// authorized-client list and enforces their granted capabilities before a
// request is allowed to reach a provider call.
package authgate

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/hyperware-ai/hypergrid-operator/internal/ledger"
)

// Capabilities mirrors the coarse grant a client can hold; only the
// all-or-nothing case exists today.
type Capabilities int

const (
	CapabilitiesNone Capabilities = iota
	CapabilitiesAll
)

// AuthorizedClient is one entry in the operator's client list.
type AuthorizedClient struct {
	ClientID                string
	Name                    string
	AssociatedHotWalletAddr string
	TokenHash               string // hex sha256 of the raw bearer token
	Capabilities            Capabilities
	Limits                  ledger.Limits
}

// Kind enumerates the ways authenticate() can fail.
type Kind int

const (
	MissingClientId Kind = iota
	MissingToken
	ClientNotFound
	InvalidToken
	InsufficientCapabilities
)

func (k Kind) String() string {
	switch k {
	case MissingClientId:
		return "MissingClientId"
	case MissingToken:
		return "MissingToken"
	case ClientNotFound:
		return "ClientNotFound"
	case InvalidToken:
		return "InvalidToken"
	case InsufficientCapabilities:
		return "InsufficientCapabilities"
	default:
		return "Unknown"
	}
}

// Error is returned by Authenticate.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("authgate: %s", e.Kind)
}

// Directory looks up authorized clients by id.
type Directory interface {
	Lookup(clientID string) (AuthorizedClient, bool)
}

// HashToken returns the hex-encoded SHA-256 digest of a raw bearer token,
// the form stored in AuthorizedClient.TokenHash and compared against.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Authenticate validates a client_id/raw_token pair against dir and, if
// requestedOperation is non-empty, checks it against the client's granted
// capabilities. Token comparison is constant-time over the SHA-256 hex of
// the raw token so that timing does not leak how many prefix bytes matched.
func Authenticate(dir Directory, clientID, rawToken, requestedOperation string) (AuthorizedClient, error) {
	if clientID == "" {
		return AuthorizedClient{}, &Error{Kind: MissingClientId}
	}
	if rawToken == "" {
		return AuthorizedClient{}, &Error{Kind: MissingToken}
	}
	client, ok := dir.Lookup(clientID)
	if !ok {
		return AuthorizedClient{}, &Error{Kind: ClientNotFound}
	}

	got := HashToken(rawToken)
	if subtle.ConstantTimeCompare([]byte(got), []byte(client.TokenHash)) != 1 {
		return AuthorizedClient{}, &Error{Kind: InvalidToken}
	}

	if requestedOperation != "" && client.Capabilities != CapabilitiesAll {
		return AuthorizedClient{}, &Error{Kind: InsufficientCapabilities}
	}

	return client, nil
}
