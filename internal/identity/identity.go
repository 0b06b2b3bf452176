// Package identity verifies the operator's sub-entry under the registry
// namespace and checks that its token-bound account runs the expected
// ERC-6551 implementation. A verified identity unlocks delegation checks
// and payments; a transient check failure must never silently demote an
// already-verified identity.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
)

// Status is one of the five possible outcomes of a detailed identity check.
type Status int

const (
	StatusNotFound Status = iota
	StatusVerified
	StatusIncorrectImplementation
	StatusImplementationCheckFailed
	StatusCheckError
)

func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "NotFound"
	case StatusVerified:
		return "Verified"
	case StatusIncorrectImplementation:
		return "IncorrectImplementation"
	case StatusImplementationCheckFailed:
		return "ImplementationCheckFailed"
	case StatusCheckError:
		return "CheckError"
	default:
		return "Unknown"
	}
}

// Result is the full classification of a check_operator_identity call.
type Result struct {
	Status Status

	EntryName    string
	TBAAddress   common.Address
	OwnerAddress common.Address

	FoundImplementation    common.Address
	ExpectedImplementation common.Address

	Message string
}

// Verified reports whether this result reflects a currently-valid identity.
func (r Result) Verified() bool { return r.Status == StatusVerified }

// Definitive reports whether this result should overwrite previously
// persisted identity state. NotFound and IncorrectImplementation are
// definitive; CheckError and ImplementationCheckFailed are transient and
// must leave a prior Verified state untouched.
func (r Result) Definitive() bool {
	return r.Status == StatusNotFound || r.Status == StatusIncorrectImplementation || r.Status == StatusVerified
}

// RegistryReader resolves a namespace entry to its token-bound account and
// owner, mirroring Hypermap.get(name).
type RegistryReader interface {
	Get(ctx context.Context, name string) (tba, owner common.Address, err error)
}

// ImplementationReader reads the ERC-1967 implementation slot of a proxy.
type ImplementationReader interface {
	ImplementationOf(ctx context.Context, proxy common.Address) (common.Address, error)
}

// Checker verifies the operator's identity sub-entry.
type Checker struct {
	registry RegistryReader
	impl     ImplementationReader
	expected common.Address
}

// NewChecker builds a Checker against constants for the active environment.
func NewChecker(registry RegistryReader, impl ImplementationReader, env chainenv.Constants) *Checker {
	return &Checker{registry: registry, impl: impl, expected: chainenv.ExpectedTBAImplementation}
}

// ExpectedSubEntry computes the operator's namespace sub-entry name for a
// given node, e.g. "grid-wallet.some-node.grid.hypr" in production.
func ExpectedSubEntry(env chainenv.Constants, nodeName string) string {
	return env.WalletPrefix + nodeName
}

// Check resolves ExpectedSubEntry(env, nodeName) and validates its TBA's
// implementation. Transient errors are reported as CheckError /
// ImplementationCheckFailed rather than returned as Go errors, since the
// caller must distinguish them from definitive NotFound/IncorrectImplementation
// outcomes to decide whether to clear prior state.
func (c *Checker) Check(ctx context.Context, env chainenv.Constants, nodeName string) Result {
	entryName := ExpectedSubEntry(env, nodeName)

	tba, owner, err := c.registry.Get(ctx, entryName)
	if err != nil {
		msg := err.Error()
		if isNotFoundError(msg) {
			return Result{Status: StatusNotFound, EntryName: entryName}
		}
		return Result{Status: StatusCheckError, EntryName: entryName, Message: fmt.Sprintf("registry lookup: %s", msg)}
	}
	if tba == (common.Address{}) {
		return Result{Status: StatusNotFound, EntryName: entryName}
	}

	foundImpl, err := c.impl.ImplementationOf(ctx, tba)
	if err != nil {
		return Result{
			Status:       StatusImplementationCheckFailed,
			EntryName:    entryName,
			TBAAddress:   tba,
			OwnerAddress: owner,
			Message:      fmt.Sprintf("implementation read failed: %s", err),
		}
	}

	if foundImpl != c.expected {
		return Result{
			Status:                 StatusIncorrectImplementation,
			EntryName:              entryName,
			TBAAddress:             tba,
			OwnerAddress:           owner,
			FoundImplementation:    foundImpl,
			ExpectedImplementation: c.expected,
		}
	}

	return Result{
		Status:       StatusVerified,
		EntryName:    entryName,
		TBAAddress:   tba,
		OwnerAddress: owner,
	}
}

// isNotFoundError is a best-effort classification of registry lookup
// errors, pending a typed not-found error from the registry client.
func isNotFoundError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "note not found") || strings.Contains(msg, "entry not found")
}
