// Package access defines the interfaces for the access control of the sealed
// values of the ledger.
//
// An access is the relation between a credential, which designates a sealed
// value and the rule to use it, and the identities allowed to exercise it.
package access

import (
	"encoding"
	"strings"

	"go.dedis.ch/sealbid/core/store"
)

// Identity is an abstraction to uniquely identify a principal.
type Identity interface {
	encoding.TextMarshaler
}

// Credential defines the piece of information that can be used to verify the
// access of an identity.
type Credential interface {
	// GetID returns the identifier of the credential.
	GetID() []byte

	// GetRule returns the rule the credential applies to.
	GetRule() string
}

// Service is an access service that stores the grants in a snapshot and
// verifies them.
type Service interface {
	// Match returns nil if at least one of the identities has been granted
	// the credential, otherwise an error describing why it has not.
	Match(store store.Readable, creds Credential, idents ...Identity) error

	// Grant updates the store so that the identities are granted the
	// credential. Grants are never revoked.
	Grant(store store.Snapshot, creds Credential, idents ...Identity) error
}

// Principal is an identity represented by its address. It is the identity of
// the creators and the bidders of the ledger.
//
// - implements access.Identity
type Principal string

// MarshalText implements encoding.TextMarshaler.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

// String implements fmt.Stringer.
func (p Principal) String() string {
	return string(p)
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}
