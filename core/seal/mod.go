// Package seal defines the sealed values of the ledger and the oracle that
// manipulates them.
//
// A sealed value is an opaque handle to a secret number or boolean. Its
// plaintext is only ever read by the oracle, either to evaluate a comparison
// or a selection whose result is sealed again, or to disclose it to an
// identity that has been granted the value.
package seal

import (
	"fmt"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/store"
	"golang.org/x/xerrors"
)

// ErrAccessDenied is returned when a plaintext is requested by an identity
// that has not been granted the value.
var ErrAccessDenied = xerrors.New("access denied")

// ErrSchema is returned when the schema of a value does not fit the
// operation.
var ErrSchema = xerrors.New("schema mismatch")

// Schema is the type of the plaintext of a sealed value.
type Schema uint8

const (
	// SchemaUint64 is the schema of an unsigned 64-bit integer.
	SchemaUint64 Schema = iota + 1

	// SchemaBool is the schema of a boolean.
	SchemaBool
)

// String implements fmt.Stringer.
func (s Schema) String() string {
	switch s {
	case SchemaUint64:
		return "uint64"
	case SchemaBool:
		return "bool"
	default:
		return fmt.Sprintf("schema(%d)", uint8(s))
	}
}

// Value is the handle of a sealed value. It is safe to copy and to persist as
// it carries no secret.
type Value struct {
	ID     string `cbor:"1,keyasint" json:"id"`
	Schema Schema `cbor:"2,keyasint" json:"schema"`
}

// IsZero returns true if the handle does not designate any value.
func (v Value) IsZero() bool {
	return v.ID == ""
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return fmt.Sprintf("sealed<%s>(%s)", v.Schema, v.ID)
}

// Oracle is the capability that creates and evaluates sealed values. The
// caller never observes an intermediate plaintext.
type Oracle interface {
	// Seal returns a new sealed value for the plaintext. Booleans are
	// represented by 0 and 1.
	Seal(snap store.Snapshot, schema Schema, plaintext uint64) (Value, error)

	// GreaterThan returns a sealed boolean that is true when a > b.
	GreaterThan(snap store.Snapshot, a, b Value) (Value, error)

	// Select returns a new sealed value equal to ifTrue when the condition is
	// true, and to ifFalse otherwise. The result is always a fresh value so
	// that nobody can tell which branch has been taken.
	Select(snap store.Snapshot, cond, ifTrue, ifFalse Value) (Value, error)

	// GrantAccess allows the identity to request the plaintext of the value.
	GrantAccess(snap store.Snapshot, v Value, ident access.Identity) error

	// RevealTo returns the plaintext of the value if the identity has been
	// granted the access, or an error wrapping ErrAccessDenied.
	RevealTo(snap store.Readable, v Value, ident access.Identity) (uint64, error)
}

// SealUint64 seals an unsigned integer.
func SealUint64(o Oracle, snap store.Snapshot, plaintext uint64) (Value, error) {
	return o.Seal(snap, SchemaUint64, plaintext)
}

// SealBool seals a boolean.
func SealBool(o Oracle, snap store.Snapshot, plaintext bool) (Value, error) {
	var n uint64
	if plaintext {
		n = 1
	}

	return o.Seal(snap, SchemaBool, n)
}

// RevealBool reveals a sealed boolean to the identity.
func RevealBool(o Oracle, snap store.Readable, v Value, ident access.Identity) (bool, error) {
	if v.Schema != SchemaBool {
		return false, xerrors.Errorf("expected bool, got %s: %w", v.Schema, ErrSchema)
	}

	n, err := o.RevealTo(snap, v, ident)
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
