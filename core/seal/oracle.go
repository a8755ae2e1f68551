package seal

import (
	"github.com/rs/xid"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/core/store/prefixed"
	"go.dedis.ch/sealbid/serde"
	"go.dedis.ch/sealbid/serde/cbor"
	"golang.org/x/xerrors"
)

const (
	// valuesPrefix is the namespace of the ciphertexts in the snapshot.
	valuesPrefix = "seal:values"

	// grantsPrefix is the namespace of the access grants in the snapshot.
	grantsPrefix = "seal:grants"

	// RevealCommand is the command of the credential that allows one to
	// request the plaintext of a value.
	RevealCommand = "reveal"
)

// Cipher is the scheme that turns plaintexts into ciphertexts. The oracle
// only calls it inside its boundary.
type Cipher interface {
	Encrypt(plaintext uint64) ([]byte, error)
	Decrypt(ciphertext []byte) (uint64, error)
}

// record is the persisted form of a sealed value.
type record struct {
	Schema     Schema `cbor:"1,keyasint"`
	Ciphertext []byte `cbor:"2,keyasint"`
}

// BoundaryOracle is an oracle that keeps the ciphertexts in the snapshot and
// evaluates the operations by decrypting the inputs inside its boundary. The
// outputs are always encrypted again with fresh randomness, which is what
// makes a selection indistinguishable from the other branch.
//
// - implements seal.Oracle
type BoundaryOracle struct {
	cipher   Cipher
	access   access.Service
	contract string
	context  serde.Context
	newID    func() string
}

// NewOracle creates an oracle using the cipher for the values of the
// contract. The access service decides who can reveal a value.
func NewOracle(cipher Cipher, srvc access.Service, contract string) BoundaryOracle {
	return BoundaryOracle{
		cipher:   cipher,
		access:   srvc,
		contract: contract,
		context:  cbor.NewContext(),
		newID: func() string {
			return xid.New().String()
		},
	}
}

// Seal implements seal.Oracle.
func (o BoundaryOracle) Seal(snap store.Snapshot, schema Schema, plaintext uint64) (Value, error) {
	switch schema {
	case SchemaUint64:
	case SchemaBool:
		if plaintext > 1 {
			return Value{}, xerrors.Errorf("boolean must be 0 or 1: %w", ErrSchema)
		}
	default:
		return Value{}, xerrors.Errorf("unknown %s: %w", schema, ErrSchema)
	}

	ciphertext, err := o.cipher.Encrypt(plaintext)
	if err != nil {
		return Value{}, xerrors.Errorf("failed to encrypt: %v", err)
	}

	v := Value{
		ID:     o.newID(),
		Schema: schema,
	}

	data, err := o.context.Marshal(record{Schema: schema, Ciphertext: ciphertext})
	if err != nil {
		return Value{}, xerrors.Errorf("failed to serialize value: %v", err)
	}

	err = prefixed.NewSnapshot(valuesPrefix, snap).Set([]byte(v.ID), data)
	if err != nil {
		return Value{}, xerrors.Errorf("failed to store value: %v", err)
	}

	return v, nil
}

// GreaterThan implements seal.Oracle.
func (o BoundaryOracle) GreaterThan(snap store.Snapshot, a, b Value) (Value, error) {
	if a.Schema != SchemaUint64 || b.Schema != SchemaUint64 {
		return Value{}, xerrors.Errorf("comparison of %s and %s: %w", a.Schema, b.Schema, ErrSchema)
	}

	x, err := o.open(snap, a)
	if err != nil {
		return Value{}, err
	}

	y, err := o.open(snap, b)
	if err != nil {
		return Value{}, err
	}

	return o.Seal(snap, SchemaBool, greater(x, y))
}

// Select implements seal.Oracle.
func (o BoundaryOracle) Select(snap store.Snapshot, cond, ifTrue, ifFalse Value) (Value, error) {
	if cond.Schema != SchemaBool {
		return Value{}, xerrors.Errorf("condition is %s: %w", cond.Schema, ErrSchema)
	}

	if ifTrue.Schema != ifFalse.Schema {
		return Value{}, xerrors.Errorf("selection between %s and %s: %w",
			ifTrue.Schema, ifFalse.Schema, ErrSchema)
	}

	c, err := o.open(snap, cond)
	if err != nil {
		return Value{}, err
	}

	t, err := o.open(snap, ifTrue)
	if err != nil {
		return Value{}, err
	}

	f, err := o.open(snap, ifFalse)
	if err != nil {
		return Value{}, err
	}

	return o.Seal(snap, ifTrue.Schema, choose(c, t, f))
}

// GrantAccess implements seal.Oracle.
func (o BoundaryOracle) GrantAccess(snap store.Snapshot, v Value, ident access.Identity) error {
	exists, err := prefixed.NewReadable(valuesPrefix, snap).Get([]byte(v.ID))
	if err != nil {
		return xerrors.Errorf("failed to read value: %v", err)
	}

	if exists == nil {
		return xerrors.Errorf("value %s not found", v.ID)
	}

	err = o.access.Grant(prefixed.NewSnapshot(grantsPrefix, snap), o.creds(v), ident)
	if err != nil {
		return xerrors.Errorf("failed to grant: %v", err)
	}

	return nil
}

// RevealTo implements seal.Oracle.
func (o BoundaryOracle) RevealTo(snap store.Readable, v Value, ident access.Identity) (uint64, error) {
	err := o.access.Match(prefixed.NewReadable(grantsPrefix, snap), o.creds(v), ident)
	if err != nil {
		return 0, xerrors.Errorf("%v: %w", err, ErrAccessDenied)
	}

	return o.open(snap, v)
}

func (o BoundaryOracle) creds(v Value) access.Credential {
	return access.NewValueCreds([]byte(v.ID), o.contract, RevealCommand)
}

// open reads and decrypts a value. It must never be exposed outside the
// oracle.
func (o BoundaryOracle) open(snap store.Readable, v Value) (uint64, error) {
	data, err := prefixed.NewReadable(valuesPrefix, snap).Get([]byte(v.ID))
	if err != nil {
		return 0, xerrors.Errorf("failed to read value: %v", err)
	}

	if data == nil {
		return 0, xerrors.Errorf("value %s not found", v.ID)
	}

	var rec record

	err = o.context.Unmarshal(data, &rec)
	if err != nil {
		return 0, xerrors.Errorf("failed to deserialize value: %v", err)
	}

	if rec.Schema != v.Schema {
		return 0, xerrors.Errorf("handle is %s but value is %s: %w", v.Schema, rec.Schema, ErrSchema)
	}

	plaintext, err := o.cipher.Decrypt(rec.Ciphertext)
	if err != nil {
		return 0, xerrors.Errorf("failed to decrypt: %v", err)
	}

	return plaintext, nil
}

// greater returns 1 if x > y, 0 otherwise, without branching on the values.
func greater(x, y uint64) uint64 {
	// The borrow of y - x is set exactly when x > y.
	return ((^y & x) | (^(y ^ x) & (y - x))) >> 63
}

// choose returns t if c is 1 and f if c is 0, without branching on c.
func choose(c, t, f uint64) uint64 {
	mask := -(c & 1)

	return (t & mask) | (f &^ mask)
}
