// Package clear implements a cipher that keeps the plaintexts as they are.
// It is meant for tests and local demonstrations where the sealing scheme is
// not relevant: the access rules of the oracle still apply.
package clear

import (
	"encoding/binary"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/seal"
	"golang.org/x/xerrors"
)

const size = 8

// Cipher is the identity cipher.
//
// - implements seal.Cipher
type Cipher struct{}

// NewOracle returns an oracle that uses the identity cipher.
func NewOracle(srvc access.Service, contract string) seal.BoundaryOracle {
	return seal.NewOracle(Cipher{}, srvc, contract)
}

// Encrypt implements seal.Cipher. It returns the big-endian encoding of the
// plaintext.
func (Cipher) Encrypt(plaintext uint64) ([]byte, error) {
	buf := make([]byte, size)
	binary.BigEndian.PutUint64(buf, plaintext)

	return buf, nil
}

// Decrypt implements seal.Cipher.
func (Cipher) Decrypt(ciphertext []byte) (uint64, error) {
	if len(ciphertext) != size {
		return 0, xerrors.Errorf("invalid length %d", len(ciphertext))
	}

	return binary.BigEndian.Uint64(ciphertext), nil
}
