// Package elgamal implements the sealing of the ledger with the ElGamal
// encryption over the Ed25519 curve.
//
// The plaintext is embedded into a curve point which is blinded with a
// Diffie-Hellman secret shared with the key of the oracle. Each encryption
// picks a new ephemeral key, therefore two ciphertexts of the same plaintext
// cannot be linked without the secret key.
package elgamal

import (
	"encoding/binary"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/seal"
	"golang.org/x/xerrors"
)

var suite = suites.MustFind("Ed25519")

const plaintextSize = 8

// Cipher is the ElGamal cipher of the oracle. It holds the secret key.
//
// - implements seal.Cipher
type Cipher struct {
	secret kyber.Scalar
	public kyber.Point
}

// NewCipher creates a cipher from the secret key.
func NewCipher(secret kyber.Scalar) Cipher {
	return Cipher{
		secret: secret,
		public: suite.Point().Mul(secret, nil),
	}
}

// GenerateCipher creates a cipher with a random secret key.
func GenerateCipher() Cipher {
	return NewCipher(suite.Scalar().Pick(random.New()))
}

// CipherFromSecret creates a cipher from the binary form of a secret key.
func CipherFromSecret(data []byte) (Cipher, error) {
	secret := suite.Scalar()

	err := secret.UnmarshalBinary(data)
	if err != nil {
		return Cipher{}, xerrors.Errorf("failed to unmarshal secret: %v", err)
	}

	return NewCipher(secret), nil
}

// NewOracle returns an oracle that seals the values with the cipher.
func NewOracle(c Cipher, srvc access.Service, contract string) seal.BoundaryOracle {
	return seal.NewOracle(c, srvc, contract)
}

// GetPublicKey returns the public key of the cipher.
func (c Cipher) GetPublicKey() kyber.Point {
	return c.public
}

// MarshalSecret returns the binary form of the secret key.
func (c Cipher) MarshalSecret() ([]byte, error) {
	return c.secret.MarshalBinary()
}

// Encrypt implements seal.Cipher. The ciphertext is the concatenation of the
// ephemeral key K and the blinded message C.
func (c Cipher) Encrypt(plaintext uint64) ([]byte, error) {
	msg := make([]byte, plaintextSize)
	binary.BigEndian.PutUint64(msg, plaintext)

	M := suite.Point().Embed(msg, random.New())
	k := suite.Scalar().Pick(random.New()) // ephemeral private key
	K := suite.Point().Mul(k, nil)         // ephemeral DH public key
	S := suite.Point().Mul(k, c.public)    // ephemeral DH shared secret
	C := S.Add(S, M)                       // message blinded with secret

	buf, err := K.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal K: %v", err)
	}

	cbuf, err := C.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal C: %v", err)
	}

	return append(buf, cbuf...), nil
}

// Decrypt implements seal.Cipher.
func (c Cipher) Decrypt(ciphertext []byte) (uint64, error) {
	n := suite.PointLen()

	if len(ciphertext) != 2*n {
		return 0, xerrors.Errorf("invalid ciphertext length %d", len(ciphertext))
	}

	K := suite.Point()

	err := K.UnmarshalBinary(ciphertext[:n])
	if err != nil {
		return 0, xerrors.Errorf("failed to unmarshal K: %v", err)
	}

	C := suite.Point()

	err = C.UnmarshalBinary(ciphertext[n:])
	if err != nil {
		return 0, xerrors.Errorf("failed to unmarshal C: %v", err)
	}

	S := suite.Point().Mul(c.secret, K)
	M := suite.Point().Sub(C, S)

	msg, err := M.Data()
	if err != nil {
		return 0, xerrors.Errorf("failed to extract plaintext: %v", err)
	}

	if len(msg) != plaintextSize {
		return 0, xerrors.Errorf("invalid plaintext length %d", len(msg))
	}

	return binary.BigEndian.Uint64(msg), nil
}
