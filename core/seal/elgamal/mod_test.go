package elgamal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/access/acl"
	"go.dedis.ch/sealbid/core/seal"
	"go.dedis.ch/sealbid/internal/testing/fake"
)

func TestCipher_EncryptDecrypt(t *testing.T) {
	c := GenerateCipher()

	for _, n := range []uint64{0, 1, 200, math.MaxUint64} {
		ct, err := c.Encrypt(n)
		require.NoError(t, err)
		require.Len(t, ct, 2*suite.PointLen())

		res, err := c.Decrypt(ct)
		require.NoError(t, err)
		require.Equal(t, n, res)
	}
}

func TestCipher_Randomized(t *testing.T) {
	c := GenerateCipher()

	a, err := c.Encrypt(42)
	require.NoError(t, err)

	b, err := c.Encrypt(42)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestCipher_WrongKey(t *testing.T) {
	ct, err := GenerateCipher().Encrypt(42)
	require.NoError(t, err)

	res, err := GenerateCipher().Decrypt(ct)
	if err == nil {
		require.NotEqual(t, uint64(42), res)
	}
}

func TestCipher_BadCiphertext(t *testing.T) {
	c := GenerateCipher()

	_, err := c.Decrypt([]byte{1, 2, 3})
	require.EqualError(t, err, "invalid ciphertext length 3")
}

func TestCipher_MarshalSecret(t *testing.T) {
	c := GenerateCipher()

	data, err := c.MarshalSecret()
	require.NoError(t, err)

	c2, err := CipherFromSecret(data)
	require.NoError(t, err)
	require.True(t, c.GetPublicKey().Equal(c2.GetPublicKey()))

	ct, err := c.Encrypt(7)
	require.NoError(t, err)

	res, err := c2.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, uint64(7), res)

	_, err = CipherFromSecret([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal secret")
}

func TestOracle_MaxUpdate(t *testing.T) {
	srvc, err := acl.NewService(access.Principal("contract"))
	require.NoError(t, err)

	oracle := NewOracle(GenerateCipher(), srvc, "auction")
	snap := fake.NewSnapshot()

	highest, err := seal.SealUint64(oracle, snap, 0)
	require.NoError(t, err)

	for _, amount := range []uint64{100, 300, 200} {
		bid, err := seal.SealUint64(oracle, snap, amount)
		require.NoError(t, err)

		isNew, err := oracle.GreaterThan(snap, bid, highest)
		require.NoError(t, err)

		highest, err = oracle.Select(snap, isNew, bid, highest)
		require.NoError(t, err)
	}

	res, err := oracle.RevealTo(snap, highest, access.Principal("contract"))
	require.NoError(t, err)
	require.Equal(t, uint64(300), res)

	_, err = oracle.RevealTo(snap, highest, access.Principal("alice"))
	require.ErrorIs(t, err, seal.ErrAccessDenied)
}
