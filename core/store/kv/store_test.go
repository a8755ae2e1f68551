package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbid/core/store"
	"golang.org/x/xerrors"
)

func TestStore_UpdateAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := New(path)
	require.NoError(t, err)

	s := NewStore(db, []byte("ledger"))

	err = s.View(func(r store.Readable) error {
		value, err := r.Get([]byte("ping"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	committed := 0

	err = s.Update(func(tx store.WritableTx) error {
		tx.OnCommit(func() { committed++ })
		return tx.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)
	require.Equal(t, 1, committed)

	err = s.Update(func(tx store.WritableTx) error {
		require.NoError(t, tx.Delete([]byte("ping")))
		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")

	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)

	defer db.Close()

	s = NewStore(db, []byte("ledger"))

	err = s.View(func(r store.Readable) error {
		value, err := r.Get([]byte("ping"))
		require.NoError(t, err)
		require.Equal(t, []byte("pong"), value)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_ReadOnlySnapshot(t *testing.T) {
	snap := bucketSnapshot{}

	value, err := snap.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, value)

	require.EqualError(t, snap.Set([]byte("a"), nil), "read-only snapshot")
	require.EqualError(t, snap.Delete([]byte("a")), "read-only snapshot")
}
