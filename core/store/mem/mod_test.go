package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbid/core/store"
	"golang.org/x/xerrors"
)

func TestStore_UpdateAndView(t *testing.T) {
	s := NewStore()

	err := s.Update(func(tx store.WritableTx) error {
		require.NoError(t, tx.Set([]byte("ping"), []byte("pong")))

		value, err := tx.Get([]byte("ping"))
		require.NoError(t, err)
		require.Equal(t, []byte("pong"), value)

		return nil
	})
	require.NoError(t, err)

	err = s.View(func(r store.Readable) error {
		value, err := r.Get([]byte("ping"))
		require.NoError(t, err)
		require.Equal(t, []byte("pong"), value)

		value, err = r.Get([]byte("pong"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
}

func TestStore_Rollback(t *testing.T) {
	s := NewStore()

	err := s.Update(func(tx store.WritableTx) error {
		return tx.Set([]byte("a"), []byte{1})
	})
	require.NoError(t, err)

	called := false

	err = s.Update(func(tx store.WritableTx) error {
		tx.OnCommit(func() { called = true })

		require.NoError(t, tx.Set([]byte("b"), []byte{2}))
		require.NoError(t, tx.Delete([]byte("a")))

		value, err := tx.Get([]byte("a"))
		require.NoError(t, err)
		require.Nil(t, value)

		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")
	require.False(t, called)
	require.Equal(t, 1, s.Len())
	require.Equal(t, map[string][]byte{"a": {1}}, s.Dump())

	err = s.View(func(r store.Readable) error {
		value, err := r.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, value)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_OnCommit(t *testing.T) {
	s := NewStore()

	order := []int{}

	err := s.Update(func(tx store.WritableTx) error {
		tx.OnCommit(func() { order = append(order, 1) })
		tx.OnCommit(func() { order = append(order, 2) })

		require.NoError(t, tx.Set([]byte("a"), []byte{1}))
		require.NoError(t, tx.Delete([]byte("a")))

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 0, s.Len())
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := NewStore()

	value := []byte{1, 2, 3}

	err := s.Update(func(tx store.WritableTx) error {
		return tx.Set([]byte("key"), value)
	})
	require.NoError(t, err)

	value[0] = 9

	s.View(func(r store.Readable) error {
		res, _ := r.Get([]byte("key"))
		require.Equal(t, []byte{1, 2, 3}, res)

		return nil
	})
}
