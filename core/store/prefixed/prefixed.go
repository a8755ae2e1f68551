// Package prefixed implements a view of a snapshot where every key lives in a
// namespace. It allows several components to share the same transaction
// without colliding on keys.
package prefixed

import (
	"crypto/sha256"
	"encoding/binary"

	"go.dedis.ch/sealbid/core/store"
)

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)

	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed Readable.
func NewReadable(prefix string, r store.Readable) store.Readable {
	return &readable{r, []byte(prefix)}
}

// Get implements store.Readable.
func (s *readable) Get(key []byte) ([]byte, error) {
	return s.Readable.Get(NewPrefixedKey(s.prefix, key))
}

// Set implements store.Writable.
func (s *writable) Set(key []byte, value []byte) error {
	return s.Writable.Set(NewPrefixedKey(s.prefix, key), value)
}

// Delete implements store.Writable.
func (s *writable) Delete(key []byte) error {
	return s.Writable.Delete(NewPrefixedKey(s.prefix, key))
}

// NewPrefixedKey creates a 256bit (hashed) key from a prefix and a base key.
// Both parts are length-prefixed so that no two pairs produce the same key.
func NewPrefixedKey(prefix, key []byte) []byte {
	h := sha256.New()

	length := make([]byte, 2)

	binary.LittleEndian.PutUint16(length, uint16(len(prefix)))
	h.Write(length)
	h.Write(prefix)

	binary.LittleEndian.PutUint16(length, uint16(len(key)))
	h.Write(length)
	h.Write(key)

	return h.Sum(nil)
}
