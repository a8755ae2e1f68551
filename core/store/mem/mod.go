// Package mem implements an in-memory store where every update is staged in
// a child layer that is merged only when the transaction succeeds.
package mem

import (
	"sync"

	"go.dedis.ch/sealbid/core/store"
)

// Store is an in-memory implementation of a transactional store.
//
// - implements store.Store
type Store struct {
	sync.RWMutex
	values map[string][]byte
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
	}
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.values)
}

// Dump returns a copy of every key and value of the store.
func (s *Store) Dump() map[string][]byte {
	s.RLock()
	defer s.RUnlock()

	values := make(map[string][]byte, len(s.values))
	for key, value := range s.values {
		values[key] = clone(value)
	}

	return values
}

// View implements store.Store.
func (s *Store) View(fn func(store.Readable) error) error {
	s.RLock()
	defer s.RUnlock()

	return fn(reader{values: s.values})
}

// Update implements store.Store. The function is executed against a staging
// layer so that nothing is applied when it fails.
func (s *Store) Update(fn func(store.WritableTx) error) error {
	s.Lock()

	tx := &stage{
		parent:  s.values,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}

	err := fn(tx)
	if err != nil {
		s.Unlock()
		return err
	}

	for key := range tx.deletes {
		delete(s.values, key)
	}

	for key, value := range tx.writes {
		s.values[key] = value
	}

	s.Unlock()

	for _, cb := range tx.callbacks {
		cb()
	}

	return nil
}

type reader struct {
	values map[string][]byte
}

// Get implements store.Readable.
func (r reader) Get(key []byte) ([]byte, error) {
	return clone(r.values[string(key)]), nil
}

// stage is the writable layer of a transaction.
//
// - implements store.WritableTx
type stage struct {
	parent    map[string][]byte
	writes    map[string][]byte
	deletes   map[string]struct{}
	callbacks []func()
}

// Get implements store.Readable. It looks up the staged writes first and then
// the parent state.
func (s *stage) Get(key []byte) ([]byte, error) {
	str := string(key)

	value, found := s.writes[str]
	if found {
		return clone(value), nil
	}

	_, deleted := s.deletes[str]
	if deleted {
		return nil, nil
	}

	return clone(s.parent[str]), nil
}

// Set implements store.Writable.
func (s *stage) Set(key, value []byte) error {
	str := string(key)

	s.writes[str] = clone(value)
	delete(s.deletes, str)

	return nil
}

// Delete implements store.Writable.
func (s *stage) Delete(key []byte) error {
	str := string(key)

	delete(s.writes, str)
	s.deletes[str] = struct{}{}

	return nil
}

// OnCommit implements store.Transaction.
func (s *stage) OnCommit(fn func()) {
	s.callbacks = append(s.callbacks, fn)
}

func clone(value []byte) []byte {
	if value == nil {
		return nil
	}

	return append([]byte{}, value...)
}
