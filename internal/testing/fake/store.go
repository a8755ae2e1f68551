package fake

import (
	"go.dedis.ch/sealbid/core/store"
)

// InMemorySnapshot is a fake implementation of a store snapshot bound to a
// transaction.
//
// - implements store.WritableTx
type InMemorySnapshot struct {
	values    map[string][]byte
	callbacks []func()

	ErrRead   error
	ErrWrite  error
	ErrDelete error
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values: make(map[string][]byte),
	}
}

// NewBadSnapshot creates a new empty snapshot that will always return an error.
func NewBadSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values:    make(map[string][]byte),
		ErrRead:   fakeErr,
		ErrWrite:  fakeErr,
		ErrDelete: fakeErr,
	}
}

// NewBadWriteSnapshot creates a new empty snapshot that can be read but that
// fails on writes.
func NewBadWriteSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values:    make(map[string][]byte),
		ErrWrite:  fakeErr,
		ErrDelete: fakeErr,
	}
}

// Get implements store.Snapshot.
func (snap *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	if snap.ErrRead != nil {
		return nil, snap.ErrRead
	}

	return snap.values[string(key)], nil
}

// Set implements store.Snapshot.
func (snap *InMemorySnapshot) Set(key, value []byte) error {
	if snap.ErrWrite != nil {
		return snap.ErrWrite
	}

	snap.values[string(key)] = value

	return nil
}

// Delete implements store.Snapshot.
func (snap *InMemorySnapshot) Delete(key []byte) error {
	if snap.ErrDelete != nil {
		return snap.ErrDelete
	}

	delete(snap.values, string(key))

	return nil
}

// OnCommit implements store.Transaction.
func (snap *InMemorySnapshot) OnCommit(fn func()) {
	snap.callbacks = append(snap.callbacks, fn)
}

// Commit executes the callbacks registered so far and forgets them.
func (snap *InMemorySnapshot) Commit() {
	callbacks := snap.callbacks
	snap.callbacks = nil

	for _, cb := range callbacks {
		cb()
	}
}

// Len returns the number of keys of the snapshot.
func (snap *InMemorySnapshot) Len() int {
	return len(snap.values)
}

// Store is a fake store that fails every transaction with the given error.
//
// - implements store.Store
type Store struct {
	Err error
}

// View implements store.Store.
func (s Store) View(func(store.Readable) error) error {
	return s.Err
}

// Update implements store.Store.
func (s Store) Update(func(store.WritableTx) error) error {
	return s.Err
}
