// Package store defines the primitives of a simple key/value storage.
//
// A store is updated through transactions: every write of a transaction is
// either applied entirely or not at all.
package store

// Readable is the interface for a readable store. Get returns a nil value
// without error when the key does not exist.
type Readable interface {
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a state of the store that can be read and write independently. A
// write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
}

// Transaction is a generic interface that store implementations can use to
// provide atomicity.
type Transaction interface {
	// OnCommit adds a callback to be executed after the transaction
	// successfully commits.
	OnCommit(func())
}

// WritableTx is a snapshot bound to a transaction of the store.
type WritableTx interface {
	Snapshot
	Transaction
}

// Store is the interface of a transactional key/value storage.
type Store interface {
	// View executes the read-only function against the current state.
	View(fn func(Readable) error) error

	// Update executes the function in a new transaction. The writes are
	// committed only if the function returns nil, after which the commit
	// callbacks are executed in the order they have been registered.
	Update(fn func(WritableTx) error) error
}
