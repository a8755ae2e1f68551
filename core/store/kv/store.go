package kv

import (
	"go.dedis.ch/sealbid/core/store"
	"golang.org/x/xerrors"
)

// Store is a transactional store where the keys live in a single bucket of the
// database.
//
// - implements store.Store
type Store struct {
	db     DB
	bucket []byte
}

// NewStore returns a store that uses the bucket of the database.
func NewStore(db DB, bucket []byte) Store {
	return Store{
		db:     db,
		bucket: bucket,
	}
}

// View implements store.Store. A bucket that does not exist yet is read as an
// empty one.
func (s Store) View(fn func(store.Readable) error) error {
	return s.db.View(func(tx ReadableTx) error {
		return fn(bucketSnapshot{bucket: tx.GetBucket(s.bucket)})
	})
}

// Update implements store.Store.
func (s Store) Update(fn func(store.WritableTx) error) error {
	return s.db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(s.bucket)
		if err != nil {
			return xerrors.Errorf("bucket: %v", err)
		}

		return fn(bucketSnapshot{bucket: bucket, txn: tx})
	})
}

// bucketSnapshot is the view of a bucket during a transaction.
//
// - implements store.WritableTx
type bucketSnapshot struct {
	bucket Bucket
	txn    store.Transaction
}

// Get implements store.Readable. The value is copied as the database memory
// is not valid after the transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	if s.txn == nil {
		return xerrors.New("read-only snapshot")
	}

	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	if s.txn == nil {
		return xerrors.New("read-only snapshot")
	}

	return s.bucket.Delete(key)
}

// OnCommit implements store.Transaction.
func (s bucketSnapshot) OnCommit(fn func()) {
	s.txn.OnCommit(fn)
}
