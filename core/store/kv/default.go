package kv

import (
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// openTimeout is the time to wait for the file lock of the database before
// giving up, which happens when another process holds the ledger.
const openTimeout = time.Second

// boltDB is an adapter of the KV database using bboltdb.
//
// - implements kv.DB
type boltDB struct {
	bolt *bbolt.DB
}

// New opens the database file at the given path, or creates it.
func New(path string) (DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return boltDB{bolt: db}, nil
}

// View implements kv.DB. It executes the read-only function in a bbolt
// transaction.
func (db boltDB) View(fn func(ReadableTx) error) error {
	return db.bolt.View(func(txn *bbolt.Tx) error {
		return fn(boltTx{txn: txn})
	})
}

// Update implements kv.DB. It executes the function in a read-write bbolt
// transaction that is rolled back when an error is returned.
func (db boltDB) Update(fn func(WritableTx) error) error {
	return db.bolt.Update(func(txn *bbolt.Tx) error {
		return fn(boltTx{txn: txn})
	})
}

// Close implements kv.DB. Any view or update call will result in an error
// after this function is called.
func (db boltDB) Close() error {
	return db.bolt.Close()
}

// boltTx is the adapter of a bbolt transaction.
//
// - implements kv.WritableTx
type boltTx struct {
	txn *bbolt.Tx
}

// GetBucket implements kv.ReadableTx.
func (tx boltTx) GetBucket(name []byte) Bucket {
	bucket := tx.txn.Bucket(name)
	if bucket == nil {
		return nil
	}

	return boltBucket{bucket: bucket}
}

// GetBucketOrCreate implements kv.WritableTx.
func (tx boltTx) GetBucketOrCreate(name []byte) (Bucket, error) {
	bucket, err := tx.txn.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}

	return boltBucket{bucket: bucket}, nil
}

// OnCommit implements store.Transaction.
func (tx boltTx) OnCommit(fn func()) {
	tx.txn.OnCommit(fn)
}

// boltBucket is the adapter of a bbolt bucket to the kv.Bucket interface.
//
// - implements kv.Bucket
type boltBucket struct {
	bucket *bbolt.Bucket
}

// Get implements kv.Bucket.
func (b boltBucket) Get(key []byte) []byte {
	return b.bucket.Get(key)
}

// Set implements kv.Bucket.
func (b boltBucket) Set(key, value []byte) error {
	return b.bucket.Put(key, value)
}

// Delete implements kv.Bucket.
func (b boltBucket) Delete(key []byte) error {
	return b.bucket.Delete(key)
}
