package store

import "errors"

var errTxNotWritable = errors.New("tx not writable")

// storage is a key-value backend (Bolt or in-memory).
type storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (storageTx, error)
	// Close closes the storage.
	Close() error
}

type storageTx interface {
	// Bucket returns the named bucket, or nil if it doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (storageBucket, error)

	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error
}

// storageBucket is a sorted key-value collection. Returned slices are only
// valid until the end of the transaction.
type storageBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	Put(key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key []byte) error

	Cursor() storageCursor
}

type storageCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
}
