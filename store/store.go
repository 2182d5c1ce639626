// Package store keeps SDC documents under string keys in a Bolt database (or in
// memory, for tests).
//
// Each stored value is a small header followed by the encoded document:
//
//  1. Flags (uvarint), currently just the value format version.
//  2. Fingerprint (64-bit xxhash of the document, big-endian).
//  3. Document size (uvarint).
//
// The fingerprint lets Put skip rewriting a document whose bytes did not
// change; it is not an integrity check.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/andreyvit/sdc"
)

const DefaultBucket = "documents"

var ErrEmptyKey = errors.New("empty document key")

type Options struct {
	// Bucket holds the documents. Defaults to DefaultBucket.
	Bucket string

	// Timeout is how long Open waits for the Bolt file lock. Zero waits
	// forever.
	Timeout time.Duration

	ReadOnly bool

	// Reader configures decoding in Get.
	Reader sdc.ReaderOptions

	Logger *slog.Logger
}

type Store struct {
	s      storage
	bucket string
	ropts  sdc.ReaderOptions
	logger *slog.Logger
}

// Open opens (creating if necessary) a Bolt database file.
func Open(path string, opts Options) (*Store, error) {
	mode := os.FileMode(0o666)
	bdb, err := bbolt.Open(path, mode, &bbolt.Options{
		Timeout:  opts.Timeout,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	st := newStore(newBoltStorage(bdb), opts)
	st.logger.Debug("store: opened", "path", path, "bucket", st.bucket, "readonly", opts.ReadOnly)
	return st, nil
}

// OpenMemory returns a store that lives in memory until closed.
func OpenMemory(opts Options) *Store {
	return newStore(newMemStorage(), opts)
}

func newStore(s storage, opts Options) *Store {
	st := &Store{
		s:      s,
		bucket: opts.Bucket,
		ropts:  opts.Reader,
		logger: opts.Logger,
	}
	if st.bucket == "" {
		st.bucket = DefaultBucket
	}
	if st.logger == nil {
		st.logger = slog.New(slog.DiscardHandler)
	}
	if st.ropts.Logger == nil {
		st.ropts.Logger = st.logger
	}
	return st
}

func (st *Store) Close() error {
	return st.s.Close()
}

// Put encodes doc and stores it under key. It reports whether the stored bytes
// changed; an identical document is not rewritten.
func (st *Store) Put(key string, doc *sdc.Serializer) (changed bool, err error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	data, err := doc.MarshalBinary()
	if err != nil {
		return false, fmt.Errorf("store: encoding %q: %w", key, err)
	}

	err = st.update(func(tx storageTx) error {
		b, err := tx.CreateBucket(st.bucket)
		if err != nil {
			return err
		}
		if old := b.Get([]byte(key)); old != nil {
			var vle value
			if err := vle.decode(old); err == nil && vle.Fingerprint == fingerprint(data) && bytes.Equal(vle.Doc, data) {
				return nil
			}
		}
		changed = true
		return b.Put([]byte(key), encodeValue(nil, data))
	})
	if err != nil {
		return false, err
	}
	st.logger.Debug("store: put", "key", key, "bytes", len(data), "changed", changed)
	return changed, nil
}

// PutEntries stores a document made of entries, in order.
func (st *Store) PutEntries(key string, entries ...sdc.Entry) (bool, error) {
	var s sdc.Serializer
	for _, e := range entries {
		s.Add(e)
	}
	return st.Put(key, &s)
}

// Get decodes the document stored under key. A missing key is an
// sdc.ErrNotFound.
func (st *Store) Get(key string) (*sdc.Reader, error) {
	r := sdc.NewReader(st.ropts)
	err := st.view(func(tx storageTx) error {
		vle, err := st.lookup(tx, key)
		if err != nil {
			return err
		}
		if err := r.Decode(vle.Doc); err != nil {
			return fmt.Errorf("store: document %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Fingerprint returns the content hash recorded for key.
func (st *Store) Fingerprint(key string) (uint64, error) {
	var fp uint64
	err := st.view(func(tx storageTx) error {
		vle, err := st.lookup(tx, key)
		if err != nil {
			return err
		}
		fp = vle.Fingerprint
		return nil
	})
	return fp, err
}

// Delete removes key, reporting whether it existed.
func (st *Store) Delete(key string) (existed bool, err error) {
	err = st.update(func(tx storageTx) error {
		b := tx.Bucket(st.bucket)
		if b == nil || b.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(key))
	})
	return existed, err
}

// Keys returns all document keys in byte order.
func (st *Store) Keys() ([]string, error) {
	var keys []string
	err := st.view(func(tx storageTx) error {
		b := tx.Bucket(st.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (st *Store) lookup(tx storageTx, key string) (value, error) {
	var vle value
	b := tx.Bucket(st.bucket)
	var raw []byte
	if b != nil {
		raw = b.Get([]byte(key))
	}
	if raw == nil {
		return vle, fmt.Errorf("store: %w: document %q", sdc.ErrNotFound, key)
	}
	if err := vle.decode(raw); err != nil {
		return vle, fmt.Errorf("store: document %q: %w", key, err)
	}
	return vle, nil
}

func (st *Store) view(f func(tx storageTx) error) error {
	tx, err := st.s.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

func (st *Store) update(f func(tx storageTx) error) error {
	tx, err := st.s.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}
