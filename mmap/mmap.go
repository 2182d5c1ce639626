// Package mmap maps SDC files into memory so that large documents can be
// decoded and dumped without copying them through a read buffer first.
package mmap

import (
	"errors"
	"fmt"
	"os"
)

type Options uint

const (
	// Writable maps the file for writing (otherwise, it's mapped read-only).
	Writable Options = 1 << 0

	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 1

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 2

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault Options = 1 << 3
)

var ErrTooLarge = errors.New("file too large to map")

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Map maps the first size bytes of f. The slice must be released with Unmap.
func Map(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap %s: invalid size %d", f.Name(), size)
	}
	if uint64(size) > MaxSize {
		return nil, fmt.Errorf("mmap %s: %w (%d bytes)", f.Name(), ErrTooLarge, size)
	}
	return mmap(f, size, opt)
}

// Unmap unmaps the given slice from memory. The slice must have been returned
// by Map.
func Unmap(b []byte) error {
	return munmap(b)
}

// File is an open file together with its mapping.
type File struct {
	f    *os.File
	data []byte
}

// Open maps an existing file. Empty files are not mapped, and Bytes returns
// an empty slice for them.
func Open(path string, opt Options) (*File, error) {
	flag := os.O_RDONLY
	if opt.Has(Writable) {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() > MaxSize {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w (%d bytes)", path, ErrTooLarge, fi.Size())
	}
	m := &File{f: f}
	if fi.Size() > 0 {
		m.data, err = Map(f, int(fi.Size()), opt)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	return m, nil
}

// Create creates (or truncates) path to exactly size bytes and maps it for
// writing.
func Create(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, err
	}
	m := &File{f: f}
	if size > 0 {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, err
		}
		m.data, err = Map(f, size, Writable)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	return m, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Sync makes the mapped contents durable, see Fdatasync.
func (m *File) Sync() error {
	return Fdatasync(m.f, m.data)
}

func (m *File) Close() error {
	var err error
	if m.data != nil {
		err = Unmap(m.data)
		m.data = nil
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
