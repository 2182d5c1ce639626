package sdc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrTypeMismatch    = errors.New("entry has different kind")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrFormat          = errors.New("invalid SDC data")
	ErrVersion         = errors.New("unsupported SDC version")
	ErrNotFound        = errors.New("no matching named entry")

	// ErrInvalidName is returned by the encoder for names that cannot be
	// represented on the wire (too long or containing a zero byte).
	ErrInvalidName = errors.New("invalid entry name")

	// ErrTooLarge is returned by the encoder when a length does not fit into
	// its 32-bit wire field.
	ErrTooLarge = errors.New("value too large for SDC")
)

type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: wanted %v, got %v", ErrTypeMismatch.Error(), e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

func mismatch(want, got Kind) error {
	return &TypeMismatchError{Want: want, Got: got}
}

type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %d with length %d", ErrIndexOutOfRange.Error(), e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return ErrNotFound.Error() + ": " + strconv.Quote(e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

type VersionError struct {
	Got  int
	Want int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s %d, reader supports %d", ErrVersion.Error(), e.Got, e.Want)
}

func (e *VersionError) Unwrap() error {
	return ErrVersion
}

const (
	dataErrHeadLen = 64
	dataErrTailLen = 32
)

// DataError describes malformed input. It always matches ErrFormat, and
// additionally unwraps to Err when set.
//
// The error keeps its own copy of an excerpt of the input (Head, and Tail for
// longer inputs), so it stays valid after the input buffer is released.
type DataError struct {
	Len  int
	Head []byte
	Tail []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	e := &DataError{Len: len(data), Off: off, Err: err, Msg: fmt.Sprintf(format, args...)}
	if n := len(data); n <= dataErrHeadLen+dataErrTailLen {
		e.Head = bytes.Clone(data)
	} else {
		e.Head = bytes.Clone(data[:dataErrHeadLen])
		e.Tail = bytes.Clone(data[n-dataErrTailLen:])
	}
	return e
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Is(target error) bool {
	return target == ErrFormat
}

func (e *DataError) Error() string {
	excerpt := hex.EncodeToString(e.Head)
	if e.Tail != nil {
		excerpt += "..." + hex.EncodeToString(e.Tail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s at %d: %v: (%d) %s", e.Msg, e.Off, e.Err, e.Len, excerpt)
	} else {
		return fmt.Sprintf("%s at %d: (%d) %s", e.Msg, e.Off, e.Len, excerpt)
	}
}

func nameErrf(name string, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidName, truncName(name), fmt.Sprintf(format, args...))
}

func truncName(name string) string {
	const maxShown = 40
	if len(name) > maxShown {
		return strconv.Quote(name[:maxShown]) + "..."
	}
	return strconv.Quote(name)
}
