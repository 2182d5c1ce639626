package store

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/andreyvit/sdc"
)

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfSupportedMask = vfVer1
	vfDefault       = vfVer1

	minValueSize       = 1 + 8 + 1
	maxValueHeaderSize = binary.MaxVarintLen64*2 + 8
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

// value is a stored document: flags (uvarint), fingerprint (fixed 64-bit,
// big-endian), document size (uvarint), then the SDC document itself.
type value struct {
	Flags       valueFlags
	Fingerprint uint64
	Doc         []byte
}

func fingerprint(doc []byte) uint64 {
	return xxhash.Sum64(doc)
}

func encodeValue(buf []byte, doc []byte) []byte {
	buf = slices.Grow(buf, maxValueHeaderSize+len(doc))
	buf = binary.AppendUvarint(buf, uint64(vfDefault))
	buf = binary.BigEndian.AppendUint64(buf, fingerprint(doc))
	buf = binary.AppendUvarint(buf, uint64(len(doc)))
	return append(buf, doc...)
}

func (vle *value) decode(data []byte) error {
	orig := data
	if len(data) < minValueSize {
		return fmt.Errorf("%w: invalid value: at least %d bytes required, got %d", sdc.ErrFormat, minValueSize, len(data))
	}

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return fmt.Errorf("%w: invalid value: bad flags", sdc.ErrFormat)
	}
	if (v &^ uint64(vfSupportedMask)) != 0 {
		return fmt.Errorf("%w: invalid value: unsupported flags %x", sdc.ErrFormat, v)
	}
	vle.Flags, data = valueFlags(v), data[n:]
	if vle.Flags.ver() != vfVer1 {
		return fmt.Errorf("%w: invalid value: unsupported value format %d", sdc.ErrFormat, vle.Flags.ver())
	}

	if len(data) < 8 {
		return fmt.Errorf("%w: invalid value: truncated fingerprint", sdc.ErrFormat)
	}
	vle.Fingerprint, data = binary.BigEndian.Uint64(data), data[8:]

	size, n := binary.Uvarint(data)
	if n <= 0 {
		return fmt.Errorf("%w: invalid value: bad document size", sdc.ErrFormat)
	}
	data = data[n:]
	if uint64(len(data)) != size {
		return fmt.Errorf("%w: invalid value: got %d bytes for document, expected %d bytes (value is %d bytes)", sdc.ErrFormat, len(data), size, len(orig))
	}
	vle.Doc = data
	return nil
}
