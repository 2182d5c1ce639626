package sdc

import (
	"bytes"
	"encoding/binary"
	"io"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

func appendString(buf []byte, v string) []byte {
	n := len(v)
	off, buf := grow(buf, n)
	copy(buf[off:], v)
	return buf
}

// bytesBuilder accumulates encoder output. All fixed-width values are
// little-endian.
type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) EnsureExtra(n int) {
	bb.Buf = ensureCapacity(bb.Buf, len(bb.Buf)+n)
}

func (bb *bytesBuilder) Grow(n int) (off int) {
	off, bb.Buf = grow(bb.Buf, n)
	return
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = appendRaw(bb.Buf, b)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.AppendByte(v)
	return nil
}

func (bb *bytesBuilder) AppendByte(v byte) {
	off := bb.Grow(1)
	bb.Buf[off] = v
}

func (bb *bytesBuilder) AppendString(v string) {
	bb.Buf = appendString(bb.Buf, v)
}

func (bb *bytesBuilder) AppendUint16(v uint16) {
	bb.Buf = binary.LittleEndian.AppendUint16(bb.Buf, v)
}

func (bb *bytesBuilder) AppendUint32(v uint32) {
	bb.Buf = binary.LittleEndian.AppendUint32(bb.Buf, v)
}

func (bb *bytesBuilder) AppendUint64(v uint64) {
	bb.Buf = binary.LittleEndian.AppendUint64(bb.Buf, v)
}

// byteDecoder consumes a byte slice front to back. Every read checks the
// remaining length, so truncated input is always reported rather than
// zero-filled.
type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Remaining() int {
	return len(d.Buf)
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if n < 0 || len(d.Buf) < n {
		return nil, dataErrf(d.Orig, d.Off(), io.ErrUnexpectedEOF, "not enough data: %d bytes remaining, %d wanted", len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Uint8() (uint8, error) {
	b, err := d.Raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *byteDecoder) Uint16() (uint16, error) {
	b, err := d.Raw(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *byteDecoder) Uint32() (uint32, error) {
	b, err := d.Raw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *byteDecoder) Uint64() (uint64, error) {
	b, err := d.Raw(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// CString reads bytes up to a zero terminator, consuming the terminator too.
// At most max bytes are scanned before the terminator.
func (d *byteDecoder) CString(max int) (string, error) {
	scan := d.Buf
	if len(scan) > max+1 {
		scan = scan[:max+1]
	}
	i := bytes.IndexByte(scan, 0)
	if i < 0 {
		if len(scan) > max {
			return "", dataErrf(d.Orig, d.Off(), nil, "name exceeds %d bytes", max)
		}
		return "", dataErrf(d.Orig, d.Off(), io.ErrUnexpectedEOF, "unterminated name")
	}
	s := string(d.Buf[:i])
	d.Buf = d.Buf[i+1:]
	return s, nil
}
