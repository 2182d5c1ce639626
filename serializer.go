package sdc

import (
	"fmt"
	"io"
	"strings"
)

// Serializer builds an SDC document out of top-level entries. Use Add and
// AddNamed to insert entries, then MarshalBinary, AppendBinary or WriteTo to
// produce the bytes. Encoding does not modify the entry list and always
// produces the same bytes for the same document.
type Serializer struct {
	Flags       uint16
	CustomFlags uint16

	entries []Entry
}

func NewSerializer() *Serializer {
	return &Serializer{}
}

// Add appends a copy of e, keeping its own name (if any).
func (s *Serializer) Add(e Entry) {
	s.entries = append(s.entries, e.Clone())
}

// AddNamed appends a copy of e named name, discarding e's own name.
func (s *Serializer) AddNamed(e Entry, name string) {
	s.entries = append(s.entries, e.Clone().WithName(name))
}

func (s *Serializer) Len() int {
	return len(s.entries)
}

// Entries returns copies of the entries added so far.
func (s *Serializer) Entries() []Entry {
	return cloneArray(s.entries)
}

func (s *Serializer) Reset() {
	s.entries = nil
}

// AppendBinary appends the encoded document to buf. On error buf is returned
// unchanged.
func (s *Serializer) AppendBinary(buf []byte) ([]byte, error) {
	if err := s.validate(); err != nil {
		return buf, err
	}
	bb := bytesBuilder{buf}
	s.encode(&bb)
	return bb.Buf, nil
}

func (s *Serializer) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(nil)
}

// WriteTo encodes the document and writes it to w in a single Write call.
// Nothing is written if the document cannot be encoded.
func (s *Serializer) WriteTo(w io.Writer) (int64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	bb := acquireBuilder()
	defer releaseBuilder(bb)
	s.encode(bb)
	n, err := w.Write(bb.Buf)
	return int64(n), err
}

// Encode is WriteTo without the byte count.
func (s *Serializer) Encode(w io.Writer) error {
	_, err := s.WriteTo(w)
	return err
}

func (s *Serializer) encode(bb *bytesBuilder) {
	h := docHeader{
		Version:     Version,
		Flags:       s.Flags,
		CustomFlags: s.CustomFlags,
		Count:       uint32(len(s.entries)),
	}
	bb.EnsureExtra(docHeaderSize + len(s.entries)*entryHeaderSize)
	h.append(bb)
	for _, e := range s.entries {
		appendEntry(bb, e)
	}
}

// appendEntry writes the entry header, the name and the payload, recursing
// into arrays. The entry must have passed validateEntry.
func appendEntry(bb *bytesBuilder, e Entry) {
	h := entryHeader{Kind: e.Kind()}
	if e.hasName {
		h.Flags |= efNamed
		if len(e.name) > MaxShortNameLen {
			h.Flags |= efLongName
		}
	}
	switch v := e.val.(type) {
	case stringValue:
		h.Size = uint32(len(v))
	case bytesValue:
		h.Size = uint32(len(v))
	}

	h.append(bb)
	if e.hasName {
		bb.AppendString(e.name)
		bb.AppendByte(0)
	}

	switch v := e.val.(type) {
	case nil:
	case int32Value:
		bb.AppendUint32(uint32(v))
	case int64Value:
		bb.AppendUint64(uint64(v))
	case uint32Value:
		bb.AppendUint32(uint32(v))
	case uint64Value:
		bb.AppendUint64(uint64(v))
	case boolValue:
		if v {
			bb.AppendByte(1)
		} else {
			bb.AppendByte(0)
		}
	case stringValue:
		bb.AppendString(string(v))
	case bytesValue:
		bb.Buf = appendRaw(bb.Buf, v)
	case arrayValue:
		bb.AppendUint32(uint32(len(v)))
		for _, child := range v {
			appendEntry(bb, child)
		}
	default:
		panic(fmt.Errorf("unhandled payload %T", v))
	}
}

func (s *Serializer) validate() error {
	if uint64(len(s.entries)) > maxWireLen {
		return fmt.Errorf("%w: %d top-level entries", ErrTooLarge, len(s.entries))
	}
	for i, e := range s.entries {
		if err := validateEntry(e); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func validateEntry(e Entry) error {
	if e.hasName {
		if err := validateName(e.name); err != nil {
			return err
		}
	}
	if uint64(e.ContainerSize()) > maxWireLen {
		return fmt.Errorf("%w: %v of size %d", ErrTooLarge, e.Kind(), e.ContainerSize())
	}
	for i, child := range e.Items() {
		if err := validateEntry(child); err != nil {
			return fmt.Errorf("%s[%d]: %w", entryLabel(e), i, err)
		}
	}
	return nil
}

func validateName(name string) error {
	if len(name) > MaxNameLen {
		return nameErrf(name, "%d bytes exceeds the limit of %d", len(name), MaxNameLen)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nameErrf(name, "contains a zero byte")
	}
	return nil
}

func entryLabel(e Entry) string {
	if e.hasName {
		return truncName(e.name)
	}
	return e.Kind().String()
}
