package sdc

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
)

type ReaderOptions struct {
	// MaxNameLen bounds the zero-terminator scan of entry names. Defaults to
	// MaxNameLen.
	MaxNameLen int

	// MaxDepth bounds array nesting. Defaults to DefaultMaxDepth.
	MaxDepth int

	Logger *slog.Logger
}

// Reader decodes an SDC document and gives access to its top-level entries.
// The zero Reader is ready to use with default options.
type Reader struct {
	opts    ReaderOptions
	info    docHeader
	entries []Entry
	names   map[string]int
}

func NewReader(opts ReaderOptions) *Reader {
	return &Reader{opts: opts}
}

// Decode parses a complete document from data. On success it replaces any
// previously decoded document; on failure the reader is left unchanged.
// Decoded entries never alias data.
func (r *Reader) Decode(data []byte) error {
	dec := decoder{
		d:          makeByteDecoder(data),
		maxNameLen: r.opts.MaxNameLen,
		maxDepth:   r.opts.MaxDepth,
	}
	if dec.maxNameLen <= 0 {
		dec.maxNameLen = MaxNameLen
	}
	if dec.maxDepth <= 0 {
		dec.maxDepth = DefaultMaxDepth
	}

	var h docHeader
	if err := h.decode(&dec.d); err != nil {
		return err
	}
	entries, err := dec.entries(int64(h.Count), 0)
	if err != nil {
		return err
	}
	if n := dec.d.Remaining(); n != 0 {
		return dataErrf(data, dec.d.Off(), nil, "%d trailing bytes after %d entries", n, h.Count)
	}

	r.load(h, entries)
	if log := r.logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("sdc: decoded", "entries", len(entries), "flags", h.Flags, "bytes", len(data), hexAttr("head", data[:min(len(data), 32)]))
	}
	return nil
}

// load replaces the document and indexes first occurrences of names.
func (r *Reader) load(h docHeader, entries []Entry) {
	r.info = h
	r.entries = entries
	r.names = make(map[string]int)
	for i, e := range entries {
		if !e.hasName {
			continue
		}
		if _, dup := r.names[e.name]; !dup {
			r.names[e.name] = i
		}
	}
}

func (r *Reader) UnmarshalBinary(data []byte) error {
	return r.Decode(data)
}

// ReadFrom reads rd to EOF and decodes the result as a single document.
func (r *Reader) ReadFrom(rd io.Reader) (int64, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return int64(len(data)), err
	}
	return int64(len(data)), r.Decode(data)
}

func (r *Reader) logger() *slog.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return discardLogger
}

// Len returns the number of top-level entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

func (r *Reader) Version() int {
	return int(r.info.Version)
}

func (r *Reader) Flags() uint16 {
	return r.info.Flags
}

func (r *Reader) CustomFlags() uint16 {
	return r.info.CustomFlags
}

// Entries returns copies of the top-level entries.
func (r *Reader) Entries() []Entry {
	return cloneArray(r.entries)
}

func (r *Reader) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range r.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Serializer returns a serializer holding a copy of the decoded document,
// including its flags.
func (r *Reader) Serializer() *Serializer {
	return &Serializer{
		Flags:       r.info.Flags,
		CustomFlags: r.info.CustomFlags,
		entries:     cloneArray(r.entries),
	}
}

// AsEntry returns the whole document as an unnamed array entry.
func (r *Reader) AsEntry() Entry {
	return Array(r.entries...)
}

func (r *Reader) At(i int) (Entry, error) {
	if i < 0 || i >= len(r.entries) {
		return Entry{}, &IndexError{Index: i, Len: len(r.entries)}
	}
	return r.entries[i], nil
}

// Named returns the first top-level entry called name.
func (r *Reader) Named(name string) (Entry, error) {
	if i, ok := r.names[name]; ok {
		return r.entries[i], nil
	}
	return Entry{}, &NotFoundError{Name: name}
}

func (r *Reader) HasNamed(name string) bool {
	_, err := r.Named(name)
	return err == nil
}

type decoder struct {
	d          byteDecoder
	maxNameLen int
	maxDepth   int
}

func (dec *decoder) entries(count int64, depth int) ([]Entry, error) {
	// every entry takes at least a header, so larger counts cannot be satisfied
	if count > int64(dec.d.Remaining()/entryHeaderSize) {
		return nil, dataErrf(dec.d.Orig, dec.d.Off(), nil, "%d entries declared, only %d bytes remaining", count, dec.d.Remaining())
	}
	result := make([]Entry, 0, count)
	for range count {
		e, err := dec.entry(depth)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (dec *decoder) entry(depth int) (Entry, error) {
	var h entryHeader
	if err := h.decode(&dec.d); err != nil {
		return Entry{}, err
	}

	var e Entry
	if h.Flags&efNamed != 0 {
		off := dec.d.Off()
		name, err := dec.d.CString(dec.maxNameLen)
		if err != nil {
			return Entry{}, err
		}
		if (len(name) > MaxShortNameLen) != (h.Flags&efLongName != 0) {
			return Entry{}, dataErrf(dec.d.Orig, off, nil, "long name flag does not match name length %d", len(name))
		}
		e.SetName(name)
	} else if h.Flags&efLongName != 0 {
		return Entry{}, dataErrf(dec.d.Orig, dec.d.Off(), nil, "long name flag on unnamed entry")
	}

	off := dec.d.Off()
	switch h.Kind {
	case KindNull:
	case KindInt32:
		v, err := dec.d.Uint32()
		if err != nil {
			return Entry{}, err
		}
		e.val = int32Value(int32(v))
	case KindInt64:
		v, err := dec.d.Uint64()
		if err != nil {
			return Entry{}, err
		}
		e.val = int64Value(int64(v))
	case KindUint32:
		v, err := dec.d.Uint32()
		if err != nil {
			return Entry{}, err
		}
		e.val = uint32Value(v)
	case KindUint64:
		v, err := dec.d.Uint64()
		if err != nil {
			return Entry{}, err
		}
		e.val = uint64Value(v)
	case KindBool:
		v, err := dec.d.Uint8()
		if err != nil {
			return Entry{}, err
		}
		if v > 1 {
			return Entry{}, dataErrf(dec.d.Orig, off, nil, "invalid bool byte %x", v)
		}
		e.val = boolValue(v == 1)
	case KindString:
		raw, err := dec.sized(h.Size)
		if err != nil {
			return Entry{}, err
		}
		e.val = stringValue(raw)
	case KindBytes:
		raw, err := dec.sized(h.Size)
		if err != nil {
			return Entry{}, err
		}
		e.val = bytesValue(cloneBytes(raw))
	case KindArray:
		if depth >= dec.maxDepth {
			return Entry{}, dataErrf(dec.d.Orig, off, nil, "arrays nested deeper than %d", dec.maxDepth)
		}
		n, err := dec.d.Uint32()
		if err != nil {
			return Entry{}, err
		}
		children, err := dec.entries(int64(n), depth+1)
		if err != nil {
			return Entry{}, err
		}
		e.val = arrayValue(children)
	default:
		panic(fmt.Errorf("unhandled kind %v", h.Kind))
	}
	return e, nil
}

func (dec *decoder) sized(size uint32) ([]byte, error) {
	if uint64(size) > math.MaxInt {
		return nil, dataErrf(dec.d.Orig, dec.d.Off(), nil, "size %d does not fit into int", size)
	}
	return dec.d.Raw(int(size))
}
