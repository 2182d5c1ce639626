package sdc

import (
	"bytes"
	"iter"
	"slices"
)

// Entry is a single, optionally named value of one of the nine kinds. An array
// is an entry too, holding child entries.
//
// The zero Entry is an unnamed null. Payloads are never modified in place
// (setters replace them, getters return copies of byte and array payloads), so
// assigning an Entry is a value copy.
type Entry struct {
	name    string
	hasName bool
	val     payload
}

// payload is implemented by the types below only; a nil payload is null.
type payload interface {
	kind() Kind
}

type (
	int32Value  int32
	int64Value  int64
	uint32Value uint32
	uint64Value uint64
	boolValue   bool
	stringValue string
	bytesValue  []byte
	arrayValue  []Entry
)

func (int32Value) kind() Kind { return KindInt32 }
func (int64Value) kind() Kind { return KindInt64 }
func (uint32Value) kind() Kind { return KindUint32 }
func (uint64Value) kind() Kind { return KindUint64 }
func (boolValue) kind() Kind { return KindBool }
func (stringValue) kind() Kind { return KindString }
func (bytesValue) kind() Kind { return KindBytes }
func (arrayValue) kind() Kind { return KindArray }

func Null() Entry { return Entry{} }
func Int32(v int32) Entry { return Entry{val: int32Value(v)} }
func Int64(v int64) Entry { return Entry{val: int64Value(v)} }
func Uint32(v uint32) Entry { return Entry{val: uint32Value(v)} }
func Uint64(v uint64) Entry { return Entry{val: uint64Value(v)} }
func Bool(v bool) Entry { return Entry{val: boolValue(v)} }
func String[S ~string](v S) Entry {
	return Entry{val: stringValue(v)}
}

// Bytes returns a bytes entry holding a copy of v.
func Bytes[B ~[]byte](v B) Entry {
	return Entry{val: bytesValue(cloneBytes(v))}
}

// Array returns an array entry holding deep copies of items.
func Array(items ...Entry) Entry {
	return Entry{val: cloneArray(items)}
}

// ArrayOf collects seq into an array entry.
func ArrayOf(seq iter.Seq[Entry]) Entry {
	var items arrayValue
	for e := range seq {
		items = append(items, e.Clone())
	}
	if items == nil {
		items = arrayValue{}
	}
	return Entry{val: items}
}

func (e Entry) Kind() Kind {
	if e.val == nil {
		return KindNull
	}
	return e.val.kind()
}

func (e Entry) IsNull() bool {
	return e.val == nil
}

func (e *Entry) SetNull() { e.val = nil }
func (e *Entry) SetInt32(v int32) { e.val = int32Value(v) }
func (e *Entry) SetInt64(v int64) { e.val = int64Value(v) }
func (e *Entry) SetUint32(v uint32) { e.val = uint32Value(v) }
func (e *Entry) SetUint64(v uint64) { e.val = uint64Value(v) }
func (e *Entry) SetBool(v bool) { e.val = boolValue(v) }
func (e *Entry) SetString(v string) { e.val = stringValue(v) }
func (e *Entry) SetBytes(v []byte) { e.val = bytesValue(cloneBytes(v)) }

func (e *Entry) SetArray(items []Entry) {
	e.val = cloneArray(items)
}

func (e Entry) AsInt32() (int32, error) {
	if v, ok := e.val.(int32Value); ok {
		return int32(v), nil
	}
	return 0, mismatch(KindInt32, e.Kind())
}

func (e Entry) AsInt64() (int64, error) {
	if v, ok := e.val.(int64Value); ok {
		return int64(v), nil
	}
	return 0, mismatch(KindInt64, e.Kind())
}

func (e Entry) AsUint32() (uint32, error) {
	if v, ok := e.val.(uint32Value); ok {
		return uint32(v), nil
	}
	return 0, mismatch(KindUint32, e.Kind())
}

func (e Entry) AsUint64() (uint64, error) {
	if v, ok := e.val.(uint64Value); ok {
		return uint64(v), nil
	}
	return 0, mismatch(KindUint64, e.Kind())
}

func (e Entry) AsBool() (bool, error) {
	if v, ok := e.val.(boolValue); ok {
		return bool(v), nil
	}
	return false, mismatch(KindBool, e.Kind())
}

func (e Entry) AsString() (string, error) {
	if v, ok := e.val.(stringValue); ok {
		return string(v), nil
	}
	return "", mismatch(KindString, e.Kind())
}

// AsBytes returns a copy of the payload of a bytes entry.
func (e Entry) AsBytes() ([]byte, error) {
	if v, ok := e.val.(bytesValue); ok {
		return cloneBytes(v), nil
	}
	return nil, mismatch(KindBytes, e.Kind())
}

// AsArray returns deep copies of the children of an array entry.
func (e Entry) AsArray() ([]Entry, error) {
	if v, ok := e.val.(arrayValue); ok {
		return []Entry(cloneArray(v)), nil
	}
	return nil, mismatch(KindArray, e.Kind())
}

// ContainerSize returns the byte count of a string or bytes entry, the child
// count of an array entry, and 0 for every other kind.
func (e Entry) ContainerSize() int {
	switch v := e.val.(type) {
	case stringValue:
		return len(v)
	case bytesValue:
		return len(v)
	case arrayValue:
		return len(v)
	default:
		return 0
	}
}

// Index returns the i-th child of an array entry.
func (e Entry) Index(i int) (Entry, error) {
	v, ok := e.val.(arrayValue)
	if !ok {
		return Entry{}, mismatch(KindArray, e.Kind())
	}
	if i < 0 || i >= len(v) {
		return Entry{}, &IndexError{Index: i, Len: len(v)}
	}
	return v[i], nil
}

// Items iterates over the children of an array entry. It yields nothing for
// other kinds.
func (e Entry) Items() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		v, _ := e.val.(arrayValue)
		for i, child := range v {
			if !yield(i, child) {
				return
			}
		}
	}
}

func (e Entry) Name() string {
	return e.name
}

func (e Entry) HasName() bool {
	return e.hasName
}

// SetName names the entry. An empty name is still a name.
func (e *Entry) SetName(name string) {
	e.name, e.hasName = name, true
}

func (e *Entry) ClearName() {
	e.name, e.hasName = "", false
}

func (e Entry) WithName(name string) Entry {
	e.SetName(name)
	return e
}

func (e Entry) WithoutName() Entry {
	e.ClearName()
	return e
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	switch v := e.val.(type) {
	case bytesValue:
		e.val = bytesValue(cloneBytes(v))
	case arrayValue:
		e.val = cloneArray(v)
	}
	return e
}

// Equal reports whether e and o have the same kind, name presence, name and
// payload, comparing array children recursively.
func (e Entry) Equal(o Entry) bool {
	if e.hasName != o.hasName || e.name != o.name || e.Kind() != o.Kind() {
		return false
	}
	switch v := e.val.(type) {
	case nil:
		return true
	case bytesValue:
		return bytes.Equal(v, o.val.(bytesValue))
	case arrayValue:
		return slices.EqualFunc(v, o.val.(arrayValue), Entry.Equal)
	default:
		return e.val == o.val
	}
}

// String renders e and its children on one line, e.g.
// `"nums": array[2] {uint32(1), uint32(2)}`.
func (e Entry) String() string {
	var buf dumpBuilder
	buf.inline(e)
	return buf.String()
}

func cloneBytes(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return bytes.Clone(v)
}

func cloneArray(items []Entry) arrayValue {
	result := make(arrayValue, len(items))
	for i, e := range items {
		result[i] = e.Clone()
	}
	return result
}
