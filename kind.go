package sdc

import "strconv"

// Kind is the active variant of an Entry. The numeric values are part of the
// wire format.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindBool
	KindString
	KindArray
	KindBytes

	kindCount = iota
)

var kindNames = [kindCount]string{
	KindNull:   "null",
	KindInt32:  "int32",
	KindInt64:  "int64",
	KindUint32: "uint32",
	KindUint64: "uint64",
	KindBool:   "bool",
	KindString: "string",
	KindArray:  "array",
	KindBytes:  "bytes",
}

// Kinds lists every valid kind in tag order.
var Kinds = []Kind{KindNull, KindInt32, KindInt64, KindUint32, KindUint64, KindBool, KindString, KindArray, KindBytes}

func (k Kind) Valid() bool {
	return int(k) < kindCount
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String for valid kinds.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindNull, false
}

// IsContainer reports whether ContainerSize is meaningful for k.
func (k Kind) IsContainer() bool {
	return k == KindString || k == KindBytes || k == KindArray
}
