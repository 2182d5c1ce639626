package sdc

import (
	"encoding/hex"
	"io"
	"strconv"
	"strings"
)

const (
	indentStep = "  "

	// dumpBytesLimit is how many bytes of a bytes payload are shown in hex.
	dumpBytesLimit = 32
)

// Dump writes an indented rendering of entries to w, one line per entry:
//
//	"greeting": string("hello")[5]
//	"nums": array[2]
//	  uint32(1)
//	  uint32(2)
func Dump(w io.Writer, entries ...Entry) error {
	var buf dumpBuilder
	for _, e := range entries {
		buf.entry(e, 0)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func DumpString(entries ...Entry) string {
	var buf dumpBuilder
	for _, e := range entries {
		buf.entry(e, 0)
	}
	return buf.String()
}

// Dump writes the decoded document tree to w.
func (r *Reader) Dump(w io.Writer) error {
	return Dump(w, r.entries...)
}

type dumpBuilder struct {
	strings.Builder
}

func (buf *dumpBuilder) entry(e Entry, depth int) {
	for range depth {
		buf.WriteString(indentStep)
	}
	buf.name(e)
	buf.value(e)
	buf.WriteByte('\n')
	for _, child := range e.Items() {
		buf.entry(child, depth+1)
	}
}

func (buf *dumpBuilder) name(e Entry) {
	if e.HasName() {
		buf.WriteString(strconv.Quote(e.Name()))
		buf.WriteString(": ")
	}
}

// value renders the kind-tagged value of e without its children.
func (buf *dumpBuilder) value(e Entry) {
	switch e.Kind() {
	case KindInt32:
		buf.tagged("int32", strconv.FormatInt(int64(must(e.AsInt32())), 10))
	case KindInt64:
		buf.tagged("int64", strconv.FormatInt(must(e.AsInt64()), 10))
	case KindUint32:
		buf.tagged("uint32", strconv.FormatUint(uint64(must(e.AsUint32())), 10))
	case KindUint64:
		buf.tagged("uint64", strconv.FormatUint(must(e.AsUint64()), 10))
	case KindBool:
		buf.WriteString(strconv.FormatBool(must(e.AsBool())))
	case KindString:
		buf.tagged("string", strconv.Quote(must(e.AsString())))
	case KindBytes:
		b := must(e.AsBytes())
		if len(b) > dumpBytesLimit {
			buf.tagged("bytes", hex.EncodeToString(b[:dumpBytesLimit])+"...")
		} else {
			buf.tagged("bytes", hex.EncodeToString(b))
		}
	case KindArray:
		buf.WriteString("array")
	default:
		buf.WriteString("null")
	}
	if e.Kind().IsContainer() {
		buf.WriteByte('[')
		buf.WriteString(strconv.Itoa(e.ContainerSize()))
		buf.WriteByte(']')
	}
}

func (buf *dumpBuilder) tagged(tag, v string) {
	buf.WriteString(tag)
	buf.WriteByte('(')
	buf.WriteString(v)
	buf.WriteByte(')')
}

// inline renders e and its children on a single line.
func (buf *dumpBuilder) inline(e Entry) {
	buf.name(e)
	buf.value(e)
	if e.Kind() != KindArray {
		return
	}
	buf.WriteString(" {")
	for i, child := range e.Items() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.inline(child)
	}
	buf.WriteByte('}')
}
