package sdc

import (
	"bytes"
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	r := decode(t, encode(t,
		Int32(42),
		String("hello").WithName("greeting"),
		Array(Uint32(1), Array(Bool(true), Null()).WithName("inner"), Bytes([]byte{0xCA, 0xFE})).WithName("nums"),
		Int64(-5),
		Uint64(7).WithName(""),
	))

	var buf bytes.Buffer
	if err := r.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	a := buf.String()
	e := strings.Join([]string{
		`int32(42)`,
		`"greeting": string("hello")[5]`,
		`"nums": array[3]`,
		`  uint32(1)`,
		`  "inner": array[2]`,
		`    true`,
		`    null`,
		`  bytes(cafe)[2]`,
		`int64(-5)`,
		`"": uint64(7)`,
		``,
	}, "\n")
	if a != e {
		t.Fatalf("** got:\n%v\n\nwanted:\n%v", a, e)
	}
	if s := DumpString(r.Entries()...); s != e {
		t.Fatalf("DumpString differs from Dump:\n%v", s)
	}
}

func TestDump_LongBytes(t *testing.T) {
	a := DumpString(Bytes(bytes.Repeat([]byte{0xAB}, 40)))
	e := "bytes(" + strings.Repeat("ab", dumpBytesLimit) + "...)[40]\n"
	if a != e {
		t.Fatalf("** got %q, wanted %q", a, e)
	}
}
