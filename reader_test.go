package sdc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func encode(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var s Serializer
	for _, e := range entries {
		s.Add(e)
	}
	data, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return data
}

func decode(t testing.TB, data []byte) *Reader {
	t.Helper()
	var r Reader
	if err := r.Decode(data); err != nil {
		t.Fatalf("Decode(%x): %v", data, err)
	}
	return &r
}

func richTree() []Entry {
	return []Entry{
		Int32(-42),
		Int64(-1 << 60).WithName("big"),
		Uint32(0xFFFFFFFF),
		Uint64(0xFFFFFFFFFFFFFFFF).WithName(strings.Repeat("long", 20)),
		Bool(true),
		Bool(false).WithName(""),
		Null().WithName("nothing"),
		Null(),
		String(""),
		String("héllo\x00world").WithName("s"),
		Bytes([]byte{}),
		Bytes([]byte{0, 1, 2, 0xFF}).WithName("raw"),
		Array(),
		Array(
			Int32(1),
			Array(
				String("deep").WithName("d2"),
				Array(
					Array(Uint64(4).WithName("d4"), Bytes([]byte("x"))),
					Array(),
				).WithName("d3"),
			),
			Null().WithName("sibling"),
		).WithName("tree"),
	}
}

func TestReader_RoundTrip(t *testing.T) {
	tree := richTree()
	r := decode(t, encode(t, tree...))
	if diff := cmp.Diff(tree, r.Entries()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if a := r.Len(); a != len(tree) {
		t.Fatalf("Len() = %d, wanted %d", a, len(tree))
	}
	if r.Version() != Version {
		t.Fatalf("Version() = %d, wanted %d", r.Version(), Version)
	}
	if !r.AsEntry().Equal(Array(tree...)) {
		t.Fatalf("AsEntry() = %v", r.AsEntry())
	}
}

func TestReader_RoundTripEachKind(t *testing.T) {
	for _, e := range sampleOfEachKind() {
		for _, named := range []Entry{e, e.WithName("n")} {
			r := decode(t, encode(t, named))
			got := must(r.At(0))
			if !got.Equal(named) {
				t.Errorf("** round trip of %v = %v", named, got)
			}
		}
	}
}

func TestReader_Example(t *testing.T) {
	var s Serializer
	s.Add(Int32(42))
	s.AddNamed(String("hello"), "greeting")
	s.AddNamed(Array(Uint32(1), Uint32(2), Uint32(3)), "nums")

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	var r Reader
	if _, err := r.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, wanted 3", r.Len())
	}
	greeting := must(r.Named("greeting"))
	if s := must(greeting.AsString()); s != "hello" {
		t.Fatalf("greeting = %q, wanted hello", s)
	}
	nums := must(r.Named("nums"))
	if nums.ContainerSize() != 3 {
		t.Fatalf("nums.ContainerSize() = %d, wanted 3", nums.ContainerSize())
	}
	for i := range 3 {
		v := must(must(nums.Index(i)).AsUint32())
		if v != uint32(i+1) {
			t.Fatalf("nums[%d] = %d, wanted %d", i, v, i+1)
		}
	}
	if v := must(must(r.At(0)).AsInt32()); v != 42 {
		t.Fatalf("[0] = %d, wanted 42", v)
	}
}

func TestReader_NamedFirstMatch(t *testing.T) {
	r := decode(t, encode(t,
		Int32(1),
		Int32(2).WithName("x"),
		Array(Int32(9).WithName("nested")),
		Int32(3).WithName("x"),
	))
	if v := must(must(r.Named("x")).AsInt32()); v != 2 {
		t.Fatalf(`Named("x") = %d, wanted first match 2`, v)
	}
	if !r.HasNamed("x") {
		t.Fatalf(`HasNamed("x") = false`)
	}
	if r.HasNamed("y") || r.HasNamed("nested") || r.HasNamed("") {
		t.Fatalf("HasNamed found a missing name")
	}
	_, err := r.Named("y")
	var nfe *NotFoundError
	if !errors.Is(err, ErrNotFound) || !errors.As(err, &nfe) || nfe.Name != "y" {
		t.Fatalf(`Named("y") err = %v, wanted NotFoundError{y}`, err)
	}
}

func TestReader_At(t *testing.T) {
	r := decode(t, encode(t, Int32(1), Int32(2)))
	if v := must(must(r.At(1)).AsInt32()); v != 2 {
		t.Fatalf("At(1) = %d", v)
	}
	for _, i := range []int{-1, 2} {
		if _, err := r.At(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("At(%d) err = %v, wanted ErrIndexOutOfRange", i, err)
		}
	}
	var zero Reader
	if _, err := zero.At(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("zero Reader At(0) err = %v", err)
	}
	if zero.HasNamed("x") {
		t.Fatalf("zero Reader HasNamed = true")
	}
}

func TestReader_VersionGate(t *testing.T) {
	good := encode(t, Int32(1).WithName("a"))
	for _, ver := range []byte{0, Version + 1, 0xFF} {
		data := bytes.Clone(good)
		data[len(Magic)] = ver

		r := decode(t, encode(t, String("previous")))
		err := r.Decode(data)
		var ve *VersionError
		if !errors.Is(err, ErrVersion) || !errors.As(err, &ve) || ve.Got != int(ver) || ve.Want != Version {
			t.Fatalf("version %d: err = %v, wanted VersionError", ver, err)
		}
		if errors.Is(err, ErrFormat) {
			t.Fatalf("version error also matches ErrFormat")
		}
		if r.Len() != 1 || r.HasNamed("a") {
			t.Fatalf("version %d: reader state changed on failure", ver)
		}
	}
}

func TestReader_MagicGate(t *testing.T) {
	good := encode(t, Int32(1))
	for i := range len(Magic) {
		data := bytes.Clone(good)
		data[i] ^= 0xFF
		var r Reader
		err := r.Decode(data)
		var de *DataError
		if !errors.Is(err, ErrFormat) || !errors.As(err, &de) || de.Off != 0 {
			t.Fatalf("magic byte %d: err = %v, wanted DataError at 0", i, err)
		}
		if r.Len() != 0 {
			t.Fatalf("entries read despite bad magic")
		}
	}
	for _, data := range [][]byte{nil, []byte("SD"), []byte("XYZ\x01")} {
		var r Reader
		if err := r.Decode(data); !errors.Is(err, ErrFormat) {
			t.Fatalf("Decode(%q) err = %v, wanted ErrFormat", data, err)
		}
	}
}

func TestReader_Truncated(t *testing.T) {
	data := encode(t, richTree()...)
	for n := 0; n < len(data); n++ {
		var r Reader
		err := r.Decode(data[:n])
		if !errors.Is(err, ErrFormat) {
			t.Fatalf("Decode(first %d of %d bytes) err = %v, wanted ErrFormat", n, len(data), err)
		}
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"unknown kind", "534443 01 0000 0000 01000000  09 00 0000 00000000"},
		{"unknown flags", "534443 01 0000 0000 01000000  00 04 0000 00000000"},
		{"reserved", "534443 01 0000 0000 01000000  00 00 0100 00000000"},
		{"size on int", "534443 01 0000 0000 01000000  01 00 0000 04000000 2a000000"},
		{"bad bool", "534443 01 0000 0000 01000000  05 00 0000 00000000 02"},
		{"long flag on short name", "534443 01 0000 0000 01000000  00 03 0000 00000000 6100"},
		{"long flag unnamed", "534443 01 0000 0000 01000000  00 02 0000 00000000"},
		{"unterminated name", "534443 01 0000 0000 01000000  00 01 0000 00000000 616263"},
		{"string past end", "534443 01 0000 0000 01000000  06 00 0000 ffffffff 6162"},
		{"huge array count", "534443 01 0000 0000 01000000  07 00 0000 00000000 ffffffff"},
		{"huge entry count", "534443 01 0000 0000 ffffffff  00 00 0000 00000000"},
		{"trailing bytes", "534443 01 0000 0000 01000000  00 00 0000 00000000 00"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := must(hex.DecodeString(strings.Map(removeSpaces, test.hex)))
			var r Reader
			err := r.Decode(data)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v, wanted ErrFormat", err)
			}
		})
	}
}

func TestReader_NameScanLimit(t *testing.T) {
	data := encode(t, Null().WithName(strings.Repeat("n", 100)))

	r := NewReader(ReaderOptions{MaxNameLen: 99})
	if err := r.Decode(data); !errors.Is(err, ErrFormat) {
		t.Fatalf("MaxNameLen 99 err = %v, wanted ErrFormat", err)
	}
	r = NewReader(ReaderOptions{MaxNameLen: 100})
	if err := r.Decode(data); err != nil {
		t.Fatalf("MaxNameLen 100 err = %v", err)
	}
}

func TestReader_MaxDepth(t *testing.T) {
	e := Int32(1)
	for range 10 {
		e = Array(e)
	}
	data := encode(t, e)

	if err := NewReader(ReaderOptions{MaxDepth: 9}).Decode(data); !errors.Is(err, ErrFormat) {
		t.Fatalf("MaxDepth 9 err = %v, wanted ErrFormat", err)
	}
	if err := NewReader(ReaderOptions{MaxDepth: 10}).Decode(data); err != nil {
		t.Fatalf("MaxDepth 10 err = %v", err)
	}
}

func TestReader_DoesNotAliasInput(t *testing.T) {
	data := encode(t, Bytes([]byte{1, 2, 3}), String("abc"))
	r := decode(t, data)
	for i := range data {
		data[i] = 0
	}
	if b := must(must(r.At(0)).AsBytes()); !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Fatalf("bytes changed with input: %x", b)
	}
	if s := must(must(r.At(1)).AsString()); s != "abc" {
		t.Fatalf("string changed with input: %q", s)
	}
}

func TestReader_RedecodeReplaces(t *testing.T) {
	var r Reader
	ensure(r.Decode(encode(t, Int32(1).WithName("a"), Int32(2))))
	ensure(r.Decode(encode(t, Int32(3).WithName("b"))))
	if r.Len() != 1 || r.HasNamed("a") || !r.HasNamed("b") {
		t.Fatalf("redecode kept old state: %v", r.Entries())
	}
}

func TestReader_FlagsAndSerializer(t *testing.T) {
	var s Serializer
	s.Flags, s.CustomFlags = 3, 0x8000
	s.AddNamed(Int32(5), "five")
	data := must(s.MarshalBinary())

	r := decode(t, data)
	if r.Flags() != 3 || r.CustomFlags() != 0x8000 {
		t.Fatalf("flags = %x/%x", r.Flags(), r.CustomFlags())
	}
	again := must(r.Serializer().MarshalBinary())
	if !bytes.Equal(data, again) {
		t.Fatalf("re-encoded document differs:\n%x\n%x", data, again)
	}
}

func TestReader_Logs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewReader(ReaderOptions{Logger: log})
	ensure(r.Decode(encode(t, Int32(1))))
	if !strings.Contains(buf.String(), "entries=1") {
		t.Fatalf("log = %q", buf.String())
	}
}

func TestReader_All(t *testing.T) {
	r := decode(t, encode(t, Int32(0), Int32(1), Int32(2)))
	var seen int
	for i, e := range r.All() {
		if v := must(e.AsInt32()); int(v) != i {
			t.Fatalf("All()[%d] = %d", i, v)
		}
		seen++
		if i == 1 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("seen = %d, wanted 2", seen)
	}
}
