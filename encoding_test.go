package sdc

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDocumentFormats_RoundTrip(t *testing.T) {
	var s Serializer
	s.Flags = 7
	for _, e := range richTree() {
		s.Add(e)
	}
	want := s.Entries()

	for _, f := range []Format{Binary, MsgPack, CBOR, JSON, YAML} {
		t.Run(f.String(), func(t *testing.T) {
			data, err := MarshalDocument(f, &s)
			if err != nil {
				t.Fatalf("MarshalDocument: %v", err)
			}
			r, err := UnmarshalDocument(f, data, ReaderOptions{})
			if err != nil {
				t.Fatalf("UnmarshalDocument: %v\n%s", err, data)
			}
			if diff := cmp.Diff(want, r.Entries()); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
			if r.Flags() != 7 {
				t.Fatalf("Flags() = %d, wanted 7", r.Flags())
			}
			if !r.HasNamed("tree") {
				t.Fatalf("name index not built")
			}
		})
	}
}

func nestedArrays(depth int) Entry {
	e := Null()
	for range depth {
		e = Array(e)
	}
	return e
}

func TestDocumentFormats_Depth(t *testing.T) {
	for _, f := range []Format{Binary, MsgPack, CBOR, JSON, YAML} {
		t.Run(f.String(), func(t *testing.T) {
			for _, depth := range []int{1, 15, 16, 100, DefaultMaxDepth} {
				want := nestedArrays(depth)
				var s Serializer
				s.Add(want)
				data, err := MarshalDocument(f, &s)
				if err != nil {
					t.Fatalf("depth %d: MarshalDocument: %v", depth, err)
				}
				r, err := UnmarshalDocument(f, data, ReaderOptions{})
				if err != nil {
					t.Fatalf("depth %d: UnmarshalDocument: %v", depth, err)
				}
				if a := must(r.At(0)); !a.Equal(want) {
					t.Fatalf("depth %d: tree differs", depth)
				}
			}

			var s Serializer
			s.Add(nestedArrays(DefaultMaxDepth + 1))
			data := must(MarshalDocument(f, &s))
			if _, err := UnmarshalDocument(f, data, ReaderOptions{}); !errors.Is(err, ErrFormat) {
				t.Fatalf("depth %d: err = %v, wanted ErrFormat", DefaultMaxDepth+1, err)
			}
		})
	}
}

func TestDocumentFormats_ReaderLimits(t *testing.T) {
	opts := ReaderOptions{MaxDepth: 3, MaxNameLen: 4}
	for _, f := range []Format{Binary, MsgPack, CBOR, JSON, YAML} {
		t.Run(f.String(), func(t *testing.T) {
			tests := []struct {
				name  string
				entry Entry
				ok    bool
			}{
				{"depth at limit", nestedArrays(3), true},
				{"too deep", nestedArrays(4), false},
				{"name at limit", Null().WithName("abcd"), true},
				{"long name", Null().WithName("abcde"), false},
				{"long nested name", Array(Int32(1).WithName("abcde")), false},
			}
			for _, test := range tests {
				var s Serializer
				s.Add(test.entry)
				data := must(MarshalDocument(f, &s))
				_, err := UnmarshalDocument(f, data, opts)
				if test.ok && err != nil {
					t.Errorf("%s: err = %v, wanted success", test.name, err)
				} else if !test.ok && !errors.Is(err, ErrFormat) {
					t.Errorf("%s: err = %v, wanted ErrFormat", test.name, err)
				}
			}
		})
	}
}

func TestDocumentFormats_JSONShape(t *testing.T) {
	var s Serializer
	s.AddNamed(Int32(42), "answer")
	s.Add(Bytes([]byte("hi")))
	a := string(must(MarshalDocument(JSON, &s)))
	for _, e := range []string{`"kind": "int32"`, `"name": "answer"`, `"int": 42`, `"bytes": "aGk="`} {
		if !strings.Contains(a, e) {
			t.Errorf("JSON lacks %s:\n%s", e, a)
		}
	}
}

func TestUnmarshalDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"version", `{"version": 0, "entries": []}`, ErrVersion},
		{"kind", `{"version": 1, "entries": [{"kind": "float"}]}`, ErrFormat},
		{"missing value", `{"version": 1, "entries": [{"kind": "int32"}]}`, ErrFormat},
		{"int32 range", `{"version": 1, "entries": [{"kind": "int32", "int": 2147483648}]}`, ErrFormat},
		{"uint32 range", `{"version": 1, "entries": [{"kind": "uint32", "uint": 4294967296}]}`, ErrFormat},
		{"bad base64", `{"version": 1, "entries": [{"kind": "bytes", "bytes": "!!"}]}`, ErrFormat},
		{"nested", `{"version": 1, "entries": [{"kind": "array", "items": [{"kind": "bool"}]}]}`, ErrFormat},
		{"name with zero", `{"version": 1, "entries": [{"kind": "null", "name": "a\u0000b"}]}`, ErrFormat},
		{"syntax", `{"version": `, ErrFormat},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := UnmarshalDocument(JSON, []byte(test.json), ReaderOptions{})
			if !errors.Is(err, test.err) {
				t.Fatalf("err = %v, wanted %v", err, test.err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for s, e := range map[string]Format{"sdc": Binary, "bin": Binary, "MsgPack": MsgPack, "cbor": CBOR, "json": JSON, "yml": YAML, "yaml": YAML} {
		if a, err := ParseFormat(s); err != nil || a != e {
			t.Errorf("ParseFormat(%q) = (%v, %v), wanted %v", s, a, err, e)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("ParseFormat(xml) succeeded")
	}
}
