package sdc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format selects a document representation. Binary is the SDC wire format;
// the others are lossless record trees in general-purpose encodings, meant for
// inspection and interchange.
type Format int

const (
	Binary Format = iota
	MsgPack
	CBOR
	JSON
	YAML
)

var formatNames = []string{
	Binary:  "sdc",
	MsgPack: "msgpack",
	CBOR:    "cbor",
	JSON:    "json",
	YAML:    "yaml",
}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(s)
	switch s {
	case "bin", "binary":
		return Binary, nil
	case "mp", "mpk":
		return MsgPack, nil
	case "yml":
		return YAML, nil
	}
	for f, name := range formatNames {
		if name == s {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	cborEncMode = must(cbor.CoreDetEncOptions().EncMode())
	cborDecMode = must(newCBORDecMode(DefaultMaxDepth))
}

// newCBORDecMode allows enough CBOR nesting for maxDepth nested arrays: every
// array is a record map plus an items array, under the document map and the
// top-level entries array.
func newCBORDecMode(maxDepth int) (cbor.DecMode, error) {
	const cborMaxNestedLevels = 65535
	levels := cborMaxNestedLevels
	if maxDepth < (cborMaxNestedLevels-4)/2 {
		levels = 2*maxDepth + 4
	}
	return cbor.DecOptions{MaxNestedLevels: levels}.DecMode()
}

type docRecord struct {
	Version     int           `json:"version" msgpack:"version" cbor:"version" yaml:"version"`
	Flags       uint16        `json:"flags,omitempty" msgpack:"flags,omitempty" cbor:"flags,omitempty" yaml:"flags,omitempty"`
	CustomFlags uint16        `json:"custom_flags,omitempty" msgpack:"custom_flags,omitempty" cbor:"custom_flags,omitempty" yaml:"custom_flags,omitempty"`
	Entries     []entryRecord `json:"entries" msgpack:"entries" cbor:"entries" yaml:"entries"`
}

// entryRecord holds exactly one of the value fields, matching Kind. Bytes are
// base64 so that every encoding treats them the same way.
type entryRecord struct {
	Kind  string        `json:"kind" msgpack:"kind" cbor:"kind" yaml:"kind"`
	Name  *string       `json:"name,omitempty" msgpack:"name,omitempty" cbor:"name,omitempty" yaml:"name,omitempty"`
	Int   *int64        `json:"int,omitempty" msgpack:"int,omitempty" cbor:"int,omitempty" yaml:"int,omitempty"`
	Uint  *uint64       `json:"uint,omitempty" msgpack:"uint,omitempty" cbor:"uint,omitempty" yaml:"uint,omitempty"`
	Bool  *bool         `json:"bool,omitempty" msgpack:"bool,omitempty" cbor:"bool,omitempty" yaml:"bool,omitempty"`
	Str   *string       `json:"str,omitempty" msgpack:"str,omitempty" cbor:"str,omitempty" yaml:"str,omitempty"`
	Bytes *string       `json:"bytes,omitempty" msgpack:"bytes,omitempty" cbor:"bytes,omitempty" yaml:"bytes,omitempty"`
	Items []entryRecord `json:"items,omitempty" msgpack:"items,omitempty" cbor:"items,omitempty" yaml:"items,omitempty"`
}

// MarshalDocument encodes the document held by s in format f.
func MarshalDocument(f Format, s *Serializer) ([]byte, error) {
	if f == Binary {
		return s.MarshalBinary()
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	doc := docRecord{
		Version:     Version,
		Flags:       s.Flags,
		CustomFlags: s.CustomFlags,
		Entries:     make([]entryRecord, len(s.entries)),
	}
	for i, e := range s.entries {
		doc.Entries[i] = recordOf(e)
	}

	switch f {
	case MsgPack:
		bb := bytesBuilder{}
		enc := msgpack.GetEncoder()
		enc.ResetDict(&bb, nil)
		err := enc.Encode(&doc)
		msgpack.PutEncoder(enc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document using MsgPack: %w", err)
		}
		return bb.Buf, nil
	case CBOR:
		return cborEncMode.Marshal(&doc)
	case JSON:
		return json.MarshalIndent(&doc, "", "  ")
	case YAML:
		return yaml.Marshal(&doc)
	default:
		return nil, fmt.Errorf("unsupported format %v", f)
	}
}

// UnmarshalDocument decodes a document in format f. The same version gate
// applies to every format.
func UnmarshalDocument(f Format, data []byte, opts ReaderOptions) (*Reader, error) {
	r := NewReader(opts)
	if f == Binary {
		if err := r.Decode(data); err != nil {
			return nil, err
		}
		return r, nil
	}
	lim := recordLimits{maxNameLen: opts.MaxNameLen, maxDepth: opts.MaxDepth}
	if lim.maxNameLen <= 0 {
		lim.maxNameLen = MaxNameLen
	}
	if lim.maxDepth <= 0 {
		lim.maxDepth = DefaultMaxDepth
	}

	var doc docRecord
	var err error
	switch f {
	case MsgPack:
		dec := msgpack.GetDecoder()
		dec.ResetDict(bytes.NewReader(data), nil)
		err = dec.Decode(&doc)
		msgpack.PutDecoder(dec)
	case CBOR:
		dm := cborDecMode
		if lim.maxDepth != DefaultMaxDepth {
			dm, err = newCBORDecMode(lim.maxDepth)
			if err != nil {
				return nil, err
			}
		}
		err = dm.Unmarshal(data, &doc)
	case JSON:
		err = json.Unmarshal(data, &doc)
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format %v", f)
	}
	if err != nil {
		return nil, dataErrf(data, 0, err, "failed to decode %v document", f)
	}
	if doc.Version != Version {
		return nil, &VersionError{Got: doc.Version, Want: Version}
	}
	if uint64(len(doc.Entries)) > maxWireLen {
		return nil, fmt.Errorf("%w: %d top-level entries", ErrFormat, len(doc.Entries))
	}

	entries := make([]Entry, len(doc.Entries))
	for i := range doc.Entries {
		entries[i], err = doc.Entries[i].entry(lim, 0)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	r.load(docHeader{Version: Version, Flags: doc.Flags, CustomFlags: doc.CustomFlags, Count: uint32(len(entries))}, entries)
	return r, nil
}

func recordOf(e Entry) entryRecord {
	rec := entryRecord{Kind: e.Kind().String()}
	if e.hasName {
		name := e.name
		rec.Name = &name
	}
	switch v := e.val.(type) {
	case int32Value:
		i := int64(v)
		rec.Int = &i
	case int64Value:
		i := int64(v)
		rec.Int = &i
	case uint32Value:
		u := uint64(v)
		rec.Uint = &u
	case uint64Value:
		u := uint64(v)
		rec.Uint = &u
	case boolValue:
		b := bool(v)
		rec.Bool = &b
	case stringValue:
		s := string(v)
		rec.Str = &s
	case bytesValue:
		s := base64.StdEncoding.EncodeToString(v)
		rec.Bytes = &s
	case arrayValue:
		rec.Items = make([]entryRecord, len(v))
		for i, child := range v {
			rec.Items[i] = recordOf(child)
		}
	}
	return rec
}

// recordLimits mirrors the binary decoder's name and nesting limits.
type recordLimits struct {
	maxNameLen int
	maxDepth   int
}

func (rec *entryRecord) entry(lim recordLimits, depth int) (Entry, error) {
	kind, ok := ParseKind(rec.Kind)
	if !ok {
		return Entry{}, fmt.Errorf("%w: unknown kind %q", ErrFormat, rec.Kind)
	}
	var e Entry
	if rec.Name != nil {
		if len(*rec.Name) > lim.maxNameLen {
			return Entry{}, fmt.Errorf("%w: name %s exceeds %d bytes", ErrFormat, truncName(*rec.Name), lim.maxNameLen)
		}
		if err := validateName(*rec.Name); err != nil {
			return Entry{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		e.SetName(*rec.Name)
	}

	missing := func() (Entry, error) {
		return Entry{}, fmt.Errorf("%w: %v entry %s without a value", ErrFormat, kind, entryLabel(e))
	}
	switch kind {
	case KindNull:
	case KindInt32:
		if rec.Int == nil {
			return missing()
		}
		if *rec.Int < math.MinInt32 || *rec.Int > math.MaxInt32 {
			return Entry{}, fmt.Errorf("%w: int32 value %d out of range", ErrFormat, *rec.Int)
		}
		e.SetInt32(int32(*rec.Int))
	case KindInt64:
		if rec.Int == nil {
			return missing()
		}
		e.SetInt64(*rec.Int)
	case KindUint32:
		if rec.Uint == nil {
			return missing()
		}
		if *rec.Uint > math.MaxUint32 {
			return Entry{}, fmt.Errorf("%w: uint32 value %d out of range", ErrFormat, *rec.Uint)
		}
		e.SetUint32(uint32(*rec.Uint))
	case KindUint64:
		if rec.Uint == nil {
			return missing()
		}
		e.SetUint64(*rec.Uint)
	case KindBool:
		if rec.Bool == nil {
			return missing()
		}
		e.SetBool(*rec.Bool)
	case KindString:
		if rec.Str == nil {
			return missing()
		}
		e.SetString(*rec.Str)
	case KindBytes:
		if rec.Bytes == nil {
			return missing()
		}
		b, err := base64.StdEncoding.DecodeString(*rec.Bytes)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bytes entry %s: %w", ErrFormat, entryLabel(e), err)
		}
		e.val = bytesValue(cloneBytes(b))
	case KindArray:
		if depth >= lim.maxDepth {
			return Entry{}, fmt.Errorf("%w: arrays nested deeper than %d", ErrFormat, lim.maxDepth)
		}
		items := make(arrayValue, len(rec.Items))
		for i := range rec.Items {
			child, err := rec.Items[i].entry(lim, depth+1)
			if err != nil {
				return Entry{}, fmt.Errorf("%s[%d]: %w", entryLabel(e), i, err)
			}
			items[i] = child
		}
		e.val = items
	}
	return e, nil
}
