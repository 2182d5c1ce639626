/*
Package sdc implements SDC, a self-describing binary container of typed,
optionally named values.

A document is an ordered list of top-level entries. Each Entry holds one of
nine kinds: null, int32, int64, uint32, uint64, bool, string, bytes, or array
(an ordered list of child entries). Build entries with the kind constructors,
add them to a Serializer, and encode; feed the bytes to a Reader to get the
entries back, look them up by position or by name, or Dump them as text.

	var s sdc.Serializer
	s.Add(sdc.Int32(42))
	s.AddNamed(sdc.String("hello"), "greeting")
	s.AddNamed(sdc.Array(sdc.Uint32(1), sdc.Uint32(2)), "nums")
	data, err := s.MarshalBinary()

	var r sdc.Reader
	err = r.Decode(data)
	greeting, err := r.Named("greeting")

Getters never convert between kinds: asking an int64 entry for AsInt32 is an
ErrTypeMismatch.

# Binary format

All integers are little-endian, regardless of the host.

**Document header** (12 bytes):
1. Magic "SDC" (3 bytes).
2. Version (u8). Must equal Version exactly; there is no compatibility mode.
3. Flags (u16) and custom flags (u16), opaque to the codec.
4. Number of top-level entries (u32).

**Entry**: entry header, then the name if present, then the payload.

**Entry header** (8 bytes):
1. Kind (u8), see Kind.
2. Entry flags (u8): bit 0 is set for named entries, bit 1 for names longer
than MaxShortNameLen bytes.
3. Reserved (u16), zero.
4. Size (u32): payload length of string and bytes entries, zero otherwise.

**Name**: raw bytes followed by a single zero byte. Names are at most
MaxNameLen bytes and cannot contain zero bytes.

**Payload**:
int32/uint32 take 4 bytes, int64/uint64 take 8 bytes, bool is a single 0 or 1
byte, null is empty. String and bytes payloads are exactly Size raw bytes,
without a terminator. An array payload is the child count (u32) followed by
that many entries.

The decoder rejects truncated input, unknown kinds and flags, over-long names,
nesting deeper than ReaderOptions.MaxDepth and trailing bytes, all as
ErrFormat.
*/
package sdc
