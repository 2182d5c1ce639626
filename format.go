package sdc

import "math"

const (
	// Magic is the leading marker of every SDC document.
	Magic = "SDC"

	// Version is the only format version this package reads and writes.
	Version = 1

	// MaxShortNameLen is the longest name that does not set the long-name
	// entry flag.
	MaxShortNameLen = 32

	// MaxNameLen is the longest name the encoder accepts and the default scan
	// limit of the decoder.
	MaxNameLen = 4096

	// DefaultMaxDepth bounds array nesting on decode.
	DefaultMaxDepth = 512

	docHeaderSize   = 12
	entryHeaderSize = 8
	arrayHeaderSize = 4

	maxWireLen = math.MaxUint32
)

type entryFlags uint8

const (
	efNamed = entryFlags(1 << iota)
	efLongName

	efSupportedMask = efNamed | efLongName
)

// docHeader is the fixed 12-byte document prefix:
// magic[3] version:u8 flags:u16 customFlags:u16 count:u32.
type docHeader struct {
	Version     uint8
	Flags       uint16
	CustomFlags uint16
	Count       uint32
}

func (h *docHeader) append(bb *bytesBuilder) {
	bb.AppendString(Magic)
	bb.AppendByte(h.Version)
	bb.AppendUint16(h.Flags)
	bb.AppendUint16(h.CustomFlags)
	bb.AppendUint32(h.Count)
}

func (h *docHeader) decode(d *byteDecoder) error {
	if d.Remaining() < len(Magic) || string(d.Buf[:len(Magic)]) != Magic {
		n := min(d.Remaining(), len(Magic))
		return dataErrf(d.Orig, d.Off(), nil, "invalid input format: missing magic bytes, got %q", d.Buf[:n])
	}
	d.Buf = d.Buf[len(Magic):]

	var err error
	if h.Version, err = d.Uint8(); err != nil {
		return err
	}
	if h.Version != Version {
		return &VersionError{Got: int(h.Version), Want: Version}
	}
	if h.Flags, err = d.Uint16(); err != nil {
		return err
	}
	if h.CustomFlags, err = d.Uint16(); err != nil {
		return err
	}
	if h.Count, err = d.Uint32(); err != nil {
		return err
	}
	return nil
}

// entryHeader is the fixed 8-byte entry prefix:
// kind:u8 flags:u8 reserved:u16 size:u32.
type entryHeader struct {
	Kind  Kind
	Flags entryFlags
	Size  uint32
}

func (h *entryHeader) append(bb *bytesBuilder) {
	bb.AppendByte(byte(h.Kind))
	bb.AppendByte(byte(h.Flags))
	bb.AppendUint16(0)
	bb.AppendUint32(h.Size)
}

func (h *entryHeader) decode(d *byteDecoder) error {
	off := d.Off()
	raw, err := d.Raw(entryHeaderSize)
	if err != nil {
		return err
	}
	sub := makeByteDecoder(raw)
	kind, _ := sub.Uint8()
	flags, _ := sub.Uint8()
	reserved, _ := sub.Uint16()
	h.Size, _ = sub.Uint32()
	h.Kind, h.Flags = Kind(kind), entryFlags(flags)

	if !h.Kind.Valid() {
		return dataErrf(d.Orig, off, nil, "unknown entry kind %d", kind)
	}
	if h.Flags&^efSupportedMask != 0 {
		return dataErrf(d.Orig, off, nil, "unsupported entry flags %x", flags)
	}
	if reserved != 0 {
		return dataErrf(d.Orig, off, nil, "non-zero reserved field %x", reserved)
	}
	if h.Size != 0 && h.Kind != KindString && h.Kind != KindBytes {
		return dataErrf(d.Orig, off, nil, "size %d on %v entry", h.Size, h.Kind)
	}
	return nil
}
