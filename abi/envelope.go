package abi

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// CallEnvelope: the dispatch entry point's wire layout
// ---------------------------------------------------------------------------

// EnvelopeVersion is the current envelope layout version. The detour
// installer and this subsystem must agree on it; a mismatch is rejected at
// decode time rather than silently misread.
const EnvelopeVersion uint32 = 1

// Fixed sizes of the envelope layout, in bytes. All multi-byte fields are
// little-endian. A RawValue occupies eight bytes on the wire: the tag, three
// zero padding bytes, then the payload.
const (
	RawValueSize        = 8
	EnvelopeHeaderSize  = 4 + RawValueSize + 4 + 4 + 4 + RawValueSize + 4
	EnvelopeTrailerSize = 8
)

// CallEnvelope is the fixed-layout frame the redirected call path hands to
// the dispatcher. Field order matches the host's calling convention:
//
//	version    u32
//	usr        RawValue
//	proc type  u32
//	proc id    u32
//	reserved0  u32
//	src        RawValue
//	arg count  u32
//	args       RawValue * arg count
//	reserved1  u32
//	reserved2  u32
//
// The reserved fields carry host data this subsystem does not interpret; they
// are preserved through encode/decode for forward ABI compatibility.
type CallEnvelope struct {
	Usr       RawValue
	ProcType  uint32
	ProcID    uint32
	Reserved0 uint32
	Src       RawValue
	Args      []RawValue
	Reserved1 uint32
	Reserved2 uint32
}

// EncodedSize returns the number of bytes Encode will produce.
func (e *CallEnvelope) EncodedSize() int {
	return EnvelopeHeaderSize + len(e.Args)*RawValueSize + EnvelopeTrailerSize
}

// Encode serializes the envelope into its fixed byte layout.
func (e *CallEnvelope) Encode() []byte {
	buf := make([]byte, e.EncodedSize())
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], EnvelopeVersion)
	off += 4
	putRawValue(buf[off:], e.Usr)
	off += RawValueSize
	binary.LittleEndian.PutUint32(buf[off:], e.ProcType)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], e.ProcID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], e.Reserved0)
	off += 4
	putRawValue(buf[off:], e.Src)
	off += RawValueSize
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.Args)))
	off += 4
	for _, a := range e.Args {
		putRawValue(buf[off:], a)
		off += RawValueSize
	}
	binary.LittleEndian.PutUint32(buf[off:], e.Reserved1)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], e.Reserved2)

	return buf
}

// DecodeEnvelope parses a CallEnvelope from its fixed byte layout.
func DecodeEnvelope(buf []byte) (*CallEnvelope, error) {
	if len(buf) < EnvelopeHeaderSize+EnvelopeTrailerSize {
		return nil, fmt.Errorf("abi: envelope too short: %d bytes", len(buf))
	}

	version := binary.LittleEndian.Uint32(buf)
	if version != EnvelopeVersion {
		return nil, fmt.Errorf("abi: envelope version %d, want %d", version, EnvelopeVersion)
	}

	e := &CallEnvelope{}
	off := 4
	e.Usr = getRawValue(buf[off:])
	off += RawValueSize
	e.ProcType = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	e.ProcID = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	e.Reserved0 = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	e.Src = getRawValue(buf[off:])
	off += RawValueSize
	argc := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	if len(buf) < EnvelopeHeaderSize+argc*RawValueSize+EnvelopeTrailerSize {
		return nil, fmt.Errorf("abi: envelope truncated: %d args claimed, %d bytes", argc, len(buf))
	}
	if argc > 0 {
		e.Args = make([]RawValue, argc)
		for i := 0; i < argc; i++ {
			e.Args[i] = getRawValue(buf[off:])
			off += RawValueSize
		}
	}

	e.Reserved1 = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	e.Reserved2 = binary.LittleEndian.Uint32(buf[off:])

	return e, nil
}

func putRawValue(buf []byte, v RawValue) {
	buf[0] = v.Tag
	buf[1] = 0
	buf[2] = 0
	buf[3] = 0
	binary.LittleEndian.PutUint32(buf[4:], v.Data)
}

func getRawValue(buf []byte) RawValue {
	return RawValue{Tag: buf[0], Data: binary.LittleEndian.Uint32(buf[4:])}
}
