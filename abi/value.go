// Package abi defines the binary contract shared with the host runtime and
// the detour installer: the host's dynamic value encoding, the fixed-layout
// dispatch envelope, and the execution-context mirror used by the
// per-instruction trace path. Everything in this package has an exact byte
// layout; changing a field changes the wire format.
package abi

import "fmt"

// RawValue is the host's dynamic value encoding: a one-byte type tag and a
// four-byte payload. The payload is opaque to this subsystem except where the
// VM's arithmetic and comparison opcodes interpret it.
type RawValue struct {
	Tag  byte
	Data uint32
}

// Well-known host tags. The subsystem never invents tags of its own; these
// constants exist so other packages can name tags the host already defines.
const (
	TagNull   byte = 0x00
	TagString byte = 0x06
	TagNumber byte = 0x2A
)

// Null is the host's null value.
var Null = RawValue{}

// IsNull returns true if v is the host's null value.
func (v RawValue) IsNull() bool {
	return v == Null
}

// Truthy reports whether v is truthy under the host's rules: null and
// zero-payload values are falsy, everything else is truthy.
func (v RawValue) Truthy() bool {
	return v.Data != 0
}

// String implements the Stringer interface.
func (v RawValue) String() string {
	return fmt.Sprintf("[tag=%02X data=%08X]", v.Tag, v.Data)
}
