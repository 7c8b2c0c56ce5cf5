// Package hookvm implements the private instruction set used to stand in for
// host procedure bodies: opcode definitions, a forward-only decoder, and a
// register virtual machine that executes decoded programs against the host's
// tagged value encoding.
package hookvm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

const (
	OpHalt          Opcode = 0x00 // stop execution, no result
	OpLoadImmediate Opcode = 0x01 // dest:reg, tag:byte, value:u32
	OpLoadArgument  Opcode = 0x02 // arg:reg, dest:reg
	OpLoadLocal     Opcode = 0x03 // local:reg, dest:reg
	OpStoreLocal    Opcode = 0x04 // src:reg, local:reg
	OpGetField      Opcode = 0x05 // obj:reg, name:u16, dest:reg
	OpSetField      Opcode = 0x06 // obj:reg, name:u16, src:reg
)

// Binary arithmetic: left:reg, right:reg, dest:reg
const (
	OpAdd Opcode = 0x07
	OpSub Opcode = 0x08
	OpMul Opcode = 0x09
	OpDiv Opcode = 0x0A
)

// Binary comparison: left:reg, right:reg, dest:reg
const (
	OpLessThan       Opcode = 0x0B
	OpLessOrEqual    Opcode = 0x0C
	OpEqual          Opcode = 0x0D
	OpGreaterOrEqual Opcode = 0x0E
	OpGreaterThan    Opcode = 0x0F
)

// Control flow. Jump targets are absolute byte offsets into the program.
const (
	OpJump      Opcode = 0x10 // target:u32
	OpJumpTrue  Opcode = 0x11 // cond:reg, target:u32
	OpJumpFalse Opcode = 0x12 // cond:reg, target:u32
)

const (
	OpPush   Opcode = 0x13 // src:reg; append to the argument stack
	OpCall   Opcode = 0x14 // name:u16, dest:reg; drains the argument stack
	OpReturn Opcode = 0x15 // src:reg; end execution with the register's value
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes following the opcode
}

// opcodeTable maps opcodes to their metadata. An opcode byte absent from this
// table is not an instruction; the decoder treats it as end of program.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpHalt:          {"HALT", 0},
	OpLoadImmediate: {"LOAD_IMMEDIATE", 6},
	OpLoadArgument:  {"LOAD_ARGUMENT", 2},
	OpLoadLocal:     {"LOAD_LOCAL", 2},
	OpStoreLocal:    {"STORE_LOCAL", 2},
	OpGetField:      {"GET_FIELD", 4},
	OpSetField:      {"SET_FIELD", 4},

	OpAdd: {"ADD", 3},
	OpSub: {"SUB", 3},
	OpMul: {"MUL", 3},
	OpDiv: {"DIV", 3},

	OpLessThan:       {"LESS_THAN", 3},
	OpLessOrEqual:    {"LESS_OR_EQUAL", 3},
	OpEqual:          {"EQUAL", 3},
	OpGreaterOrEqual: {"GREATER_OR_EQUAL", 3},
	OpGreaterThan:    {"GREATER_THAN", 3},

	OpJump:      {"JUMP", 4},
	OpJumpTrue:  {"JUMP_TRUE", 5},
	OpJumpFalse: {"JUMP_FALSE", 5},

	OpPush:   {"PUSH", 1},
	OpCall:   {"CALL", 3},
	OpReturn: {"RETURN", 1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Valid returns true if op names a known instruction.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// ProgramBuilder: helper for constructing program bytecode
// ---------------------------------------------------------------------------

// ProgramBuilder helps construct program bytecode. Jump targets are absolute
// byte offsets; Len gives the offset the next emitted instruction will start
// at, so programs with forward jumps are built by recording Len and patching
// with PatchJump.
type ProgramBuilder struct {
	bytes []byte
}

// NewProgramBuilder creates a new program builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{bytes: make([]byte, 0, 64)}
}

// Bytes returns the constructed bytecode.
func (b *ProgramBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length, which is also the byte offset of whatever
// is emitted next.
func (b *ProgramBuilder) Len() int {
	return len(b.bytes)
}

// Halt appends a HALT instruction.
func (b *ProgramBuilder) Halt() {
	b.bytes = append(b.bytes, byte(OpHalt))
}

// LoadImmediate appends a LOAD_IMMEDIATE instruction.
func (b *ProgramBuilder) LoadImmediate(dest byte, tag byte, value uint32) {
	b.bytes = append(b.bytes, byte(OpLoadImmediate), dest, tag)
	b.appendU32(value)
}

// LoadArgument appends a LOAD_ARGUMENT instruction.
func (b *ProgramBuilder) LoadArgument(arg, dest byte) {
	b.bytes = append(b.bytes, byte(OpLoadArgument), arg, dest)
}

// LoadLocal appends a LOAD_LOCAL instruction.
func (b *ProgramBuilder) LoadLocal(local, dest byte) {
	b.bytes = append(b.bytes, byte(OpLoadLocal), local, dest)
}

// StoreLocal appends a STORE_LOCAL instruction.
func (b *ProgramBuilder) StoreLocal(src, local byte) {
	b.bytes = append(b.bytes, byte(OpStoreLocal), src, local)
}

// GetField appends a GET_FIELD instruction.
func (b *ProgramBuilder) GetField(obj byte, name uint16, dest byte) {
	b.bytes = append(b.bytes, byte(OpGetField), obj, byte(name), byte(name>>8), dest)
}

// SetField appends a SET_FIELD instruction.
func (b *ProgramBuilder) SetField(obj byte, name uint16, src byte) {
	b.bytes = append(b.bytes, byte(OpSetField), obj, byte(name), byte(name>>8), src)
}

// Binary appends an arithmetic or comparison instruction.
func (b *ProgramBuilder) Binary(op Opcode, left, right, dest byte) {
	b.bytes = append(b.bytes, byte(op), left, right, dest)
}

// Jump appends an unconditional JUMP to an absolute byte offset.
func (b *ProgramBuilder) Jump(target uint32) {
	b.bytes = append(b.bytes, byte(OpJump))
	b.appendU32(target)
}

// JumpTrue appends a JUMP_TRUE instruction.
func (b *ProgramBuilder) JumpTrue(cond byte, target uint32) {
	b.bytes = append(b.bytes, byte(OpJumpTrue), cond)
	b.appendU32(target)
}

// JumpFalse appends a JUMP_FALSE instruction.
func (b *ProgramBuilder) JumpFalse(cond byte, target uint32) {
	b.bytes = append(b.bytes, byte(OpJumpFalse), cond)
	b.appendU32(target)
}

// PatchJump rewrites the target of a jump emitted at offset. The offset must
// point at a JUMP, JUMP_TRUE, or JUMP_FALSE instruction.
func (b *ProgramBuilder) PatchJump(offset int, target uint32) {
	switch Opcode(b.bytes[offset]) {
	case OpJump:
		binary.LittleEndian.PutUint32(b.bytes[offset+1:], target)
	case OpJumpTrue, OpJumpFalse:
		binary.LittleEndian.PutUint32(b.bytes[offset+2:], target)
	default:
		panic(fmt.Sprintf("PatchJump: no jump at offset %d", offset))
	}
}

// Push appends a PUSH instruction.
func (b *ProgramBuilder) Push(src byte) {
	b.bytes = append(b.bytes, byte(OpPush), src)
}

// Call appends a CALL instruction.
func (b *ProgramBuilder) Call(name uint16, dest byte) {
	b.bytes = append(b.bytes, byte(OpCall), byte(name), byte(name>>8), dest)
}

// Return appends a RETURN instruction.
func (b *ProgramBuilder) Return(src byte) {
	b.bytes = append(b.bytes, byte(OpReturn), src)
}

// Raw appends raw bytes, for building deliberately malformed programs.
func (b *ProgramBuilder) Raw(data ...byte) {
	b.bytes = append(b.bytes, data...)
}

func (b *ProgramBuilder) appendU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.bytes = append(b.bytes, buf[:]...)
}
