package hookvm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Instruction: one decoded instruction
// ---------------------------------------------------------------------------

// Instruction is a single decoded instruction. Operand fields are shared
// across opcodes:
//
//	A    first register operand (arg index, obj, src, left, cond)
//	B    second register operand (right, the value register of SET_FIELD)
//	Dst  destination register (also the local index of STORE_LOCAL)
//	Tag  the immediate's type tag (LOAD_IMMEDIATE)
//	Imm  32-bit immediate: constant payload or absolute jump target
//	Sym  16-bit symbol-table index (field or callee name)
type Instruction struct {
	Op     Opcode
	Offset int // byte offset of the opcode within the program
	A      byte
	B      byte
	Dst    byte
	Tag    byte
	Imm    uint32
	Sym    uint16
}

// String renders the instruction for disassembly listings.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpHalt:
		return fmt.Sprintf("%04d  %s", ins.Offset, ins.Op)
	case OpLoadImmediate:
		return fmt.Sprintf("%04d  %s r%d tag=%02X %d", ins.Offset, ins.Op, ins.Dst, ins.Tag, ins.Imm)
	case OpLoadArgument:
		return fmt.Sprintf("%04d  %s a%d -> r%d", ins.Offset, ins.Op, ins.A, ins.Dst)
	case OpLoadLocal:
		return fmt.Sprintf("%04d  %s l%d -> r%d", ins.Offset, ins.Op, ins.A, ins.Dst)
	case OpStoreLocal:
		return fmt.Sprintf("%04d  %s r%d -> l%d", ins.Offset, ins.Op, ins.A, ins.Dst)
	case OpGetField:
		return fmt.Sprintf("%04d  %s r%d name=%d -> r%d", ins.Offset, ins.Op, ins.A, ins.Sym, ins.Dst)
	case OpSetField:
		return fmt.Sprintf("%04d  %s r%d name=%d <- r%d", ins.Offset, ins.Op, ins.A, ins.Sym, ins.B)
	case OpAdd, OpSub, OpMul, OpDiv,
		OpLessThan, OpLessOrEqual, OpEqual, OpGreaterOrEqual, OpGreaterThan:
		return fmt.Sprintf("%04d  %s r%d r%d -> r%d", ins.Offset, ins.Op, ins.A, ins.B, ins.Dst)
	case OpJump:
		return fmt.Sprintf("%04d  %s -> %04d", ins.Offset, ins.Op, ins.Imm)
	case OpJumpTrue, OpJumpFalse:
		return fmt.Sprintf("%04d  %s r%d -> %04d", ins.Offset, ins.Op, ins.A, ins.Imm)
	case OpPush:
		return fmt.Sprintf("%04d  %s r%d", ins.Offset, ins.Op, ins.A)
	case OpCall:
		return fmt.Sprintf("%04d  %s name=%d -> r%d", ins.Offset, ins.Op, ins.Sym, ins.Dst)
	case OpReturn:
		return fmt.Sprintf("%04d  %s r%d", ins.Offset, ins.Op, ins.A)
	default:
		return fmt.Sprintf("%04d  %s", ins.Offset, ins.Op)
	}
}

// ---------------------------------------------------------------------------
// Decoder: forward-only instruction decoding
// ---------------------------------------------------------------------------

// Decoder decodes instructions from a byte buffer. The cursor only moves
// forward during decoding; jump targets re-enter via Seek rather than by
// backtracking.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over program bytecode.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Position returns the current cursor offset.
func (d *Decoder) Position() int {
	return d.pos
}

// Seek sets the cursor to an absolute byte offset.
func (d *Decoder) Seek(pos int) {
	d.pos = pos
}

// Next decodes one instruction and advances the cursor past it. It returns
// ok=false at end of program: a cursor at or past the end of the buffer, an
// opcode byte that names no known instruction, or operands cut off by the end
// of the buffer. None of these are errors; decoding just stops.
func (d *Decoder) Next() (Instruction, bool) {
	if d.pos >= len(d.buf) {
		return Instruction{}, false
	}

	ins := Instruction{Op: Opcode(d.buf[d.pos]), Offset: d.pos}
	if !ins.Op.Valid() {
		return Instruction{}, false
	}
	if d.pos+1+ins.Op.Info().OperandBytes > len(d.buf) {
		return Instruction{}, false
	}
	d.pos++

	switch ins.Op {
	case OpHalt:

	case OpLoadImmediate:
		ins.Dst = d.readByte()
		ins.Tag = d.readByte()
		ins.Imm = d.readU32()

	case OpLoadArgument, OpLoadLocal:
		ins.A = d.readByte()
		ins.Dst = d.readByte()

	case OpStoreLocal:
		ins.A = d.readByte()
		ins.Dst = d.readByte()

	case OpGetField:
		ins.A = d.readByte()
		ins.Sym = d.readU16()
		ins.Dst = d.readByte()

	case OpSetField:
		ins.A = d.readByte()
		ins.Sym = d.readU16()
		ins.B = d.readByte()

	case OpAdd, OpSub, OpMul, OpDiv,
		OpLessThan, OpLessOrEqual, OpEqual, OpGreaterOrEqual, OpGreaterThan:
		ins.A = d.readByte()
		ins.B = d.readByte()
		ins.Dst = d.readByte()

	case OpJump:
		ins.Imm = d.readU32()

	case OpJumpTrue, OpJumpFalse:
		ins.A = d.readByte()
		ins.Imm = d.readU32()

	case OpPush:
		ins.A = d.readByte()

	case OpCall:
		ins.Sym = d.readU16()
		ins.Dst = d.readByte()

	case OpReturn:
		ins.A = d.readByte()
	}

	return ins, true
}

func (d *Decoder) readByte() byte {
	b := d.buf[d.pos]
	d.pos++
	return b
}

func (d *Decoder) readU16() uint16 {
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *Decoder) readU32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

// ---------------------------------------------------------------------------
// Whole-program decoding and disassembly
// ---------------------------------------------------------------------------

// DecodeAll decodes the buffer front to back and returns the ordered
// instruction sequence. This is the static representation used for inspection
// and diagnostics; the VM decodes lazily with the same encoding rules. A
// truncated or empty buffer yields an empty sequence, never an error.
func DecodeAll(buf []byte) []Instruction {
	d := NewDecoder(buf)
	var out []Instruction
	for {
		ins, ok := d.Next()
		if !ok {
			return out
		}
		out = append(out, ins)
	}
}

// Disassemble returns a listing of the program, one instruction per line.
func Disassemble(buf []byte) string {
	var sb strings.Builder
	for i, ins := range DecodeAll(buf) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(ins.String())
	}
	return sb.String()
}
