package hookvm

import (
	"errors"
	"fmt"

	"simhook/abi"
)

// ---------------------------------------------------------------------------
// Register: the VM's value representation
// ---------------------------------------------------------------------------

// Register holds one tagged value in the VM's representation: the host's type
// tag and the raw 32-bit payload, copied verbatim across the boundary.
type Register struct {
	Tag   byte
	Value uint32
}

// Truthy reports whether the register holds a truthy value under the host's
// rules (null and zero are falsy).
func (r Register) Truthy() bool {
	return r.Value != 0
}

// ---------------------------------------------------------------------------
// Environment: the VM's view of the host
// ---------------------------------------------------------------------------

// Environment is the external collaborator GET_FIELD, SET_FIELD, and CALL
// delegate to. Names are 16-bit symbol-table indices; resolving them, storing
// fields, and invoking procedures are the environment's concern, not the
// VM's. A CALL whose callee is itself hooked re-enters dispatch inside the
// environment.
type Environment interface {
	GetField(obj Register, name uint16) Register
	SetField(obj Register, name uint16, val Register)
	Call(name uint16, args []Register) Register
}

// ErrNoProgram is returned by RunProgram for an unknown procedure identifier.
var ErrNoProgram = errors.New("hookvm: no program for procedure")

// ---------------------------------------------------------------------------
// VM: register virtual machine
// ---------------------------------------------------------------------------

// VM owns a table of programs keyed by procedure identifier and executes them
// on demand. It is meant to be driven synchronously from a single dispatch
// goroutine; each execution gets its own register file and argument stack.
type VM struct {
	programs map[uint32][]byte
	env      Environment
	boolTag  byte
}

// NewVM creates a VM bound to a host environment. Comparison results carry
// the host's number tag unless SetBoolTag overrides it; the VM never invents
// a tag of its own.
func NewVM(env Environment) *VM {
	return &VM{
		programs: make(map[uint32][]byte),
		env:      env,
		boolTag:  abi.TagNumber,
	}
}

// SetBoolTag sets the tag stamped on comparison results.
func (vm *VM) SetBoolTag(tag byte) {
	vm.boolTag = tag
}

// AddProgram stores a program under a procedure identifier, overwriting any
// previous program for that key. Uniqueness is the registry's concern, one
// layer up; at this layer re-registration is idempotent.
func (vm *VM) AddProgram(id uint32, bytecode []byte) {
	code := make([]byte, len(bytecode))
	copy(code, bytecode)
	vm.programs[id] = code
}

// HasProgram returns true if a program is loaded for the identifier.
func (vm *VM) HasProgram(id uint32) bool {
	_, ok := vm.programs[id]
	return ok
}

// Program returns the stored bytecode for an identifier, or nil.
func (vm *VM) Program(id uint32) []byte {
	return vm.programs[id]
}

// ProgramIDs returns the identifiers of all loaded programs.
func (vm *VM) ProgramIDs() []uint32 {
	ids := make([]uint32, 0, len(vm.programs))
	for id := range vm.programs {
		ids = append(ids, id)
	}
	return ids
}

// RemoveAll drops every loaded program.
func (vm *VM) RemoveAll() {
	vm.programs = make(map[uint32][]byte)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// execState is the per-execution register file and argument stack. Local and
// temp registers are full 256-entry files, so any single-byte index is in
// range by construction; argument indices are trusted to the program author.
type execState struct {
	args   []Register
	locals [256]Register
	temps  [256]Register
	stack  []Register // argument-accumulation stack, drained by each CALL
}

// RunProgram executes the program stored under id with the given argument
// registers and returns its result. Execution starts at offset 0, decodes
// lazily at the program counter, and ends on RETURN (the named register),
// HALT, or running off the end of the program (both yield the null value).
// There is no instruction budget: a program that jumps into a loop runs until
// it leaves it, or forever.
func (vm *VM) RunProgram(id uint32, args []Register) (Register, error) {
	code, ok := vm.programs[id]
	if !ok {
		return Register{}, fmt.Errorf("%w: %d", ErrNoProgram, id)
	}

	st := &execState{args: args}
	d := NewDecoder(code)

	for {
		ins, ok := d.Next()
		if !ok {
			// Implicit halt.
			return Register{}, nil
		}

		switch ins.Op {
		case OpHalt:
			return Register{}, nil

		case OpLoadImmediate:
			st.temps[ins.Dst] = Register{Tag: ins.Tag, Value: ins.Imm}

		case OpLoadArgument:
			st.temps[ins.Dst] = st.args[ins.A]

		case OpLoadLocal:
			st.temps[ins.Dst] = st.locals[ins.A]

		case OpStoreLocal:
			st.locals[ins.Dst] = st.temps[ins.A]

		case OpGetField:
			st.temps[ins.Dst] = vm.environment().GetField(st.temps[ins.A], ins.Sym)

		case OpSetField:
			vm.environment().SetField(st.temps[ins.A], ins.Sym, st.temps[ins.B])

		case OpAdd, OpSub, OpMul, OpDiv:
			st.temps[ins.Dst] = arith(ins.Op, st.temps[ins.A], st.temps[ins.B])

		case OpLessThan, OpLessOrEqual, OpEqual, OpGreaterOrEqual, OpGreaterThan:
			st.temps[ins.Dst] = Register{Tag: vm.boolTag, Value: compare(ins.Op, st.temps[ins.A], st.temps[ins.B])}

		case OpJump:
			d.Seek(int(ins.Imm))

		case OpJumpTrue:
			if st.temps[ins.A].Truthy() {
				d.Seek(int(ins.Imm))
			}

		case OpJumpFalse:
			if !st.temps[ins.A].Truthy() {
				d.Seek(int(ins.Imm))
			}

		case OpPush:
			st.stack = append(st.stack, st.temps[ins.A])

		case OpCall:
			// The callee takes the whole accumulated stack in push order;
			// the stack starts over for the next call.
			st.temps[ins.Dst] = vm.environment().Call(ins.Sym, st.stack)
			st.stack = nil

		case OpReturn:
			return st.temps[ins.A], nil
		}
	}
}

func (vm *VM) environment() Environment {
	if vm.env == nil {
		panic("hookvm: program needs a host environment but none is bound")
	}
	return vm.env
}

// arith combines two payloads as unsigned 32-bit integers. The result keeps
// the left operand's tag; tags come from the host or from decoded
// immediates, never from the VM itself. Division by zero yields null.
func arith(op Opcode, left, right Register) Register {
	switch op {
	case OpAdd:
		return Register{Tag: left.Tag, Value: left.Value + right.Value}
	case OpSub:
		return Register{Tag: left.Tag, Value: left.Value - right.Value}
	case OpMul:
		return Register{Tag: left.Tag, Value: left.Value * right.Value}
	case OpDiv:
		if right.Value == 0 {
			return Register{}
		}
		return Register{Tag: left.Tag, Value: left.Value / right.Value}
	}
	panic(fmt.Sprintf("arith: not an arithmetic opcode: %s", op))
}

// compare returns 1 or 0 for a payload comparison.
func compare(op Opcode, left, right Register) uint32 {
	var ok bool
	switch op {
	case OpLessThan:
		ok = left.Value < right.Value
	case OpLessOrEqual:
		ok = left.Value <= right.Value
	case OpEqual:
		ok = left.Tag == right.Tag && left.Value == right.Value
	case OpGreaterOrEqual:
		ok = left.Value >= right.Value
	case OpGreaterThan:
		ok = left.Value > right.Value
	default:
		panic(fmt.Sprintf("compare: not a comparison opcode: %s", op))
	}
	if ok {
		return 1
	}
	return 0
}
