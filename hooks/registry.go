package hooks

import (
	"sync"

	"simhook/hookvm"
	"simhook/hval"
)

// ProcHook is a natively compiled hook body. It receives the dispatch
// context, the call-source and invoking-user references (borrowed), and the
// call's arguments (owned; the handler may consume, return, or discard
// them). It returns the call's result or a RuntimeError.
type ProcHook func(ctx *Context, src, usr *hval.Value, args []*hval.Value) (*hval.Value, error)

// HookKind distinguishes the two hook flavors.
type HookKind int

const (
	KindNative  HookKind = iota // a compiled ProcHook function
	KindProgram                 // a program loaded into the VM
)

// Entry is one installed hook. Entries are created by registration,
// destroyed by Clear, and never mutated in place.
type Entry struct {
	Kind   HookKind
	Native ProcHook // set for KindNative
}

// Registry maps procedure identifiers to hooks. At most one entry exists per
// identifier; registering over an occupied slot fails rather than
// overwriting. The insert-if-absent check is atomic under the registry's
// mutex.
type Registry struct {
	mu      sync.Mutex
	entries map[ProcID]Entry
	vm      *hookvm.VM
}

// NewRegistry creates an empty registry whose program hooks load into vm.
func NewRegistry(vm *hookvm.VM) *Registry {
	return &Registry{
		entries: make(map[ProcID]Entry),
		vm:      vm,
	}
}

// RegisterProc installs a native hook for the identifier. Returns
// ErrAlreadyHooked if any hook occupies the slot.
func (r *Registry) RegisterProc(id ProcID, fn ProcHook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, occupied := r.entries[id]; occupied {
		return ErrAlreadyHooked
	}
	r.entries[id] = Entry{Kind: KindNative, Native: fn}
	return nil
}

// RegisterBytecode installs a VM-program hook for the identifier and loads
// the bytecode into the VM's program table. The uniqueness rule is the same
// as RegisterProc; on failure the program table is untouched.
func (r *Registry) RegisterBytecode(id ProcID, bytecode []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, occupied := r.entries[id]; occupied {
		return ErrAlreadyHooked
	}
	r.entries[id] = Entry{Kind: KindProgram}
	r.vm.AddProgram(uint32(id), bytecode)
	return nil
}

// Lookup returns the hook for the identifier, if any. Read-only; used by the
// dispatcher.
func (r *Registry) Lookup(id ProcID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Len returns the number of installed hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes every registry entry. Programs already loaded into the VM
// stay loaded; they are unreachable until re-registered, and re-registering
// overwrites them. Context.Reset clears both sides.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[ProcID]Entry)
}
