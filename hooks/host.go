package hooks

import "simhook/abi"

// ProcID is the stable integer key naming one host procedure.
type ProcID uint32

// ProcDirectory resolves human-readable procedure paths to identifiers. The
// host's proc table is discovered by an external collaborator; this is its
// lookup surface.
type ProcDirectory interface {
	Resolve(path string) (ProcID, bool)
}

// SymbolTable resolves the 16-bit string indices embedded in bytecode to the
// host's interned strings.
type SymbolTable interface {
	Name(id uint16) (string, bool)
}

// HostEnv is the host's object and call surface: field storage, procedure
// invocation, and string interning all belong to the host. The dispatcher
// and VM only route indices and values through it.
type HostEnv interface {
	GetField(obj abi.RawValue, name string) abi.RawValue
	SetField(obj abi.RawValue, name string, val abi.RawValue)
	CallProc(path string, args []abi.RawValue) abi.RawValue
	InternString(s string) abi.RawValue
}

// DetourInstaller installs the low-level function detours that redirect the
// host's call path into this subsystem. Trampoline creation and code
// patching are entirely its concern; Attach only needs to know whether it
// succeeded.
type DetourInstaller interface {
	Install() error
}
