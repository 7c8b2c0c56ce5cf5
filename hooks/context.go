package hooks

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"simhook/hookvm"
	"simhook/hval"
)

// DefaultDiagnosticProc is the host procedure hook errors are reported
// through when Config does not name one.
const DefaultDiagnosticProc = "/proc/stack_trace"

// Config wires a Context to its external collaborators. Procs, Symbols, Env,
// and Refs are owned by the host side; any of them may be nil if no hook
// needs that surface.
type Config struct {
	Procs   ProcDirectory
	Symbols SymbolTable
	Env     HostEnv
	Refs    hval.RefTable

	// DiagnosticProc overrides DefaultDiagnosticProc.
	DiagnosticProc string

	Logger commonlog.Logger
}

// Context is the explicit dispatch state for one execution context: the hook
// registry, the VM and its program table, the collaborator surfaces, and the
// fanout channels. Nothing here is process-global; a host whose threading
// model allows it shares hooks by sharing the Context, and otherwise each
// dispatching thread builds its own.
type Context struct {
	id       uuid.UUID
	log      commonlog.Logger
	registry *Registry
	vm       *hookvm.VM
	procs    ProcDirectory
	symbols  SymbolTable
	env      HostEnv
	refs     hval.RefTable
	runtime  RuntimeFanout
	trace    TraceFanout
	diagProc string
	ready    bool
}

// New creates a dispatch context from its collaborators.
func New(cfg Config) *Context {
	c := &Context{
		id:       uuid.New(),
		log:      cfg.Logger,
		procs:    cfg.Procs,
		symbols:  cfg.Symbols,
		env:      cfg.Env,
		refs:     cfg.Refs,
		diagProc: cfg.DiagnosticProc,
	}
	if c.log == nil {
		c.log = commonlog.GetLogger("simhook")
	}
	if c.diagProc == "" {
		c.diagProc = DefaultDiagnosticProc
	}
	c.vm = hookvm.NewVM(&vmEnv{ctx: c})
	c.registry = NewRegistry(c.vm)
	return c
}

// ID returns the context's identity, carried into log output so multiple
// contexts in one process stay distinguishable.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Registry returns the context's hook registry.
func (c *Context) Registry() *Registry {
	return c.registry
}

// VM returns the context's virtual machine.
func (c *Context) VM() *hookvm.VM {
	return c.vm
}

// Runtime returns the runtime-error fanout.
func (c *Context) Runtime() *RuntimeFanout {
	return &c.runtime
}

// Trace returns the per-instruction trace fanout.
func (c *Context) Trace() *TraceFanout {
	return &c.trace
}

// Attach runs the external detour installer and marks the context ready for
// registration. A nil installer attaches without installing anything, which
// is how in-process tests drive the context. Installer faults surface as
// ErrUnknownFailure; their details belong to the installer, not to this
// subsystem.
func (c *Context) Attach(installer DetourInstaller) error {
	if installer != nil {
		if err := installer.Install(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownFailure, err)
		}
	}
	c.ready = true
	c.log.Debugf("context %s attached", c.id)
	return nil
}

// HookProc installs a native hook by procedure path. Fails with
// ErrNotInitialized before Attach, ErrProcNotFound if the path does not
// resolve, or ErrAlreadyHooked.
func (c *Context) HookProc(path string, fn ProcHook) error {
	id, err := c.resolve(path)
	if err != nil {
		return err
	}
	return c.HookProcID(id, fn)
}

// HookProcID installs a native hook by procedure identifier.
func (c *Context) HookProcID(id ProcID, fn ProcHook) error {
	if !c.ready {
		return ErrNotInitialized
	}
	return c.registry.RegisterProc(id, fn)
}

// HookBytecode installs a VM-program hook by procedure identifier.
func (c *Context) HookBytecode(id ProcID, bytecode []byte) error {
	if !c.ready {
		return ErrNotInitialized
	}
	return c.registry.RegisterBytecode(id, bytecode)
}

// HookBytecodeProc installs a VM-program hook by procedure path.
func (c *Context) HookBytecodeProc(path string, bytecode []byte) error {
	id, err := c.resolve(path)
	if err != nil {
		return err
	}
	return c.HookBytecode(id, bytecode)
}

// ClearHooks removes every registry entry for this context. Loaded VM
// programs survive, per the registry's contract.
func (c *Context) ClearHooks() {
	c.registry.Clear()
}

// Reset clears the registry and the VM's program table together.
func (c *Context) Reset() {
	c.registry.Clear()
	c.vm.RemoveAll()
}

// NullValue returns an owned handle to the host's null, for handlers that
// produce no meaningful result.
func (c *Context) NullValue() *hval.Value {
	return hval.Null(c.refs)
}

// Refs exposes the host's reference-count table for handlers that retain
// values beyond the call.
func (c *Context) Refs() hval.RefTable {
	return c.refs
}

func (c *Context) resolve(path string) (ProcID, error) {
	if !c.ready {
		return 0, ErrNotInitialized
	}
	if c.procs == nil {
		return 0, ErrProcNotFound
	}
	id, ok := c.procs.Resolve(path)
	if !ok {
		return 0, ErrProcNotFound
	}
	return id, nil
}
