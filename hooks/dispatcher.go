package hooks

import (
	"simhook/abi"
	"simhook/hookvm"
	"simhook/hval"
)

// ---------------------------------------------------------------------------
// Dispatch: the redirected call path lands here
// ---------------------------------------------------------------------------

// Dispatch resolves a procedure identifier against the registry and runs the
// matching hook. It returns (result, true) when a hook handled the call, or
// (null, false) to tell the host to run its own unmodified logic; the miss
// path has no side effects at all.
//
// Argument ownership transfers in with the call: every argument reference is
// adopted and released when dispatch finishes, except what a handler moves
// out. The result's reference transfers back to the host by Move, so the
// wrapper that produced it never decrements it.
func (c *Context) Dispatch(usr abi.RawValue, procType uint32, id ProcID, src abi.RawValue, args []abi.RawValue) (abi.RawValue, bool) {
	entry, hooked := c.registry.Lookup(id)
	if !hooked {
		return abi.Null, false
	}

	owned := make([]*hval.Value, len(args))
	for i, a := range args {
		owned[i] = hval.TakeOwned(a, c.refs)
	}
	defer func() {
		for _, v := range owned {
			v.Release()
		}
	}()

	switch entry.Kind {
	case KindNative:
		return c.dispatchNative(entry.Native, usr, src, owned), true
	case KindProgram:
		return c.dispatchProgram(id, args), true
	}
	return abi.Null, false
}

// dispatchNative runs a compiled hook body. A handler error never becomes a
// host fault: the host is not on the call stack during hook execution and
// has no way to unwind through us. The message goes to the host's diagnostic
// proc, once, and the call site sees null.
func (c *Context) dispatchNative(fn ProcHook, usr, src abi.RawValue, args []*hval.Value) abi.RawValue {
	result, err := fn(c, hval.Borrow(src, c.refs), hval.Borrow(usr, c.refs), args)
	if err != nil {
		c.reportHookError(err)
		return abi.Null
	}
	if result == nil {
		return abi.Null
	}
	return result.Move()
}

// dispatchProgram runs a VM program hook. Tags and payloads cross into the
// register representation verbatim, and back.
func (c *Context) dispatchProgram(id ProcID, args []abi.RawValue) abi.RawValue {
	regs := make([]hookvm.Register, len(args))
	for i, a := range args {
		regs[i] = hookvm.Register{Tag: a.Tag, Value: a.Data}
	}

	out, err := c.vm.RunProgram(uint32(id), regs)
	if err != nil {
		// Registry and program table disagree; report it like a hook error.
		c.reportHookError(err)
		return abi.Null
	}
	return abi.RawValue{Tag: out.Tag, Data: out.Value}
}

// DispatchEnvelope adapts a decoded call envelope to Dispatch, for the
// detour side of the boundary. When the call is handled the result is
// written to ret.
func (c *Context) DispatchEnvelope(e *abi.CallEnvelope, ret *abi.RawValue) bool {
	result, handled := c.Dispatch(e.Usr, e.ProcType, ProcID(e.ProcID), e.Src, e.Args)
	if handled && ret != nil {
		*ret = result
	}
	return handled
}

// OnRuntime is the runtime-error entry point: the detour installed on the
// host's fault-reporting path delivers each error string here.
func (c *Context) OnRuntime(message string) {
	c.runtime.Emit(message)
}

// OnInstruction is the per-instruction trace entry point. The returned
// pointer is always the one passed in.
func (c *Context) OnInstruction(ec *abi.ExecutionContext) *abi.ExecutionContext {
	return c.trace.OnInstruction(ec)
}

// reportHookError forwards a hook failure to the host's own diagnostic
// facility, invoked like any other procedure call. Exactly one invocation
// per failure.
func (c *Context) reportHookError(err error) {
	c.log.Errorf("hook error in context %s: %s", c.id, err.Error())
	if c.env == nil {
		return
	}
	c.env.CallProc(c.diagProc, []abi.RawValue{c.env.InternString(err.Error())})
}

// ---------------------------------------------------------------------------
// vmEnv: the VM's window onto the host
// ---------------------------------------------------------------------------

// vmEnv implements hookvm.Environment for a context. Field access and calls
// resolve their 16-bit name indices through the symbol table and land on the
// host; a callee that is itself hooked re-enters Dispatch instead.
type vmEnv struct {
	ctx *Context
}

func (e *vmEnv) GetField(obj hookvm.Register, name uint16) hookvm.Register {
	path, ok := e.symbolName(name)
	if !ok || e.ctx.env == nil {
		return hookvm.Register{}
	}
	raw := e.ctx.env.GetField(abi.RawValue{Tag: obj.Tag, Data: obj.Value}, path)
	return hookvm.Register{Tag: raw.Tag, Value: raw.Data}
}

func (e *vmEnv) SetField(obj hookvm.Register, name uint16, val hookvm.Register) {
	path, ok := e.symbolName(name)
	if !ok || e.ctx.env == nil {
		return
	}
	e.ctx.env.SetField(
		abi.RawValue{Tag: obj.Tag, Data: obj.Value},
		path,
		abi.RawValue{Tag: val.Tag, Data: val.Value},
	)
}

func (e *vmEnv) Call(name uint16, args []hookvm.Register) hookvm.Register {
	path, ok := e.symbolName(name)
	if !ok {
		return hookvm.Register{}
	}

	raws := make([]abi.RawValue, len(args))
	for i, a := range args {
		raws[i] = abi.RawValue{Tag: a.Tag, Data: a.Value}
	}

	// A hooked callee re-enters dispatch; anything else goes to the host.
	if e.ctx.procs != nil {
		if id, found := e.ctx.procs.Resolve(path); found {
			if _, hooked := e.ctx.registry.Lookup(id); hooked {
				out, _ := e.ctx.Dispatch(abi.Null, 0, id, abi.Null, raws)
				return hookvm.Register{Tag: out.Tag, Value: out.Data}
			}
		}
	}
	if e.ctx.env == nil {
		return hookvm.Register{}
	}
	out := e.ctx.env.CallProc(path, raws)
	return hookvm.Register{Tag: out.Tag, Value: out.Data}
}

func (e *vmEnv) symbolName(id uint16) (string, bool) {
	if e.ctx.symbols == nil {
		return "", false
	}
	return e.ctx.symbols.Name(id)
}
