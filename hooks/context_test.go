package hooks

import (
	"errors"
	"testing"
)

func TestHookBeforeAttachFails(t *testing.T) {
	c := New(Config{Procs: fakeDirectory{"/proc/f": 1}})

	if err := c.HookProcID(1, nopHook); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("HookProcID = %v, want ErrNotInitialized", err)
	}
	if err := c.HookProc("/proc/f", nopHook); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("HookProc = %v, want ErrNotInitialized", err)
	}
	if err := c.HookBytecode(1, haltProgram()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("HookBytecode = %v, want ErrNotInitialized", err)
	}
	if c.Registry().Len() != 0 {
		t.Errorf("registry has %d entries, want 0", c.Registry().Len())
	}
}

func TestAttachThenHook(t *testing.T) {
	c := attached(Config{Procs: fakeDirectory{"/proc/f": 7}})

	if err := c.HookProc("/proc/f", nopHook); err != nil {
		t.Fatalf("HookProc: %v", err)
	}
	if _, ok := c.Registry().Lookup(7); !ok {
		t.Error("hook not registered under the resolved identifier")
	}
}

func TestHookUnknownPath(t *testing.T) {
	c := attached(Config{Procs: fakeDirectory{}})

	if err := c.HookProc("/proc/missing", nopHook); !errors.Is(err, ErrProcNotFound) {
		t.Errorf("HookProc = %v, want ErrProcNotFound", err)
	}
	if err := c.HookBytecodeProc("/proc/missing", haltProgram()); !errors.Is(err, ErrProcNotFound) {
		t.Errorf("HookBytecodeProc = %v, want ErrProcNotFound", err)
	}
}

func TestHookWithoutDirectory(t *testing.T) {
	c := attached(Config{})

	if err := c.HookProc("/proc/f", nopHook); !errors.Is(err, ErrProcNotFound) {
		t.Errorf("HookProc = %v, want ErrProcNotFound", err)
	}
}

func TestAttachInstallerFailure(t *testing.T) {
	c := New(Config{})
	boom := errors.New("patch site busy")

	err := c.Attach(failingInstaller{err: boom})
	if !errors.Is(err, ErrUnknownFailure) {
		t.Errorf("Attach = %v, want ErrUnknownFailure", err)
	}

	// The context never became ready.
	if err := c.HookProcID(1, nopHook); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("HookProcID after failed Attach = %v, want ErrNotInitialized", err)
	}
}

func TestContextIdentity(t *testing.T) {
	a := New(Config{})
	b := New(Config{})
	if a.ID() == b.ID() {
		t.Error("two contexts share an identity")
	}
}

func TestClearHooksKeepsPrograms(t *testing.T) {
	c := attached(Config{})
	if err := c.HookBytecode(3, haltProgram()); err != nil {
		t.Fatalf("HookBytecode: %v", err)
	}

	c.ClearHooks()

	if c.Registry().Len() != 0 {
		t.Error("registry not empty after ClearHooks")
	}
	if !c.VM().HasProgram(3) {
		t.Error("ClearHooks dropped a loaded program")
	}
}

func TestResetClearsBothSides(t *testing.T) {
	c := attached(Config{})
	if err := c.HookBytecode(3, haltProgram()); err != nil {
		t.Fatalf("HookBytecode: %v", err)
	}

	c.Reset()

	if c.Registry().Len() != 0 {
		t.Error("registry not empty after Reset")
	}
	if c.VM().HasProgram(3) {
		t.Error("program survived Reset")
	}
}

func TestNullValue(t *testing.T) {
	refs := newCountRefs()
	c := attached(Config{Refs: refs})

	v := c.NullValue()
	if !v.Raw().IsNull() {
		t.Errorf("NullValue wraps %v", v.Raw())
	}
	v.Release()
	if refs.totalDecs() != 1 {
		t.Errorf("decrements = %d, want 1", refs.totalDecs())
	}
}
