// Package manifest handles simhook.toml hook declarations: a declarative,
// ordered list of hooks applied in one explicit initialization pass, instead
// of hooks announcing themselves from scattered static initializers.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"simhook/hooks"
)

// Manifest represents a simhook.toml file.
type Manifest struct {
	Project Project `toml:"project"`
	Hooks   []Hook  `toml:"hook"`

	// Dir is the directory containing the simhook.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Hook declares one bytecode hook. The target is either a proc path
// (resolved through the context's proc directory) or an explicit identifier;
// the program comes from a file relative to the manifest or from a program
// store by name.
type Hook struct {
	Proc    string `toml:"proc"`
	ID      uint32 `toml:"id"`
	Program string `toml:"program"`
	Store   string `toml:"store"`
}

// ProgramSource supplies bytecode for store-backed hook entries.
// *store.Store satisfies it.
type ProgramSource interface {
	Get(name string) ([]byte, error)
}

// Load parses a simhook.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "simhook.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every hook entry names exactly one target and one
// program source.
func (m *Manifest) Validate() error {
	for i, h := range m.Hooks {
		if h.Proc == "" && h.ID == 0 {
			return fmt.Errorf("hook %d: needs a proc path or an id", i)
		}
		if h.Proc != "" && h.ID != 0 {
			return fmt.Errorf("hook %d: proc and id are mutually exclusive", i)
		}
		if h.Program == "" && h.Store == "" {
			return fmt.Errorf("hook %d: needs a program file or a store name", i)
		}
		if h.Program != "" && h.Store != "" {
			return fmt.Errorf("hook %d: program and store are mutually exclusive", i)
		}
	}
	return nil
}

// Apply registers every declared hook against the context, in declaration
// order. Store-backed entries resolve through progs, which may be nil when
// the manifest has none. The first failure stops the pass; earlier
// registrations stay installed.
func (m *Manifest) Apply(ctx *hooks.Context, progs ProgramSource) error {
	for i, h := range m.Hooks {
		code, err := m.loadProgram(h, progs)
		if err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}

		if h.Proc != "" {
			err = ctx.HookBytecodeProc(h.Proc, code)
		} else {
			err = ctx.HookBytecode(hooks.ProcID(h.ID), code)
		}
		if err != nil {
			return fmt.Errorf("hook %d (%s): %w", i, h.target(), err)
		}
	}
	return nil
}

func (m *Manifest) loadProgram(h Hook, progs ProgramSource) ([]byte, error) {
	if h.Program != "" {
		code, err := os.ReadFile(filepath.Join(m.Dir, h.Program))
		if err != nil {
			return nil, fmt.Errorf("cannot read program %s: %w", h.Program, err)
		}
		return code, nil
	}
	if progs == nil {
		return nil, fmt.Errorf("store program %q but no program source", h.Store)
	}
	return progs.Get(h.Store)
}

func (h Hook) target() string {
	if h.Proc != "" {
		return h.Proc
	}
	return fmt.Sprintf("id %d", h.ID)
}
