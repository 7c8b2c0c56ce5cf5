package hooks

import (
	"simhook/abi"
)

// fakeDirectory resolves paths from a fixed map.
type fakeDirectory map[string]ProcID

func (d fakeDirectory) Resolve(path string) (ProcID, bool) {
	id, ok := d[path]
	return id, ok
}

// fakeSymbols resolves 16-bit indices from a fixed map.
type fakeSymbols map[uint16]string

func (s fakeSymbols) Name(id uint16) (string, bool) {
	name, ok := s[id]
	return name, ok
}

// fakeHost records all traffic crossing the host surface.
type fakeHost struct {
	fields     map[string]abi.RawValue
	setFields  []hostFieldWrite
	calls      []hostCall
	callResult abi.RawValue
	interned   []string
}

type hostFieldWrite struct {
	obj  abi.RawValue
	name string
	val  abi.RawValue
}

type hostCall struct {
	path string
	args []abi.RawValue
}

func newFakeHost() *fakeHost {
	return &fakeHost{fields: make(map[string]abi.RawValue)}
}

func (h *fakeHost) GetField(obj abi.RawValue, name string) abi.RawValue {
	return h.fields[name]
}

func (h *fakeHost) SetField(obj abi.RawValue, name string, val abi.RawValue) {
	h.setFields = append(h.setFields, hostFieldWrite{obj, name, val})
}

func (h *fakeHost) CallProc(path string, args []abi.RawValue) abi.RawValue {
	copied := make([]abi.RawValue, len(args))
	copy(copied, args)
	h.calls = append(h.calls, hostCall{path, copied})
	return h.callResult
}

// InternString hands out string-tagged values whose payload indexes interned,
// so assertions can map a value back to its text.
func (h *fakeHost) InternString(s string) abi.RawValue {
	h.interned = append(h.interned, s)
	return abi.RawValue{Tag: abi.TagString, Data: uint32(len(h.interned))}
}

func (h *fakeHost) internedText(v abi.RawValue) string {
	if v.Tag != abi.TagString || v.Data == 0 || int(v.Data) > len(h.interned) {
		return ""
	}
	return h.interned[v.Data-1]
}

// countRefs tallies reference-count traffic per value.
type countRefs struct {
	incs map[abi.RawValue]int
	decs map[abi.RawValue]int
}

func newCountRefs() *countRefs {
	return &countRefs{
		incs: make(map[abi.RawValue]int),
		decs: make(map[abi.RawValue]int),
	}
}

func (r *countRefs) Incref(v abi.RawValue) { r.incs[v]++ }
func (r *countRefs) Decref(v abi.RawValue) { r.decs[v]++ }

func (r *countRefs) totalDecs() int {
	n := 0
	for _, c := range r.decs {
		n += c
	}
	return n
}

// failingInstaller always fails Install.
type failingInstaller struct{ err error }

func (i failingInstaller) Install() error { return i.err }

// attached builds a ready-to-dispatch context over the given fakes.
func attached(cfg Config) *Context {
	c := New(cfg)
	if err := c.Attach(nil); err != nil {
		panic(err)
	}
	return c
}
