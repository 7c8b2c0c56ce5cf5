package hval

import (
	"testing"

	"simhook/abi"
)

// countingRefs tallies reference-count traffic per value.
type countingRefs struct {
	incs map[abi.RawValue]int
	decs map[abi.RawValue]int
}

func newCountingRefs() *countingRefs {
	return &countingRefs{
		incs: make(map[abi.RawValue]int),
		decs: make(map[abi.RawValue]int),
	}
}

func (r *countingRefs) Incref(v abi.RawValue) { r.incs[v]++ }
func (r *countingRefs) Decref(v abi.RawValue) { r.decs[v]++ }

var testRaw = abi.RawValue{Tag: abi.TagString, Data: 42}

func TestTakeOwnedReleasesOnce(t *testing.T) {
	refs := newCountingRefs()
	v := TakeOwned(testRaw, refs)

	if refs.incs[testRaw] != 0 {
		t.Error("TakeOwned incremented a reference it was given")
	}

	v.Release()
	v.Release()
	v.Release()

	if got := refs.decs[testRaw]; got != 1 {
		t.Errorf("decrements = %d, want exactly 1", got)
	}
}

func TestMoveSuppressesRelease(t *testing.T) {
	refs := newCountingRefs()
	v := TakeOwned(testRaw, refs)

	if raw := v.Move(); raw != testRaw {
		t.Errorf("Move() = %v, want %v", raw, testRaw)
	}

	v.Release()

	if got := refs.decs[testRaw]; got != 0 {
		t.Errorf("decrements after Move = %d, want 0", got)
	}
}

func TestBorrowNeverReleases(t *testing.T) {
	refs := newCountingRefs()
	v := Borrow(testRaw, refs)

	v.Move()
	v.Release()

	if len(refs.incs) != 0 || len(refs.decs) != 0 {
		t.Errorf("borrowed handle touched the count: incs=%v decs=%v", refs.incs, refs.decs)
	}
}

func TestRetainBalances(t *testing.T) {
	refs := newCountingRefs()
	v := Retain(testRaw, refs)

	if got := refs.incs[testRaw]; got != 1 {
		t.Fatalf("increments = %d, want 1", got)
	}

	v.Release()

	if got := refs.decs[testRaw]; got != 1 {
		t.Errorf("decrements = %d, want 1", got)
	}
}

func TestNullHandle(t *testing.T) {
	refs := newCountingRefs()
	v := Null(refs)
	if !v.Raw().IsNull() {
		t.Errorf("Null handle wraps %v", v.Raw())
	}
	v.Release()
	if got := refs.decs[abi.Null]; got != 1 {
		t.Errorf("decrements = %d, want 1", got)
	}
}

func TestNilRefTable(t *testing.T) {
	v := TakeOwned(testRaw, nil)
	v.Release()
	r := Retain(testRaw, nil)
	r.Release()
}
