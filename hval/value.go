// Package hval wraps the host's reference-counted values in handles with
// explicit ownership. The host manages reference counts itself; this package
// only bookkeeps who is responsible for the single decrement an owned
// reference is due, so that transferring a value back across the boundary
// releases it exactly once and never twice.
package hval

import "simhook/abi"

// RefTable is the host's reference-count facility, an external collaborator.
// Implementations must tolerate values whose tags do not refer to counted
// objects (numbers, null) by treating Incref/Decref as no-ops for them.
type RefTable interface {
	Incref(v abi.RawValue)
	Decref(v abi.RawValue)
}

// Value is a handle to one host value. Owned handles release their reference
// exactly once, through either Release or Move; borrowed handles never do.
type Value struct {
	raw   abi.RawValue
	refs  RefTable
	owned bool
}

// TakeOwned adopts a reference the host has already transferred to us, as
// dispatch arguments arrive. No increment happens; the handle is responsible
// for the eventual decrement.
func TakeOwned(raw abi.RawValue, refs RefTable) *Value {
	return &Value{raw: raw, refs: refs, owned: true}
}

// Borrow wraps a value without taking ownership. Release and Move on a
// borrowed handle do not touch the reference count.
func Borrow(raw abi.RawValue, refs RefTable) *Value {
	return &Value{raw: raw, refs: refs}
}

// Retain wraps a value and takes a new reference of its own.
func Retain(raw abi.RawValue, refs RefTable) *Value {
	if refs != nil {
		refs.Incref(raw)
	}
	return &Value{raw: raw, refs: refs, owned: true}
}

// Null returns an owned handle to the host's null value.
func Null(refs RefTable) *Value {
	return &Value{raw: abi.Null, refs: refs, owned: true}
}

// Raw returns the underlying host value without affecting ownership.
func (v *Value) Raw() abi.RawValue {
	return v.raw
}

// Move transfers ownership of the reference out of the handle and returns
// the raw value. The handle's own release is suppressed from this point on,
// so the reference is handed over without a decrement; the recipient (the
// host, after dispatch) is now responsible for it.
func (v *Value) Move() abi.RawValue {
	v.owned = false
	return v.raw
}

// Release decrements the reference if the handle still owns it. Safe to call
// more than once and after Move; only the first call on an owned handle does
// anything.
func (v *Value) Release() {
	if !v.owned {
		return
	}
	v.owned = false
	if v.refs != nil {
		v.refs.Decref(v.raw)
	}
}
