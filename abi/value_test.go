package abi

import "testing"

func TestNullIsNull(t *testing.T) {
	if !Null.IsNull() {
		t.Error("Null.IsNull() = false")
	}
	if (RawValue{Tag: TagNumber, Data: 1}).IsNull() {
		t.Error("a number reported itself null")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    RawValue
		want bool
	}{
		{Null, false},
		{RawValue{Tag: TagNumber, Data: 0}, false},
		{RawValue{Tag: TagNumber, Data: 1}, true},
		{RawValue{Tag: TagString, Data: 3}, true},
	}
	for _, tc := range cases {
		if got := tc.v.Truthy(); got != tc.want {
			t.Errorf("%v.Truthy() = %v, want %v", tc.v, got, tc.want)
		}
	}
}
