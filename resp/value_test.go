package resp

import "testing"

var equalTests = []struct {
	a, b Value
	want bool
}{
	{NewBulkStringFromString("foo"), NewBulkStringFromString("foo"), true},
	{NewBulkStringFromString("foo"), NewBulkStringFromString("bar"), false},
	{NewInteger(5), NewInteger(5), true},
	{NewInteger(5), NewInteger(6), false},
	{NewNull(), NewNull(), true},
	{NewNull(), NewBulkString(nil), false},
	{
		NewArray([]Value{NewInteger(1), NewBulkStringFromString("x")}),
		NewArray([]Value{NewInteger(1), NewBulkStringFromString("x")}),
		true,
	},
	{
		NewArray([]Value{NewInteger(1)}),
		NewArray([]Value{NewInteger(1), NewInteger(2)}),
		false,
	},
}

func TestEqual(t *testing.T) {
	for _, tt := range equalTests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewArray([]Value{NewBulkStringFromString("foo")})
	clone := orig.Clone()

	clone.Arr[0].Str[0] = 'X'

	if orig.Arr[0].Str[0] == 'X' {
		t.Fatal("Clone shared backing array with original")
	}
	if !orig.Equal(NewArray([]Value{NewBulkStringFromString("foo")})) {
		t.Fatal("original mutated through clone")
	}
}

func TestNewErrorCarriesMessage(t *testing.T) {
	v := NewError("boom")
	if v.Kind != Error {
		t.Fatalf("Kind = %v, want Error", v.Kind)
	}
	if string(v.Str) != "boom" {
		t.Fatalf("Str = %q, want %q", v.Str, "boom")
	}
}

func TestBulkStringNilIsDistinctFromEmpty(t *testing.T) {
	null := NewBulkString(nil)
	empty := NewBulkString([]byte{})
	if null.Equal(empty) {
		t.Fatal("nil bulk string should not equal empty bulk string")
	}
	if null.String() != "$-1" {
		t.Fatalf("String() = %q, want %q", null.String(), "$-1")
	}
}
