package value

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, v Value) {
	t.Helper()
	enc := ToBytes(v)
	got, n, err := ParseValue(enc)
	if err != nil {
		t.Fatalf("ParseValue(%q): %v", enc, err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d of %d bytes", n, len(enc))
	}
	if !got.Equal(v) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, v)
	}
}

func TestRoundTripScalars(t *testing.T) {
	roundTrip(t, Bool(true))
	roundTrip(t, Bool(false))
	roundTrip(t, Int(0))
	roundTrip(t, Int(-12345))
	roundTrip(t, Float(3.14159))
	roundTrip(t, Float(-0.5))
	roundTrip(t, String(""))
	roundTrip(t, String("hello world"))
	roundTrip(t, None())
}

func TestRoundTripStringEscapes(t *testing.T) {
	roundTrip(t, String("a\tb\nc\x00d\x01e"))
	roundTrip(t, String("unicode: é中文"))
}

func TestRoundTripList(t *testing.T) {
	roundTrip(t, List([]Value{Int(1), String("x"), Bool(true)}))
	roundTrip(t, List(nil))
}

func TestRoundTripPointer(t *testing.T) {
	loc := NewLocation("bob", Slot("livesin"), Ref(String("tokyo")), Slot("weight"))
	roundTrip(t, Pointer(loc))
}

func TestRoundTripNestedPointer(t *testing.T) {
	inner := NewLocation("tokyo", Slot("population"))
	outer := NewLocation("bob", Slot("favorite"), Ref(Pointer(inner)))
	roundTrip(t, Pointer(outer))
}

func TestLocationStringForm(t *testing.T) {
	loc := NewLocation("bob", Slot("livesin"), Ref(String("tokyo")))
	got := loc.String()
	want := "<bob, livesin, =tokyo>"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodingNeverContainsRawControlBytes(t *testing.T) {
	loc := NewLocation("bob", Slot("livesin"), Ref(String("tokyo")), Slot("weight"))
	values := []Value{
		Int(-12345),
		Float(-0.5),
		List([]Value{Int(1), Int(22), Int(333), String("x")}),
		Pointer(loc),
	}
	for _, v := range values {
		enc := ToBytes(v)
		if bytes.IndexByte(enc, 0x00) >= 0 {
			t.Fatalf("encoding of %+v contains a raw NUL byte: %q", v, enc)
		}
		if bytes.IndexByte(enc, '\t') >= 0 || bytes.IndexByte(enc, '\n') >= 0 {
			t.Fatalf("encoding of %+v contains a raw tab or newline: %q", v, enc)
		}
	}
}

func TestLocationIsQueryIsBelief(t *testing.T) {
	q := NewLocation("bob", Slot("livesin"))
	if !q.IsQuery() || q.IsBelief() {
		t.Fatalf("expected query location")
	}
	b := NewLocation("bob", Slot("livesin"), Ref(String("tokyo")))
	if b.IsQuery() || !b.IsBelief() {
		t.Fatalf("expected belief location")
	}
}
