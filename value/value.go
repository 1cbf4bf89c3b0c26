// Package value implements the tagged Value union shared by every layer of
// the knowledge base and its canonical byte codec. Rather than a
// polymorphic value class relying on runtime type testing, this package
// uses a Kind tag and one populated field per kind, with typed projections
// returning ok=false on a mismatch instead of panicking.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the payload carried by a Value.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindList
	KindSetList
	KindPointer
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSetList:
		return "setlist"
	case KindPointer:
		return "pointer"
	case KindNone:
		return "none"
	default:
		return "unknown"
	}
}

// ElementRef names the position of a Value inside a slot, allowing a
// Location to continue below a specific stored value.
type ElementRef struct {
	Value Value
}

// LocElem is one element of a Location: either a slot name or an ElementRef.
// The zero value's IsRef distinguishes the two; Slot is meaningful only when
// IsRef is false.
type LocElem struct {
	IsRef bool
	Slot  string
	Ref   ElementRef
}

// Slot builds a plain slot-name location element.
func Slot(name string) LocElem { return LocElem{Slot: name} }

// Ref builds an ElementRef location element naming v.
func Ref(v Value) LocElem { return LocElem{IsRef: true, Ref: ElementRef{Value: v}} }

// Location is a non-empty ordered sequence of elements; element 0 is always
// the name of a primitive entity, carried directly (not wrapped in a
// LocElem) since it can never be an ElementRef.
type Location struct {
	Entity string
	Path   []LocElem
}

// NewLocation builds a Location for entity with the given trailing path.
func NewLocation(entity string, path ...LocElem) Location {
	return Location{Entity: entity, Path: path}
}

// IsQuery reports whether the location ends in a Slot (entity-slot pair).
func (l Location) IsQuery() bool {
	return len(l.Path) > 0 && !l.Path[len(l.Path)-1].IsRef
}

// IsBelief reports whether the location ends in an ElementRef.
func (l Location) IsBelief() bool {
	return len(l.Path) > 0 && l.Path[len(l.Path)-1].IsRef
}

// Parent returns the location with its final element removed.
func (l Location) Parent() Location {
	if len(l.Path) == 0 {
		return l
	}
	return Location{Entity: l.Entity, Path: l.Path[:len(l.Path)-1]}
}

// LastSlot returns the slot name of the final path element, if it is a slot.
func (l Location) LastSlot() (string, bool) {
	if len(l.Path) == 0 || l.Path[len(l.Path)-1].IsRef {
		return "", false
	}
	return l.Path[len(l.Path)-1].Slot, true
}

// String renders the location in CLI/REPL wire form: <a, b, =c, d>.
func (l Location) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(l.Entity)
	for _, e := range l.Path {
		b.WriteString(", ")
		if e.IsRef {
			b.WriteByte('=')
			b.WriteString(e.Ref.Value.renderToken())
		} else {
			b.WriteString(e.Slot)
		}
	}
	b.WriteByte('>')
	return b.String()
}

// Equal reports whether two locations address the same position.
func (l Location) Equal(o Location) bool {
	if l.Entity != o.Entity || len(l.Path) != len(o.Path) {
		return false
	}
	for i := range l.Path {
		a, b := l.Path[i], o.Path[i]
		if a.IsRef != b.IsRef {
			return false
		}
		if a.IsRef {
			if !a.Ref.Value.Equal(b.Ref.Value) {
				return false
			}
		} else if a.Slot != b.Slot {
			return false
		}
	}
	return true
}

// Value is the tagged union: Bool | Int64 | Float64 | String | List |
// SetList | Pointer | None.
type Value struct {
	Kind Kind
	B    bool
	I    int64
	F    float64
	S    string
	List []Value // used for both KindList and KindSetList
	Ptr  Location
}

func Bool(b bool) Value          { return Value{Kind: KindBool, B: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, F: f} }
func String(s string) Value      { return Value{Kind: KindString, S: s} }
func List(vs []Value) Value      { return Value{Kind: KindList, List: vs} }
func SetList(vs []Value) Value   { return Value{Kind: KindSetList, List: vs} }
func Pointer(l Location) Value   { return Value{Kind: KindPointer, Ptr: l} }
func None() Value                { return Value{Kind: KindNone} }

// AsBool projects v as a bool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsInt projects v as an int64.
func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I, true
}

// AsFloat projects v as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.F, true
}

// AsString projects v as a string.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsList projects v as a list of values, accepting both List and SetList.
func (v Value) AsList() ([]Value, bool) {
	if v.Kind != KindList && v.Kind != KindSetList {
		return nil, false
	}
	return v.List, true
}

// AsPointer projects v as a Location.
func (v Value) AsPointer() (Location, bool) {
	if v.Kind != KindPointer {
		return Location{}, false
	}
	return v.Ptr, true
}

// IsNone reports whether v is the None value.
func (v Value) IsNone() bool { return v.Kind == KindNone }

// Equal reports deep equality. Multiple textual renderings of a double are
// not canonical, but in-memory comparison is always exact float64 equality
// here.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.B == o.B
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.S == o.S
	case KindList, KindSetList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindPointer:
		return v.Ptr.Equal(o.Ptr)
	case KindNone:
		return true
	default:
		return false
	}
}

// String renders v for display (CLI output, error messages); it is not the
// canonical byte encoding.
func (v Value) String() string { return v.renderToken() }

// renderToken gives a human string for display and for the wire-form
// ElementRef token; it is not the canonical byte encoding, and encstore's
// h2 hash does not use it.
func (v Value) renderToken() string {
	switch v.Kind {
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindString:
		return v.S
	case KindPointer:
		return v.Ptr.String()
	case KindNone:
		return ""
	case KindList, KindSetList:
		if len(v.List) == 0 {
			return ""
		}
		// Only the first element is rendered, so lists sharing a first
		// element render identically.
		return v.List[0].renderToken()
	default:
		return fmt.Sprintf("%v", v)
	}
}
