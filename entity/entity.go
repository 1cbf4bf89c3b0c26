// Package entity implements Entity Views: immutable views over a (Layer,
// Location) pair. Rather than a class hierarchy of Entity/Slot/Context/
// Query/Belief types, a single View struct carries a kind tag and
// delegates every operation to the wrapped layer.
package entity

import (
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/value"
)

// Layer is the subset of theo2.Store (or any lower layer) that an
// EntityView needs. Views are layer-agnostic so the same package serves
// L1 and L2 callers alike.
type Layer interface {
	Get(loc value.Location) ([]value.Value, error)
	AddValue(loc value.Location, v value.Value) error
	DeleteValue(loc value.Location, errIfMissing bool) error
	EntityExists(name string) bool
	IsSlot(name string) bool
	IsContext(name string) bool
	CreatePrimitiveEntity(name string, generalization value.Location) error
}

// Kind classifies what an EntityView currently addresses.
type Kind int

const (
	KindEntity Kind = iota
	KindQuery
	KindBelief
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindQuery:
		return "query"
	case KindBelief:
		return "belief"
	default:
		return "unknown"
	}
}

// View is the single concrete Entity View type for entities, queries, and
// beliefs alike; Kind says which.
type View struct {
	layer Layer
	loc   value.Location
}

// New wraps loc in a View over layer. The view's Kind is derived from
// loc's shape: a bare entity location is KindEntity, one ending in a slot
// is KindQuery, one ending in an ElementRef is KindBelief.
func New(layer Layer, loc value.Location) *View {
	return &View{layer: layer, loc: loc}
}

func (v *View) Location() value.Location { return v.loc }

func (v *View) Kind() Kind {
	switch {
	case v.loc.IsBelief():
		return KindBelief
	case v.loc.IsQuery():
		return KindQuery
	default:
		return KindEntity
	}
}

func (v *View) IsQuery() bool  { return v.Kind() == KindQuery }
func (v *View) IsBelief() bool { return v.Kind() == KindBelief }

// IsPrimitiveEntity reports whether this view addresses a bare primitive
// entity that currently exists.
func (v *View) IsPrimitiveEntity() bool {
	return v.Kind() == KindEntity && v.layer.EntityExists(v.loc.Entity)
}

// EntityExists reports whether the view's underlying entity currently
// exists, regardless of the view's own kind.
func (v *View) EntityExists() bool { return v.layer.EntityExists(v.loc.Entity) }

// IsSlot reports whether the view, taken as an entity name, generalizes to
// the distinguished slot entity. Meaningful only for KindEntity views.
func (v *View) IsSlot() bool {
	return v.Kind() == KindEntity && v.layer.IsSlot(v.loc.Entity)
}

// IsContext reports whether the view, taken as an entity name, generalizes
// to the distinguished context entity.
func (v *View) IsContext() bool {
	return v.Kind() == KindEntity && v.layer.IsContext(v.loc.Entity)
}

// AddValue adds v under slot, relative to this view's location.
func (v *View) AddValue(slot string, val value.Value) error {
	return v.layer.AddValue(value.NewLocation(v.loc.Entity, appendElem(v.loc.Path, value.Slot(slot))...), val)
}

// DeleteValue deletes val from slot, relative to this view's location.
func (v *View) DeleteValue(slot string, val value.Value, errIfMissing bool) error {
	loc := value.NewLocation(v.loc.Entity, appendElem(v.loc.Path, value.Slot(slot), value.Ref(val))...)
	return v.layer.DeleteValue(loc, errIfMissing)
}

// GetQuery returns a View over slot appended to this view's location.
func (v *View) GetQuery(slot string) *View {
	return New(v.layer, value.NewLocation(v.loc.Entity, appendElem(v.loc.Path, value.Slot(slot))...))
}

// GetBelief returns a View over the (slot, val) belief appended to this
// view's location.
func (v *View) GetBelief(slot string, val value.Value) *View {
	loc := value.NewLocation(v.loc.Entity, appendElem(v.loc.Path, value.Slot(slot), value.Ref(val))...)
	return New(v.layer, loc)
}

// ToSlot coerces this view to an entity view known to be a slot, erroring
// (UsageError) on any mismatch rather than panicking.
func (v *View) ToSlot() (*View, error) {
	if !v.IsSlot() {
		return nil, storeerr.Usagef("entity.toSlot", v.loc.String(), "not a slot")
	}
	return v, nil
}

// ToContext coerces this view to an entity view known to be a context.
func (v *View) ToContext() (*View, error) {
	if !v.IsContext() {
		return nil, storeerr.Usagef("entity.toContext", v.loc.String(), "not a context")
	}
	return v, nil
}

// ToPrimitiveEntity coerces this view to one addressing an existing
// primitive entity.
func (v *View) ToPrimitiveEntity() (*View, error) {
	if !v.IsPrimitiveEntity() {
		return nil, storeerr.Usagef("entity.toPrimitiveEntity", v.loc.String(), "not a primitive entity")
	}
	return v, nil
}

// Equal reports whether two views address the same location on the same
// layer.
func (v *View) Equal(o *View) bool {
	if o == nil {
		return false
	}
	return sameLayer(v.layer, o.layer) && v.loc.Equal(o.loc)
}

// sameLayer compares layer identity; Layer implementations here are always
// pointers, so this is a straightforward pointer-identity helper wrapped
// for readability at call sites.
func sameLayer(a, b Layer) bool { return a == b }

// HashKey derives a value usable as a map key from location alone, ignoring
// the view's layer.
func (v *View) HashKey() string { return v.loc.String() }

func appendElem(path []value.LocElem, elems ...value.LocElem) []value.LocElem {
	out := make([]value.LocElem, 0, len(path)+len(elems))
	out = append(out, path...)
	out = append(out, elems...)
	return out
}
