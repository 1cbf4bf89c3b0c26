// Package superstore implements the reverse-pointer index (SuperStore,
// L0+): two additional key families layered atop encstore that answer
// "which locations point at X through slot S?" in O(index lookup), plus
// referential-integrity maintenance on delete.
package superstore

import (
	"fmt"
	"sync/atomic"

	"github.com/gholt/brimtext"

	"github.com/gholt/theo2012/encstore"
	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/value"
)

const (
	sigilPointerIndex = "  P"
	sigilPointingSlots = "  R"
)

// Store wraps an encstore.Store with reverse-pointer maintenance.
type Store struct {
	enc *encstore.Store
	cfg *config.Config

	indexed   int64
	unindexed int64
	cascaded  int64
}

// Open creates a Store atop an already-opened StoreMap.
func Open(sm storemap.StoreMap, cfg *config.Config) (*Store, error) {
	enc, err := encstore.Open(sm, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{enc: enc, cfg: cfg}
	enc.SetDeleteSignal(s.onDeleteSlot)
	return s, nil
}

// Encoded exposes the underlying encstore.Store for layers (Theo1) that
// need direct L0 access alongside reverse-index awareness.
func (s *Store) Encoded() *encstore.Store { return s.enc }

func (s *Store) Close() error          { return s.enc.Close() }
func (s *Store) IsOpen() bool          { return s.enc.IsOpen() }
func (s *Store) IsReadOnly() bool      { return s.enc.IsReadOnly() }
func (s *Store) Flush(sync bool) error { return s.enc.Flush(sync) }

// EntityExists reports whether a primitive entity name currently has any
// subslots recorded (invariant 1: a primitive entity exists iff its
// subslot set is non-empty).
func (s *Store) EntityExists(name string) bool {
	subslots, err := s.enc.GetSubslots(value.NewLocation(name))
	if err != nil {
		return false
	}
	return len(subslots) > 0
}

// LocationExists reports whether the location itself is addressable: for
// a bare entity location this is EntityExists; for a query/belief it is
// whether the parent entity exists (Theo1 enforces slot/context validity
// on top of this).
func (s *Store) LocationExists(loc value.Location) bool {
	return s.EntityExists(loc.Entity)
}

// Get delegates to the encoded store.
func (s *Store) Get(loc value.Location) ([]value.Value, error) { return s.enc.Get(loc) }

// GetSubslots delegates to the encoded store.
func (s *Store) GetSubslots(loc value.Location) ([]string, error) { return s.enc.GetSubslots(loc) }

// Add stores v at loc, maintaining the reverse-pointer index when v is a
// Pointer. Pointers nested inside a List/SetList value must exist but are
// not indexed.
func (s *Store) Add(loc value.Location, v value.Value) error {
	if err := s.requirePointerTargetsExist(v); err != nil {
		return err
	}
	if err := s.enc.Add(loc, v); err != nil {
		return err
	}
	if dst, ok := v.AsPointer(); ok {
		if err := s.indexPointer(loc, dst); err != nil {
			return err
		}
	}
	return nil
}

// requirePointerTargetsExist walks v (and, recursively, any Pointer values
// nested inside a List/SetList it contains) requiring every referenced
// destination to already exist.
func (s *Store) requirePointerTargetsExist(v value.Value) error {
	switch v.Kind {
	case value.KindPointer:
		if !s.LocationExists(v.Ptr) {
			return storeerr.New(storeerr.Invariant, "superstore.add", v.Ptr.String())
		}
		return nil
	case value.KindList, value.KindSetList:
		for _, e := range v.List {
			if err := s.requirePointerTargetsExist(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// indexPointer appends parent(loc) into dst's pointer-index under
// slot=last-slot(loc).
func (s *Store) indexPointer(loc value.Location, dst value.Location) error {
	slot, ok := loc.LastSlot()
	if !ok {
		return storeerr.Usagef("superstore.add", loc.String(), "pointer must be stored under a slot")
	}
	idxLoc, err := s.pointerIndexLoc(dst, slot)
	if err != nil {
		return err
	}
	parent := loc.Parent()
	existing, _ := s.enc.Get(idxLoc)
	for _, e := range existing {
		if e.Equal(value.Pointer(parent)) {
			return nil
		}
	}
	if err := s.enc.Add(idxLoc, value.Pointer(parent)); err != nil {
		return err
	}
	atomic.AddInt64(&s.indexed, 1)
	return s.addPointingSlot(dst, slot)
}

// pointerIndexLoc and pointingSlotsLoc are synthetic bookkeeping locations:
// they are addressed with slot names that cannot collide with user slots
// because they carry the reserved double-space sigils directly, mirroring
// how encstore reserves "  S"/"  D" etc. at the key level.
func (s *Store) pointerIndexLoc(dst value.Location, slot string) (value.Location, error) {
	return value.NewLocation(dst.Entity, append(append([]value.LocElem{}, dst.Path...), value.Slot(sigilPointerIndex+slot))...), nil
}

func (s *Store) pointingSlotsLoc(dst value.Location) value.Location {
	return value.NewLocation(dst.Entity, append(append([]value.LocElem{}, dst.Path...), value.Slot(sigilPointingSlots))...)
}

func (s *Store) addPointingSlot(dst value.Location, slot string) error {
	loc := s.pointingSlotsLoc(dst)
	existing, _ := s.enc.Get(loc)
	for _, e := range existing {
		if str, ok := e.AsString(); ok && str == slot {
			return nil
		}
	}
	return s.enc.Add(loc, value.String(slot))
}

func (s *Store) removePointingSlotIfEmpty(dst value.Location, slot string) error {
	idxLoc, err := s.pointerIndexLoc(dst, slot)
	if err != nil {
		return err
	}
	remaining, _ := s.enc.Get(idxLoc)
	if len(remaining) > 0 {
		return nil
	}
	loc := s.pointingSlotsLoc(dst)
	existing, _ := s.enc.Get(loc)
	for _, e := range existing {
		if str, ok := e.AsString(); ok && str == slot {
			ref := value.NewLocation(loc.Entity, append(append([]value.LocElem{}, loc.Path...), value.Ref(e))...)
			return s.enc.Delete(ref, false, false)
		}
	}
	return nil
}

// Delete delegates to the encoded store, first removing any reverse-index
// entries for Pointer values being removed.
func (s *Store) Delete(loc value.Location, errIfMissing, recursive bool) error {
	if loc.IsBelief() {
		existing, _ := s.enc.Get(loc.Parent())
		lastElem := loc.Path[len(loc.Path)-1]
		for _, e := range existing {
			if e.Equal(lastElem.Ref.Value) {
				if dst, ok := e.AsPointer(); ok {
					if err := s.unindexPointer(loc.Parent(), dst); err != nil {
						return err
					}
				}
				break
			}
		}
	} else {
		existing, _ := s.enc.Get(loc)
		for _, e := range existing {
			if dst, ok := e.AsPointer(); ok {
				if err := s.unindexPointer(loc, dst); err != nil {
					return err
				}
			}
		}
	}
	return s.enc.Delete(loc, errIfMissing, recursive)
}

func (s *Store) unindexPointer(loc value.Location, dst value.Location) error {
	slot, ok := loc.LastSlot()
	if !ok {
		return nil
	}
	idxLoc, err := s.pointerIndexLoc(dst, slot)
	if err != nil {
		return err
	}
	parent := loc.Parent()
	ref := value.NewLocation(idxLoc.Entity, append(append([]value.LocElem{}, idxLoc.Path...), value.Ref(value.Pointer(parent)))...)
	if err := s.enc.Delete(ref, false, false); err != nil {
		return err
	}
	atomic.AddInt64(&s.unindexed, 1)
	return s.removePointingSlotIfEmpty(dst, slot)
}

// onDeleteSlot is the encstore.DeleteSignal hook: when a slot's last value
// disappears, cascade-delete every Pointer elsewhere in the KB that
// referred to that slot's location (since, if it was the entity's last
// generalizations value, the referent no longer exists; for other slots
// the referent is unaffected but this slot itself is gone so nothing could
// still point into *it* anyway -- this only matters when loc names an
// entity that became non-existent, i.e. whenever theo1 has just deleted
// the entity's final generalizations value and relies on this cascade).
func (s *Store) onDeleteSlot(loc value.Location) {
	if len(loc.Path) != 0 {
		return // only whole-entity disappearance triggers a cascade here
	}
	s.cascadeDeletePointersTo(value.NewLocation(loc.Entity))
}

// cascadeDeletePointersTo removes every pointer anywhere in the KB that
// refers to dst, walking dst's own pointing-slot list.
func (s *Store) cascadeDeletePointersTo(dst value.Location) {
	slots, _ := s.enc.Get(s.pointingSlotsLoc(dst))
	for _, sv := range slots {
		slot, ok := sv.AsString()
		if !ok {
			continue
		}
		idxLoc, err := s.pointerIndexLoc(dst, slot)
		if err != nil {
			continue
		}
		referrers, _ := s.enc.Get(idxLoc)
		for _, r := range referrers {
			referrerLoc, ok := r.AsPointer()
			if !ok {
				continue
			}
			belief := value.NewLocation(referrerLoc.Entity,
				append(append([]value.LocElem{}, referrerLoc.Path...), value.Slot(slot), value.Ref(value.Pointer(dst)))...)
			if err := s.Delete(belief, false, false); err == nil {
				atomic.AddInt64(&s.cascaded, 1)
			}
		}
	}
}

// GetPointers returns every location that references referent via slot.
func (s *Store) GetPointers(referent value.Location, slot string) (*PointerBag, error) {
	idxLoc, err := s.pointerIndexLoc(referent, slot)
	if err != nil {
		return nil, err
	}
	vs, err := s.enc.Get(idxLoc)
	if err != nil {
		return nil, err
	}
	locs := make([]value.Location, 0, len(vs))
	for _, v := range vs {
		if loc, ok := v.AsPointer(); ok {
			locs = append(locs, loc)
		}
	}
	return &PointerBag{locs: locs}, nil
}

// GetPointingSlots returns the slot names under which something in the KB
// currently points at referent.
func (s *Store) GetPointingSlots(referent value.Location) ([]string, error) {
	vs, err := s.enc.Get(s.pointingSlotsLoc(referent))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if str, ok := v.AsString(); ok {
			out = append(out, str)
		}
	}
	return out, nil
}

// PointerBag is the RTWBag-style container returned by GetPointers.
type PointerBag struct{ locs []value.Location }

func (b *PointerBag) Size() int                  { return len(b.locs) }
func (b *PointerBag) Locations() []value.Location { return b.locs }
func (b *PointerBag) Contains(loc value.Location) bool {
	for _, l := range b.locs {
		if l.Equal(loc) {
			return true
		}
	}
	return false
}

// Stats is the L0+ counters snapshot, nesting the L0 stats the way
// gholt-valuestore's ValuesStoreStats nests vlmStats.
type Stats struct {
	extended  bool
	indexed   int64
	unindexed int64
	cascaded  int64
	enc       *encstore.Stats
}

// GatherStats snapshots the reverse-pointer-index counters alongside L0's.
func (s *Store) GatherStats(extended bool) *Stats {
	return &Stats{
		extended:  extended,
		indexed:   atomic.LoadInt64(&s.indexed),
		unindexed: atomic.LoadInt64(&s.unindexed),
		cascaded:  atomic.LoadInt64(&s.cascaded),
		enc:       s.enc.GatherStats(extended),
	}
}

func (stats *Stats) String() string {
	rows := [][]string{
		{"indexed", fmt.Sprintf("%d", stats.indexed)},
		{"unindexed", fmt.Sprintf("%d", stats.unindexed)},
		{"cascaded", fmt.Sprintf("%d", stats.cascaded)},
		{"enc", stats.enc.String()},
	}
	return brimtext.Align(rows, nil)
}
