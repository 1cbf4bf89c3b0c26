// Package theo1 implements Inverseless Theo1 (L1): the
// generalizations-hierarchy invariants, the distinguished slot/context/
// everything entities, and validity checks for entity addresses, layered
// atop superstore's reverse-pointer maintenance.
package theo1

import (
	"fmt"
	"strings"

	"github.com/gholt/brimtext"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/superstore"
	"github.com/gholt/theo2012/value"
)

// Distinguished root entity names.
const (
	Everything       = "everything"
	SlotEntity       = "slot"
	ContextEntity    = "context"
	Generalizations  = "generalizations"
)

// Store is Theo1: structural invariants over a superstore.Store.
type Store struct {
	sup *superstore.Store
	cfg *config.Config

	allSlots    map[string]bool
	allContexts map[string]bool
	cachesBuilt bool
}

// Open opens (or bootstraps) a Theo1 KB. If the essentials are missing and
// the store is writable, they are created; otherwise Open fails (spec
// §4.5, "Essentials check").
func Open(sm storemap.StoreMap, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.New()
	}
	sup, err := superstore.Open(sm, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{sup: sup, cfg: cfg}
	if err := s.ensureEssentials(); err != nil {
		return nil, err
	}
	return s, nil
}

// Super exposes the underlying superstore.Store.
func (s *Store) Super() *superstore.Store { return s.sup }

func (s *Store) Close() error          { return s.sup.Close() }
func (s *Store) IsOpen() bool          { return s.sup.IsOpen() }
func (s *Store) IsReadOnly() bool      { return s.sup.IsReadOnly() }
func (s *Store) Flush(sync bool) error { return s.sup.Flush(sync) }

func (s *Store) ensureEssentials() error {
	missing := !s.sup.EntityExists(Everything)
	if !missing {
		return nil
	}
	if s.sup.IsReadOnly() {
		return storeerr.New(storeerr.Invariant, "theo1.open", Everything)
	}
	// everything is its own bootstrap: it exists without a generalizations
	// value (invariant 2's sole exception), established directly via the
	// encoded store since Theo1's own CreatePrimitiveEntity requires
	// everything to already exist.
	enc := s.sup.Encoded()
	seed := func(name string) error {
		return enc.Add(value.NewLocation(name, value.Slot("_bootstrap")), value.Bool(true))
	}
	if err := seed(Everything); err != nil {
		return err
	}
	if err := s.CreatePrimitiveEntity(SlotEntity, value.NewLocation(Everything)); err != nil {
		return err
	}
	if err := s.CreatePrimitiveEntity(ContextEntity, value.NewLocation(Everything)); err != nil {
		return err
	}
	if err := s.CreatePrimitiveEntity(Generalizations, value.NewLocation(Everything)); err != nil {
		return err
	}
	if err := s.addToGeneralizations(Generalizations, SlotEntity); err != nil {
		return err
	}
	return nil
}

func (s *Store) addToGeneralizations(entity, generalizesTo string) error {
	loc := value.NewLocation(entity, value.Slot(Generalizations))
	return s.sup.Add(loc, value.Pointer(value.NewLocation(generalizesTo)))
}

func (s *Store) buildCaches() {
	if s.cachesBuilt {
		return
	}
	s.allSlots = map[string]bool{SlotEntity: true}
	s.allContexts = map[string]bool{ContextEntity: true}
	s.collectSpecializations(SlotEntity, s.allSlots)
	s.collectSpecializations(ContextEntity, s.allContexts)
	s.cachesBuilt = true
}

// collectSpecializations walks the reverse-generalizations pointer index
// from root, adding every transitive specialization into set.
func (s *Store) collectSpecializations(root string, set map[string]bool) {
	bag, err := s.sup.GetPointers(value.NewLocation(root), Generalizations)
	if err != nil {
		return
	}
	for _, loc := range bag.Locations() {
		if set[loc.Entity] {
			continue
		}
		set[loc.Entity] = true
		s.collectSpecializations(loc.Entity, set)
	}
}

func (s *Store) invalidateCaches() { s.cachesBuilt = false }

// IsSlot reports whether name generalizes (directly or transitively) to
// "slot".
func (s *Store) IsSlot(name string) bool {
	s.buildCaches()
	return s.allSlots[name]
}

// IsContext reports whether name generalizes (directly or transitively) to
// "context".
func (s *Store) IsContext(name string) bool {
	s.buildCaches()
	return s.allContexts[name]
}

// EntityExists delegates to the superstore layer.
func (s *Store) EntityExists(name string) bool { return s.sup.EntityExists(name) }

// validateLocation enforces the structural rules common to Get, Add, and
// Delete: element 0 must be a known primitive entity, and every slot
// position must be in allSlots, with a single position-1 exception
// admitting a context prefix.
func (s *Store) validateLocation(loc value.Location) error {
	if !s.EntityExists(loc.Entity) {
		return storeerr.New(storeerr.NotFound, "theo1", loc.String())
	}
	start := 0
	if len(loc.Path) > 0 && !loc.Path[0].IsRef && s.IsContext(loc.Path[0].Slot) {
		start = 1
	}
	for i := start; i < len(loc.Path); i++ {
		e := loc.Path[i]
		if e.IsRef {
			continue
		}
		if !s.IsSlot(e.Slot) {
			return storeerr.Usagef("theo1", loc.String(), "%q is not a slot", e.Slot)
		}
	}
	return nil
}

// Get returns the values at a query location, validated per Theo1 rules.
func (s *Store) Get(loc value.Location) ([]value.Value, error) {
	if err := s.validateLocation(loc); err != nil {
		return nil, err
	}
	return s.sup.Get(loc)
}

// CreatePrimitiveEntity creates name, generalizing to generalizesTo, which
// must already exist. This is the sole entity-creation protocol (spec
// §4.5: "A write targeting a non-existent primitive entity is allowed only
// when the write is to its generalizations slot").
func (s *Store) CreatePrimitiveEntity(name string, generalizesTo value.Location) error {
	if name == Everything {
		return storeerr.Usagef("theo1.create", name, "everything may never have a generalizations value")
	}
	if !s.EntityExists(generalizesTo.Entity) {
		return storeerr.New(storeerr.Invariant, "theo1.create", generalizesTo.String())
	}
	loc := value.NewLocation(name, value.Slot(Generalizations))
	if err := s.sup.Add(loc, value.Pointer(generalizesTo)); err != nil {
		return err
	}
	s.invalidateCaches()
	return nil
}

// CreateSlot is sugar for CreatePrimitiveEntity(name, slot), creating a
// primitive entity that generalizes directly to the distinguished slot
// entity.
func (s *Store) CreateSlot(name string) error {
	return s.CreatePrimitiveEntity(name, value.NewLocation(SlotEntity))
}

// CreateContext is sugar for CreatePrimitiveEntity(name, context).
func (s *Store) CreateContext(name string) error {
	return s.CreatePrimitiveEntity(name, value.NewLocation(ContextEntity))
}

// AddValue adds v at loc after Theo1 validation: generalizations values
// must be pointers to existent entities, and everything may never receive
// one.
func (s *Store) AddValue(loc value.Location, v value.Value) error {
	if err := s.validateEntityWrite(loc); err != nil {
		return err
	}
	if slot, ok := loc.LastSlot(); ok && slot == Generalizations {
		if loc.Entity == Everything {
			return storeerr.Usagef("theo1.add", loc.String(), "everything may never have a generalizations value")
		}
		dst, ok := v.AsPointer()
		if !ok {
			return storeerr.Usagef("theo1.add", loc.String(), "generalizations values must be pointers")
		}
		if !s.EntityExists(dst.Entity) {
			return storeerr.New(storeerr.Invariant, "theo1.add", dst.String())
		}
	}
	if err := s.sup.Add(loc, v); err != nil {
		return err
	}
	if slot, ok := loc.LastSlot(); ok && slot == Generalizations {
		s.invalidateCaches()
	}
	return nil
}

// validateEntityWrite allows a write to loc.Entity's generalizations slot
// even when loc.Entity does not yet exist (the creation protocol);
// otherwise it requires the full Theo1 location validation.
func (s *Store) validateEntityWrite(loc value.Location) error {
	if !s.EntityExists(loc.Entity) {
		if slot, ok := loc.LastSlot(); ok && slot == Generalizations && len(loc.Path) == 1 {
			return nil
		}
		return storeerr.New(storeerr.NotFound, "theo1.add", loc.String())
	}
	return s.validateLocation(loc)
}

// DeleteValue removes v from loc (a belief-ending location via
// ElementRef), applying the generalizations lifecycle rule: deleting the
// last generalizations value is permitted only if the entity participates
// in no other belief, in which case the entity is deleted; specializations
// are re-pointed to preserve the hierarchy.
func (s *Store) DeleteValue(loc value.Location, errIfMissing bool) error {
	if err := s.validateLocation(loc); err != nil {
		return err
	}
	isGen := false
	if n := len(loc.Path); n >= 2 {
		parent := loc.Path[n-2]
		isGen = !parent.IsRef && parent.Slot == Generalizations
	}
	if isGen {
		return s.deleteGeneralization(loc, errIfMissing)
	}
	return s.sup.Delete(loc, errIfMissing, false)
}

func (s *Store) deleteGeneralization(loc value.Location, errIfMissing bool) error {
	entity := loc.Entity
	current, err := s.sup.Get(value.NewLocation(entity, value.Slot(Generalizations)))
	if err != nil {
		return err
	}
	if len(current) != 1 {
		// not the last value; ordinary delete, no entity-lifecycle effect.
		return s.sup.Delete(loc, errIfMissing, false)
	}
	removedTarget := current[0]
	if s.entityHasOtherBeliefs(entity) {
		return storeerr.Usagef("theo1.delete", entity,
			"cannot remove last generalizations value while other beliefs reference %s", entity)
	}
	specializations, err := s.sup.GetPointers(value.NewLocation(entity), Generalizations)
	if err == nil {
		for _, childLoc := range specializations.Locations() {
			oldBelief := value.NewLocation(childLoc.Entity, value.Slot(Generalizations), value.Ref(value.Pointer(value.NewLocation(entity))))
			if err := s.sup.Delete(oldBelief, false, false); err != nil {
				return err
			}
			if err := s.sup.Add(value.NewLocation(childLoc.Entity, value.Slot(Generalizations)), removedTarget); err != nil {
				return err
			}
		}
	}
	if err := s.sup.Delete(loc, errIfMissing, true); err != nil {
		return err
	}
	s.invalidateCaches()
	return nil
}

// entityHasOtherBeliefs reports whether entity itself is the subject of
// any belief besides its own generalizations slot -- i.e. whether it has
// other populated subslots. Pointers FROM elsewhere TO entity (via
// someone else's slot) are not "this entity's beliefs"; those are cleaned
// up by superstore's delete-signal cascade once the entity is actually
// removed.
func (s *Store) entityHasOtherBeliefs(entity string) bool {
	subslots, _ := s.sup.GetSubslots(value.NewLocation(entity))
	for _, name := range subslots {
		// names with the reserved double-space sigil are superstore's
		// reverse-index bookkeeping, not beliefs of entity
		if name != Generalizations && !strings.HasPrefix(name, "  ") {
			return true
		}
	}
	return false
}

// DeleteEntity removes every generalizations value of name; removing the
// last one deletes the entity, and is refused while the entity is the
// subject of other beliefs of its own.
func (s *Store) DeleteEntity(name string) error {
	if name == Everything || name == SlotEntity || name == ContextEntity || name == Generalizations {
		return storeerr.Usagef("theo1.delete", name, "distinguished entities cannot be deleted")
	}
	current, err := s.sup.Get(value.NewLocation(name, value.Slot(Generalizations)))
	if err != nil {
		return err
	}
	for _, v := range current {
		loc := value.NewLocation(name, value.Slot(Generalizations), value.Ref(v))
		if err := s.DeleteValue(loc, true); err != nil {
			return err
		}
	}
	return nil
}

// ValueFromString parses a literal into the best-fitting scalar Value: an
// int if it parses as one, else a float, else a bool, else a plain string.
// This is the entry point the CLI/REPL location wire form uses to turn a
// bare token into a scalar value.
func ValueFromString(s string) value.Value {
	return parseScalar(s)
}

// ValueFromString is the per-Store entry point every layer exposes
// alongside its other accessors; it delegates to the package-level parser,
// which carries no per-store state.
func (s *Store) ValueFromString(str string) value.Value {
	return parseScalar(str)
}

// Stats is the L1 counters snapshot, nesting L0+'s the way
// gholt-valuestore's ValuesStoreStats nests vlmStats.
type Stats struct {
	extended    bool
	allSlots    int
	allContexts int
	sup         *superstore.Stats
}

// GatherStats snapshots the generalizations-hierarchy cache sizes
// alongside the reverse-pointer-index counters beneath them.
func (s *Store) GatherStats(extended bool) *Stats {
	s.buildCaches()
	return &Stats{
		extended:    extended,
		allSlots:    len(s.allSlots),
		allContexts: len(s.allContexts),
		sup:         s.sup.GatherStats(extended),
	}
}

func (stats *Stats) String() string {
	rows := [][]string{
		{"allSlots", fmt.Sprintf("%d", stats.allSlots)},
		{"allContexts", fmt.Sprintf("%d", stats.allContexts)},
		{"sup", stats.sup.String()},
	}
	return brimtext.Align(rows, nil)
}
