// Package theo2 implements Basic Theo2 (L2): per-slot metadata enforcement
// layered atop theo1 -- cardinality (nrofvalues), domain, range, and
// inverse/masterinverse bookkeeping.
package theo2

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gholt/brimtext"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/theo1"
	"github.com/gholt/theo2012/value"
)

// Metadata slot names, themselves ordinary slots on slot entities.
const (
	NrOfValues    = "nrofvalues"
	Domain        = "domain"
	Range         = "range"
	Inverse       = "inverse"
	MasterInverse = "masterinverse"

	// RTWThisHasNoValue is the universal "explicitly no value" marker,
	// always within range; a stored marker does not count against
	// nrofvalues=1.
	RTWThisHasNoValue = "RTWThisHasNoValue"

	domainBelief = "belief"

	rangeAny     = "any"
	rangeInteger = "integer"
	rangeDouble  = "double"
	rangeString  = "string"
	rangeBoolean = "boolean"
	rangeList    = "list"
)

// slotMeta is the cached, parsed metadata for one slot.
type slotMeta struct {
	nrOfValues string // "" (absent), "1", or "any"
	domain     string // "" (absent), "belief", or a primitive entity name
	rangeKind  string // "" (absent) or one of the rangeXxx literals
	rangeEntity string // set instead of rangeKind when range names an entity
}

// Store wraps a theo1.Store with L2 constraint enforcement.
type Store struct {
	l1  *theo1.Store
	cfg *config.Config

	metaLock sync.RWMutex
	meta     map[string]*slotMeta

	writes      int64
	schemaFails int64
}

// Open opens (bootstrapping if necessary) a Theo2 KB atop sm.
func Open(sm storemap.StoreMap, cfg *config.Config) (*Store, error) {
	l1, err := theo1.Open(sm, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{l1: l1, cfg: cfg, meta: make(map[string]*slotMeta)}
	if err := s.ensureMetadataSlots(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureMetadataSlots creates nrofvalues/domain/range/inverse/masterinverse
// as ordinary slots if they are not already present, mirroring theo1's own
// essentials bootstrap: metadata about a slot is stored the same way as any
// other belief, so the metadata slot names must themselves be slots before
// anything can be written to them.
func (s *Store) ensureMetadataSlots() error {
	if s.l1.IsSlot(NrOfValues) {
		return nil
	}
	if s.l1.IsReadOnly() {
		return storeerr.New(storeerr.Invariant, "theo2.open", NrOfValues)
	}
	for _, name := range []string{NrOfValues, Domain, Range, Inverse, MasterInverse} {
		if s.l1.IsSlot(name) {
			continue
		}
		if err := s.l1.CreateSlot(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) L1() *theo1.Store { return s.l1 }

func (s *Store) Close() error          { return s.l1.Close() }
func (s *Store) IsOpen() bool          { return s.l1.IsOpen() }
func (s *Store) IsReadOnly() bool      { return s.l1.IsReadOnly() }
func (s *Store) Flush(sync bool) error { return s.l1.Flush(sync) }

func (s *Store) EntityExists(name string) bool { return s.l1.EntityExists(name) }
func (s *Store) IsSlot(name string) bool       { return s.l1.IsSlot(name) }
func (s *Store) IsContext(name string) bool    { return s.l1.IsContext(name) }

func (s *Store) Get(loc value.Location) ([]value.Value, error) { return s.l1.Get(loc) }

func (s *Store) CreatePrimitiveEntity(name string, generalization value.Location) error {
	return s.l1.CreatePrimitiveEntity(name, generalization)
}

func (s *Store) CreateSlot(name string) error { return s.l1.CreateSlot(name) }
func (s *Store) CreateContext(name string) error { return s.l1.CreateContext(name) }

func (s *Store) ValueFromString(str string) value.Value { return s.l1.ValueFromString(str) }

// AddValue enforces nrofvalues/domain/range/inverse before delegating to
// theo1. Checking before calling down guarantees the underlying store is
// left untouched on a SchemaError.
func (s *Store) AddValue(loc value.Location, v value.Value) error {
	slot, ok := loc.LastSlot()
	if !ok {
		return s.l1.AddValue(loc, v)
	}
	if slot == NrOfValues || slot == Domain || slot == Range || slot == Inverse || slot == MasterInverse {
		if err := s.l1.AddValue(loc, v); err != nil {
			return err
		}
		s.invalidate(loc.Entity)
		if slot == Inverse {
			if err := s.assignMasterInverse(loc.Entity, v); err != nil {
				return err
			}
		}
		return nil
	}
	m := s.metaFor(slot)
	if err := s.checkNrOfValues(loc, slot, m); err != nil {
		atomic.AddInt64(&s.schemaFails, 1)
		return err
	}
	if err := s.checkDomain(loc, m); err != nil {
		atomic.AddInt64(&s.schemaFails, 1)
		return err
	}
	if err := s.checkRange(v, m); err != nil {
		atomic.AddInt64(&s.schemaFails, 1)
		return err
	}
	if err := s.l1.AddValue(loc, v); err != nil {
		return err
	}
	atomic.AddInt64(&s.writes, 1)
	return nil
}

func (s *Store) checkNrOfValues(loc value.Location, slot string, m *slotMeta) error {
	if m == nil || m.nrOfValues == "" || m.nrOfValues == "any" {
		return nil
	}
	existing, err := s.l1.Get(loc)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if str, ok := e.AsString(); ok && str == RTWThisHasNoValue {
			continue
		}
		return storeerr.New(storeerr.Schema, "theo2.addValue", loc.String())
	}
	return nil
}

func (s *Store) checkDomain(loc value.Location, m *slotMeta) error {
	if m == nil || m.domain == "" {
		return nil
	}
	if m.domain == domainBelief {
		// A domain="belief" slot is constrained only to being written as
		// part of a query/belief location, which every write reaching
		// checkDomain already is (AddValue only calls here once it has a
		// query-ending loc), so there is nothing further to reject.
		return nil
	}
	if !s.isWithinSpecialization(loc.Entity, m.domain) {
		return storeerr.New(storeerr.Schema, "theo2.addValue", loc.String())
	}
	return nil
}

func (s *Store) checkRange(v value.Value, m *slotMeta) error {
	if m == nil || (m.rangeKind == "" && m.rangeEntity == "") {
		return nil
	}
	if str, ok := v.AsString(); ok && str == RTWThisHasNoValue {
		return nil
	}
	if m.rangeEntity != "" {
		ptr, ok := v.AsPointer()
		if !ok {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
		if !s.isWithinSpecialization(ptr.Entity, m.rangeEntity) {
			return storeerr.New(storeerr.Schema, "theo2.addValue", ptr.String())
		}
		return nil
	}
	switch m.rangeKind {
	case rangeAny:
		return nil
	case rangeInteger:
		if v.Kind != value.KindInt {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
	case rangeDouble:
		if v.Kind != value.KindFloat {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
	case rangeString:
		if v.Kind != value.KindString {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
	case rangeBoolean:
		if v.Kind != value.KindBool {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
	case rangeList:
		if v.Kind != value.KindList && v.Kind != value.KindSetList {
			return storeerr.New(storeerr.Schema, "theo2.addValue", "")
		}
	}
	return nil
}

// isWithinSpecialization reports whether entity equals ancestor or reaches
// it by following the first generalizations value at each step; other
// generalizations values of an entity are not searched.
func (s *Store) isWithinSpecialization(entity, ancestor string) bool {
	seen := make(map[string]bool)
	cur := entity
	for {
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		vs, err := s.l1.Get(value.NewLocation(cur, value.Slot(theo1.Generalizations)))
		if err != nil || len(vs) == 0 {
			return false
		}
		next, ok := vs[0].AsPointer()
		if !ok {
			return false
		}
		cur = next.Entity
	}
}

// assignMasterInverse implements the masterinverse auto-assignment rule:
// when a slot's inverse is set, the side lacking a prior explicit
// masterinverse setting becomes true and the other becomes false; a
// self-inverse slot always resolves to true.
func (s *Store) assignMasterInverse(slot string, inverseVal value.Value) error {
	other, ok := inverseVal.AsPointer()
	if !ok {
		return nil
	}
	otherSlot := other.Entity
	if otherSlot == slot {
		return s.setMasterInverseIfAbsent(slot, true)
	}
	selfHas := s.hasExplicitMasterInverse(slot)
	otherHas := s.hasExplicitMasterInverse(otherSlot)
	if selfHas && otherHas {
		return nil
	}
	if selfHas {
		return s.setMasterInverseIfAbsent(otherSlot, false)
	}
	if otherHas {
		return s.setMasterInverseIfAbsent(slot, false)
	}
	if err := s.setMasterInverseIfAbsent(slot, true); err != nil {
		return err
	}
	return s.setMasterInverseIfAbsent(otherSlot, false)
}

func (s *Store) hasExplicitMasterInverse(slot string) bool {
	vs, _ := s.l1.Get(value.NewLocation(slot, value.Slot(MasterInverse)))
	return len(vs) > 0
}

func (s *Store) setMasterInverseIfAbsent(slot string, v bool) error {
	if s.hasExplicitMasterInverse(slot) {
		return nil
	}
	return s.l1.AddValue(value.NewLocation(slot, value.Slot(MasterInverse)), value.Bool(v))
}

// metaFor returns the cached metadata for slot, populating the cache from
// the underlying store on a miss.
func (s *Store) metaFor(slot string) *slotMeta {
	s.metaLock.RLock()
	m, ok := s.meta[slot]
	s.metaLock.RUnlock()
	if ok {
		return m
	}
	m = s.loadMeta(slot)
	s.metaLock.Lock()
	s.meta[slot] = m
	s.metaLock.Unlock()
	return m
}

func (s *Store) loadMeta(slot string) *slotMeta {
	m := &slotMeta{}
	if vs, _ := s.l1.Get(value.NewLocation(slot, value.Slot(NrOfValues))); len(vs) > 0 {
		if i, ok := vs[0].AsInt(); ok && i == 1 {
			m.nrOfValues = "1"
		} else if str, ok := vs[0].AsString(); ok {
			m.nrOfValues = str
		}
	}
	if vs, _ := s.l1.Get(value.NewLocation(slot, value.Slot(Domain))); len(vs) > 0 {
		if str, ok := vs[0].AsString(); ok {
			m.domain = str
		} else if ptr, ok := vs[0].AsPointer(); ok {
			m.domain = ptr.Entity
		}
	}
	if vs, _ := s.l1.Get(value.NewLocation(slot, value.Slot(Range))); len(vs) > 0 {
		if str, ok := vs[0].AsString(); ok {
			switch str {
			case rangeAny, rangeInteger, rangeDouble, rangeString, rangeBoolean, rangeList:
				m.rangeKind = str
			default:
				m.rangeEntity = str
			}
		} else if ptr, ok := vs[0].AsPointer(); ok {
			m.rangeEntity = ptr.Entity
		}
	}
	if m.nrOfValues == "" && m.domain == "" && m.rangeKind == "" && m.rangeEntity == "" {
		return nil
	}
	return m
}

func (s *Store) invalidate(slot string) {
	s.metaLock.Lock()
	delete(s.meta, slot)
	s.metaLock.Unlock()
}

// DeleteValue delegates to theo1, invalidating any cached metadata for the
// slot named by loc's entity (metadata lives on the slot entity itself, so
// deleting a belief about a slot must drop its cache entry).
func (s *Store) DeleteValue(loc value.Location, errIfMissing bool) error {
	if err := s.l1.DeleteValue(loc, errIfMissing); err != nil {
		return err
	}
	s.invalidate(loc.Entity)
	return nil
}

func (s *Store) DeleteEntity(name string) error {
	if err := s.l1.DeleteEntity(name); err != nil {
		return err
	}
	s.invalidate(name)
	return nil
}

// Stats is the L2 counters snapshot, nesting L1's beneath L2's own
// cardinality/domain/range cache size and constraint-violation counters.
type Stats struct {
	extended    bool
	cachedSlots int
	writes      int64
	schemaFails int64
	l1          *theo1.Stats
}

// Stats is L2's stats entry point, returned as a fmt.Stringer; the layers
// below expose GatherStats(extended), whose snapshot this one nests.
func (s *Store) Stats(extended bool) fmt.Stringer {
	s.metaLock.RLock()
	cached := len(s.meta)
	s.metaLock.RUnlock()
	return &Stats{
		extended:    extended,
		cachedSlots: cached,
		writes:      atomic.LoadInt64(&s.writes),
		schemaFails: atomic.LoadInt64(&s.schemaFails),
		l1:          s.l1.GatherStats(extended),
	}
}

func (stats *Stats) String() string {
	rows := [][]string{
		{"writes", fmt.Sprintf("%d", stats.writes)},
		{"schemaFails", fmt.Sprintf("%d", stats.schemaFails)},
		{"cachedSlots", fmt.Sprintf("%d", stats.cachedSlots)},
		{"l1", stats.l1.String()},
	}
	return brimtext.Align(rows, nil)
}
