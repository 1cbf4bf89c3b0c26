// Package encstore implements the Encoded Store (L0): location <-> key
// encoding, subslot indexing, value-subslot naming, list/set promotion,
// recursive delete, and primitive-entity iteration over a
// storemap.StoreMap.
package encstore

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gholt/brimtext"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/value"
)

// DeleteSignal is invoked after the final value in a slot is removed and
// the slot-address key itself is deleted, giving higher layers (the
// reverse-pointer store in particular) a hook to cascade cleanup.
type DeleteSignal func(loc value.Location)

// Store is the Encoded Store. It owns the abbreviation table and all key
// encoding; callers address it purely in terms of value.Location.
type Store struct {
	mu       sync.RWMutex
	sm       storemap.StoreMap
	cfg      *config.Config
	table    *translationTable
	onDeleteSlot DeleteSignal
	generation   uint64 // bumped on every structural change, for iterators

	gets    int64
	adds    int64
	deletes int64
}

// Open creates a Store atop an already-opened StoreMap. The abbreviation
// table is loaded if present, else created and persisted; it is immutable
// once created, since every stored key is encoded against it.
func Open(sm storemap.StoreMap, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Store{sm: sm, cfg: cfg}
	existing, ok := sm.Get(translationTableKey)
	if ok {
		s.table = decodeTranslationTable(existing)
	} else {
		s.table = newTranslationTable()
		if !sm.IsReadOnly() {
			if err := sm.Put(translationTableKey, s.table.encode()); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// SetDeleteSignal installs the hook called when a slot's final value is
// removed (used by superstore to cascade pointer cleanup).
func (s *Store) SetDeleteSignal(f DeleteSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDeleteSlot = f
}

func (s *Store) Close() error { return s.sm.Close() }

func (s *Store) IsOpen() bool { return s.sm != nil }

func (s *Store) IsReadOnly() bool { return s.sm.IsReadOnly() }

func (s *Store) Flush(sync bool) error { return s.sm.Flush(sync) }

// Get returns the stored values for a Query location, or fails for a
// Belief location.
func (s *Store) Get(loc value.Location) ([]value.Value, error) {
	atomic.AddInt64(&s.gets, 1)
	if loc.IsBelief() {
		return nil, errUsage("encstore.get", loc.String(), "get requires a query location, not a belief")
	}
	lk, err := s.slotAddressKey(loc, false)
	if err != nil {
		return nil, nil
	}
	vs, ok := s.sm.Get(lk.key)
	if !ok {
		return nil, nil
	}
	out := make([]value.Value, len(vs))
	copy(out, vs)
	return out, nil
}

// GetSubslots returns the subslot names recorded at loc, or nil if none.
// Slot subslots come back as their full (untranslated) slot names; a
// value's subslot id (below an ElementRef) is returned as stored.
func (s *Store) GetSubslots(loc value.Location) ([]string, error) {
	lk, err := s.slotAddressKey(loc, false)
	if err != nil {
		return nil, nil
	}
	vs, ok := s.sm.Get(subslotListKey(lk.key))
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if str, ok := v.AsString(); ok {
			if !strings.HasPrefix(str, sigilSubslotID) {
				str = s.untranslate(str[1:]) // drop the " " slot separator
			}
			out = append(out, str)
		}
	}
	return out, nil
}

// Add stores v under loc, which must end in a Slot and have length >= 2.
// Rejects duplicates (set semantics). The stored container is the same
// plain value slice at every size: there is no List-to-SetList promotion,
// and cfg.MaxListSize is not consulted.
func (s *Store) Add(loc value.Location, v value.Value) error {
	if s.sm.IsReadOnly() {
		return errReadOnly("encstore.add", loc.String())
	}
	if !loc.IsQuery() {
		return errUsage("encstore.add", loc.String(), "add requires a slot-ending location")
	}
	if len(loc.Path) < 1 {
		return errUsage("encstore.add", loc.String(), "location must have length >= 2")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, err := s.slotAddressKey(loc, true)
	if err != nil {
		return err
	}
	existing, _ := s.sm.Get(lk.key)
	for _, e := range existing {
		if e.Equal(v) {
			return errUsage("encstore.add", loc.String(), "value already present")
		}
	}
	wasNew := len(existing) == 0
	next := append(existing, v)
	// List and SetList are observably identical; the stored container is
	// always the plain value slice, so crossing cfg.MaxListSize changes
	// nothing here.
	if err := s.sm.Put(lk.key, next); err != nil {
		return err
	}
	if wasNew {
		if err := s.linkSubslotChain(lk); err != nil {
			return err
		}
		s.generation++
	}
	atomic.AddInt64(&s.adds, 1)
	return nil
}

// linkSubslotChain ensures every ancestor key in lk.parentKeys has the
// child immediately below it recorded in its "  S" list, and that the
// entity's own subslot list (first hop) is populated -- this is what makes
// a primitive entity "exist" at all.
func (s *Store) linkSubslotChain(lk *locKey) error {
	full := append(append([]string{}, lk.parentKeys...), lk.key)
	for i := 0; i+1 < len(full); i++ {
		parent, child := full[i], full[i+1]
		suffix := child[len(parent):]
		if err := s.addSubslot(parent, suffix); err != nil {
			return err
		}
	}
	return nil
}

// Delete implements both slot-ending deletes (removing the whole slot) and
// ElementRef-ending deletes (removing one belief from a slot).
func (s *Store) Delete(loc value.Location, errIfMissing bool, recursive bool) error {
	if s.sm.IsReadOnly() {
		return errReadOnly("encstore.delete", loc.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.IsBelief() {
		return s.deleteBelief(loc, errIfMissing)
	}
	return s.deleteSlot(loc, errIfMissing, recursive)
}

func (s *Store) deleteSlot(loc value.Location, errIfMissing, recursive bool) error {
	lk, err := s.slotAddressKey(loc, false)
	if err != nil {
		if errIfMissing {
			return storeerr.Wrap(storeerr.NotFound, "encstore.delete", loc.String(), err)
		}
		return nil
	}
	if recursive {
		subslots, _ := s.sm.Get(subslotListKey(lk.key))
		for _, sv := range subslots {
			suffix, _ := sv.AsString()
			if err := s.deleteSubtree(lk.key, suffix); err != nil {
				return err
			}
		}
	}
	existing, ok := s.sm.Get(lk.key)
	if !ok || len(existing) == 0 {
		if errIfMissing {
			return storeerr.New(storeerr.NotFound, "encstore.delete", loc.String())
		}
		return nil
	}
	if err := s.sm.Remove(lk.key); err != nil {
		return err
	}
	if err := s.cullEmptyEntries(lk); err != nil {
		return err
	}
	s.generation++
	atomic.AddInt64(&s.deletes, 1)
	if s.onDeleteSlot != nil {
		s.onDeleteSlot(loc)
	}
	return nil
}

// deleteSubtree removes everything rooted at parentKey+suffix, recursing
// into its own "  S" list first.
func (s *Store) deleteSubtree(parentKey, suffix string) error {
	key := parentKey + suffix
	subslots, _ := s.sm.Get(subslotListKey(key))
	for _, sv := range subslots {
		childSuffix, _ := sv.AsString()
		if err := s.deleteSubtree(key, childSuffix); err != nil {
			return err
		}
	}
	_ = s.sm.Remove(key)
	_ = s.sm.Remove(subslotListKey(key))
	return s.removeSubslot(parentKey, suffix)
}

func (s *Store) deleteBelief(loc value.Location, errIfMissing bool) error {
	parentLoc := loc.Parent()
	lastElem := loc.Path[len(loc.Path)-1]
	lk, err := s.slotAddressKey(parentLoc, false)
	if err != nil {
		if errIfMissing {
			return storeerr.Wrap(storeerr.NotFound, "encstore.delete", loc.String(), err)
		}
		return nil
	}
	existing, ok := s.sm.Get(lk.key)
	if !ok {
		if errIfMissing {
			return storeerr.New(storeerr.NotFound, "encstore.delete", loc.String())
		}
		return nil
	}
	idx := -1
	for i, e := range existing {
		if e.Equal(lastElem.Ref.Value) {
			idx = i
			break
		}
	}
	if idx < 0 {
		if errIfMissing {
			return storeerr.New(storeerr.NotFound, "encstore.delete", loc.String())
		}
		return nil
	}
	remaining := append(append([]value.Value{}, existing[:idx]...), existing[idx+1:]...)
	slotEmptied := len(remaining) == 0
	if slotEmptied {
		if err := s.sm.Remove(lk.key); err != nil {
			return err
		}
	} else {
		if err := s.sm.Put(lk.key, remaining); err != nil {
			return err
		}
	}
	// walk cleanup: garbage-collect this value's own subslot subtree and
	// partition/directory bookkeeping.
	h := h2(lastElem.Ref.Value)
	partKey := lk.key + sigilPartition + h
	subID, err2 := s.findOrAllocSubslotID(lk.key, partKey, h, lastElem.Ref.Value, false)
	if err2 == nil {
		fullValueKey := lk.key + subID
		if err := s.deleteSubtree(lk.key, subID); err != nil {
			return err
		}
		_ = fullValueKey
		if err := s.removePartitionEntry(lk.key, partKey, h, lastElem.Ref.Value); err != nil {
			return err
		}
	}
	if slotEmptied {
		if err := s.cullEmptyEntries(lk); err != nil {
			return err
		}
		s.generation++
		if s.onDeleteSlot != nil {
			s.onDeleteSlot(parentLoc)
		}
	}
	atomic.AddInt64(&s.deletes, 1)
	return nil
}

func (s *Store) removePartitionEntry(slotKey, partKey, h string, v value.Value) error {
	pairs, ok := s.sm.Get(partKey)
	if !ok {
		return nil
	}
	var out []value.Value
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i].Equal(v) {
			continue
		}
		out = append(out, pairs[i], pairs[i+1])
	}
	if len(out) == 0 {
		return s.removeDirectoryEntryIfPartitionEmpty(slotKey, partKey, h)
	}
	return s.sm.Put(partKey, out)
}

// cullEmptyEntries removes a now-empty slot's "  S" membership from its
// parent once the slot itself has no value and no subslots.
func (s *Store) cullEmptyEntries(lk *locKey) error {
	if _, ok := s.sm.Get(subslotListKey(lk.key)); ok {
		return nil // still has subslots, keep the entry
	}
	if len(lk.parentKeys) == 0 {
		return nil
	}
	parent := lk.parentKeys[len(lk.parentKeys)-1]
	suffix := lk.key[len(parent):]
	return s.removeSubslot(parent, suffix)
}

// GetNumValues returns the number of values stored at a query location.
func (s *Store) GetNumValues(loc value.Location) (int, error) {
	vs, err := s.Get(loc)
	if err != nil {
		return 0, err
	}
	return len(vs), nil
}

// Copy duplicates the underlying store to a new location.
func (s *Store) Copy(location string) (*Store, error) {
	sm2, err := s.sm.Copy(location)
	if err != nil {
		return nil, err
	}
	return Open(sm2, s.cfg)
}

// Optimize is a no-op hook for external StoreMap implementations that
// support on-disk compaction; this layer simply flushes.
func (s *Store) Optimize() error { return s.sm.Flush(true) }

// GiveLargeAccessHint is advisory; the in-process StoreMap backends here
// don't use it, but the contract is kept so a future mmap-backed StoreMap
// has somewhere to receive the hint.
func (s *Store) GiveLargeAccessHint() {}

// Stats is the L0 counters snapshot, grounded on gholt-valuestore's
// ValuesStoreStats: a plain struct gathered on demand, rendered via
// brimtext.Align rather than a generic pretty-printer.
type Stats struct {
	extended   bool
	keys       int
	generation uint64
	gets       int64
	adds       int64
	deletes    int64
}

// GatherStats snapshots the store's counters. superstore and theo1 expose
// the same GatherStats(extended) entry point and theo2 a Stats(extended)
// fmt.Stringer, each nesting the layer below's snapshot.
func (s *Store) GatherStats(extended bool) *Stats {
	stats := &Stats{
		extended:   extended,
		generation: s.Generation(),
		gets:       atomic.LoadInt64(&s.gets),
		adds:       atomic.LoadInt64(&s.adds),
		deletes:    atomic.LoadInt64(&s.deletes),
	}
	if extended {
		stats.keys = s.sm.Size()
	}
	return stats
}

func (stats *Stats) String() string {
	rows := [][]string{
		{"gets", fmt.Sprintf("%d", stats.gets)},
		{"adds", fmt.Sprintf("%d", stats.adds)},
		{"deletes", fmt.Sprintf("%d", stats.deletes)},
		{"generation", fmt.Sprintf("%d", stats.generation)},
	}
	if stats.extended {
		rows = append(rows, []string{"keys", fmt.Sprintf("%d", stats.keys)})
	}
	return brimtext.Align(rows, nil)
}

// LogStats prints store-level counters via the configured LogInfo sink.
func (s *Store) LogStats() {
	s.cfg.LogInfo("encstore:\n%s", s.GatherStats(true).String())
}

// Generation returns the current structural-change counter, used by
// PrimitiveEntityIterator to detect staleness.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
