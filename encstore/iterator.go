package encstore

import "github.com/gholt/theo2012/storeerr"

// PrimitiveEntityIterator walks every primitive entity name present in the
// store (keys of the shape "E  S" where E contains no space). Constructing
// a new iterator invalidates any older one, made explicit via a generation
// token bound to the Store's own change counter: calling Next on a stale
// iterator returns a Usage error instead of silently scanning an
// out-of-date key set.
type PrimitiveEntityIterator struct {
	s          *Store
	names      []string
	pos        int
	generation uint64
}

// PrimitiveEntityIterator returns a fresh iterator and invalidates any
// iterator previously returned by this Store.
func (s *Store) PrimitiveEntityIterator() *PrimitiveEntityIterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++ // constructing a new iterator invalidates older ones
	gen := s.generation
	var names []string
	for _, key := range s.sm.Keys() {
		if name, ok := isPrimitiveEntityKey(key); ok {
			names = append(names, s.table.untranslate(name))
		}
	}
	return &PrimitiveEntityIterator{s: s, names: names, generation: gen}
}

// Next returns the next primitive entity name, or ok=false when exhausted.
// Using a stale iterator (one superseded by a later call to
// PrimitiveEntityIterator) returns a Usage error.
func (it *PrimitiveEntityIterator) Next() (name string, ok bool, err error) {
	it.s.mu.RLock()
	current := it.s.generation
	it.s.mu.RUnlock()
	if current != it.generation {
		return "", false, storeerr.New(storeerr.Usage, "encstore.iterator", "")
	}
	if it.pos >= len(it.names) {
		return "", false, nil
	}
	name = it.names[it.pos]
	it.pos++
	return name, true, nil
}
