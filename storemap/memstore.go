package storemap

import (
	"sync"

	"github.com/gholt/theo2012/value"
)

// MemStore is the RAM-only StoreMap used whenever Open is called with
// location "/". Reads take an RLock so concurrent read-only access is
// safe; the single writer is expected to serialize its own calls.
type MemStore struct {
	mu         sync.RWMutex
	m          map[string][]value.Value
	readOnly   bool
	generation uint64
}

// NewMemStore constructs an empty, writable MemStore.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]value.Value)}
}

func (s *MemStore) Open(location string, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string][]value.Value)
	}
	s.readOnly = readOnly
	return nil
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) Flush(sync bool) error { return nil }

// Copy returns an independent MemStore with the same contents.
func (s *MemStore) Copy(location string) (StoreMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := NewMemStore()
	for k, vs := range s.m {
		dup := make([]value.Value, len(vs))
		copy(dup, vs)
		cp.m[k] = dup
	}
	return cp, nil
}

func (s *MemStore) IsReadOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOnly
}

func (s *MemStore) Get(key string) ([]value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.m[key]
	return vs, ok
}

func (s *MemStore) Put(key string, values []value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, existed := s.m[key]; !existed {
		s.generation++
	}
	s.m[key] = values
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, existed := s.m[key]; existed {
		delete(s.m, key)
		s.generation++
	}
	return nil
}

func (s *MemStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

func (s *MemStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
