package encstore

import (
	"testing"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/value"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sm := storemap.NewMemStore()
	if err := sm.Open("/", false); err != nil {
		t.Fatal(err)
	}
	s, err := Open(sm, config.New())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAddGetBasic(t *testing.T) {
	s := newTestStore(t)
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Add(loc, value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0].S != "tokyo" {
		t.Fatalf("got %v", vs)
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Add(loc, value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(loc, value.String("tokyo")); err == nil {
		t.Fatalf("expected duplicate rejection")
	}
}

func TestListToSetListPromotion(t *testing.T) {
	s := newTestStore(t)
	cfgStore := s
	cfgStore.cfg.MaxListSize = 3
	loc := value.NewLocation("bob", value.Slot("tags"))
	for i := 0; i < 4; i++ {
		if err := s.Add(loc, value.Int(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 4 {
		t.Fatalf("got %d values, want 4", len(vs))
	}
}

func TestSubslotOnValue(t *testing.T) {
	s := newTestStore(t)
	base := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Add(base, value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	sub := value.NewLocation("bob", value.Slot("livesin"), value.Ref(value.String("tokyo")), value.Slot("since"))
	if err := s.Add(sub, value.Int(2020)); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(sub)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0].I != 2020 {
		t.Fatalf("got %v", vs)
	}
	subslots, err := s.GetSubslots(base)
	// base is a query location ending in a slot; subslots of a value sit
	// below its elementref, so GetSubslots(base) lists only the value's
	// subslot id, not "since", but the entity's own subslot list must
	// include "livesin".
	entitySubslots, err2 := s.GetSubslots(value.NewLocation("bob"))
	if err2 != nil {
		t.Fatal(err2)
	}
	found := false
	for _, n := range entitySubslots {
		if n == "livesin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected entity subslot list to contain livesin, got %v", entitySubslots)
	}
	_ = subslots
	_ = err
}

func TestDeleteElementRefThenSlotBecomesEmpty(t *testing.T) {
	s := newTestStore(t)
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Add(loc, value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	belief := value.NewLocation("bob", value.Slot("livesin"), value.Ref(value.String("tokyo")))
	if err := s.Delete(belief, true, false); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected empty, got %v", vs)
	}
}

func TestDeleteRecursive(t *testing.T) {
	s := newTestStore(t)
	base := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Add(base, value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	sub := value.NewLocation("bob", value.Slot("livesin"), value.Ref(value.String("tokyo")), value.Slot("since"))
	if err := s.Add(sub, value.Int(2020)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(base, true, true); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected empty after recursive delete, got %v", vs)
	}
}

func TestDeleteMissingErrIfMissing(t *testing.T) {
	s := newTestStore(t)
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.Delete(loc, true, false); err == nil {
		t.Fatalf("expected not-found error")
	}
	if err := s.Delete(loc, false, false); err != nil {
		t.Fatalf("expected no error when errIfMissing=false, got %v", err)
	}
}

func TestPrimitiveEntityIteratorInvalidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.Add(value.NewLocation("bob", value.Slot("livesin")), value.String("tokyo")); err != nil {
		t.Fatal(err)
	}
	it := s.PrimitiveEntityIterator()
	it2 := s.PrimitiveEntityIterator()
	if _, _, err := it.Next(); err == nil {
		t.Fatalf("expected stale iterator to error")
	}
	name, ok, err := it2.Next()
	if err != nil || !ok || name != "bob" {
		t.Fatalf("got %q %v %v", name, ok, err)
	}
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	sm := storemap.NewMemStore()
	if err := sm.Open("/", true); err != nil {
		t.Fatal(err)
	}
	s, err := Open(sm, config.New())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Add(value.NewLocation("bob", value.Slot("livesin")), value.String("tokyo"))
	if err == nil {
		t.Fatalf("expected read-only rejection")
	}
}
