package entity_test

import (
	"testing"

	"github.com/gholt/theo2012/entity"
	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/theo1"
	"github.com/gholt/theo2012/theo2"
	"github.com/gholt/theo2012/value"
)

func newTestStore(t *testing.T) *theo2.Store {
	t.Helper()
	sm := storemap.NewMemStore()
	if err := sm.Open("/", false); err != nil {
		t.Fatal(err)
	}
	s, err := theo2.Open(sm, config.New())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestViewAddAndQuery(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	bob := entity.New(s, value.NewLocation("bob"))
	if !bob.IsPrimitiveEntity() {
		t.Fatalf("expected bob to be a primitive entity")
	}
	if err := bob.AddValue("livesin", value.Pointer(value.NewLocation("tokyo"))); err != nil {
		t.Fatal(err)
	}
	q := bob.GetQuery("livesin")
	if !q.IsQuery() {
		t.Fatalf("expected GetQuery result to be a query view")
	}
	ent, ok, err := q.Into1Entity()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || ent.Location().Entity != "tokyo" {
		t.Fatalf("expected into1Entity() == tokyo, got %v ok=%v", ent, ok)
	}
}

func TestViewEqualityByLayerAndLocation(t *testing.T) {
	s := newTestStore(t)
	a := entity.New(s, value.NewLocation("everything"))
	b := entity.New(s, value.NewLocation("everything"))
	if !a.Equal(b) {
		t.Fatalf("expected views over the same layer+location to be equal")
	}
	c := entity.New(s, value.NewLocation(theo1.SlotEntity))
	if a.Equal(c) {
		t.Fatalf("expected views over different locations to differ")
	}
}

func TestNeed1EntityThrowsWhenMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	q := entity.New(s, value.NewLocation("bob")).GetQuery("livesin")
	if _, err := q.Need1Entity(); err == nil {
		t.Fatalf("expected Need1Entity to error on an empty query")
	}
	if empty, err := q.IsEmpty(); err != nil || !empty {
		t.Fatalf("expected query to be empty, got empty=%v err=%v", empty, err)
	}
}

func TestToSlotCoercion(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateSlot("myslot"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	slotView := entity.New(s, value.NewLocation("myslot"))
	if _, err := slotView.ToSlot(); err != nil {
		t.Fatalf("expected myslot to coerce to slot: %v", err)
	}
	bobView := entity.New(s, value.NewLocation("bob"))
	if _, err := bobView.ToSlot(); err == nil {
		t.Fatalf("expected bob to fail slot coercion")
	}
}
