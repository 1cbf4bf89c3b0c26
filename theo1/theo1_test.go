package theo1

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

func TestEssentialsBootstrapped(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{Everything, SlotEntity, ContextEntity, Generalizations} {
		if !s.EntityExists(name) {
			t.Fatalf("expected %s to exist after bootstrap", name)
		}
	}
	if !s.IsSlot(Generalizations) {
		t.Fatalf("generalizations should be a slot")
	}
}

func TestCreatePrimitiveEntity(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if !s.EntityExists("bob") {
		t.Fatalf("expected bob to exist")
	}
	vs, err := s.Get(value.NewLocation("bob", value.Slot(Generalizations)))
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("got %v", vs)
	}
	if loc, ok := vs[0].AsPointer(); !ok || loc.Entity != Everything {
		t.Fatalf("expected pointer to everything, got %v", vs[0])
	}
}

func TestCreateSlotAndUse(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	if !s.IsSlot("livesin") {
		t.Fatalf("expected livesin to be a slot")
	}
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.AddValue(loc, value.Pointer(value.NewLocation("tokyo"))); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("got %v", vs)
	}
	bag, err := s.sup.GetPointers(value.NewLocation("tokyo"), "livesin")
	if err != nil {
		t.Fatal(err)
	}
	if bag.Size() != 1 {
		t.Fatalf("expected reverse index entry, got %v", bag.Locations())
	}
}

func TestSlotContextPartition(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateSlot("myslot"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateContext("mycontext"); err != nil {
		t.Fatal(err)
	}
	if !s.IsSlot("myslot") || s.IsContext("myslot") {
		t.Fatalf("myslot misclassified")
	}
	if !s.IsContext("mycontext") || s.IsSlot("mycontext") {
		t.Fatalf("mycontext misclassified")
	}
}

func TestNonSlotRejectedAsSlotPosition(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("plain", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("plain"))
	if err := s.AddValue(loc, value.String("x")); err == nil {
		t.Fatalf("expected error using non-slot entity as a slot position")
	}
}

func TestEverythingRejectsGeneralizations(t *testing.T) {
	s := newTestStore(t)
	loc := value.NewLocation(Everything, value.Slot(Generalizations))
	if err := s.AddValue(loc, value.Pointer(value.NewLocation(SlotEntity))); err == nil {
		t.Fatalf("expected everything to reject generalizations")
	}
}

func TestDeleteEntityCascade(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.AddValue(loc, value.Pointer(value.NewLocation("tokyo"))); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntity("tokyo"); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected livesin to be empty after tokyo deleted, got %v", vs)
	}
	if s.EntityExists("tokyo") {
		t.Fatalf("expected tokyo to no longer exist")
	}
}

func TestDeleteEntityRepointsSpecializations(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("osaka", value.NewLocation("tokyo")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntity("tokyo"); err != nil {
		t.Fatalf("expected delete to succeed, re-pointing osaka: %v", err)
	}
	vs, err := s.Get(value.NewLocation("osaka", value.Slot(Generalizations)))
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("got %v", vs)
	}
	if loc, ok := vs[0].AsPointer(); !ok || loc.Entity != Everything {
		t.Fatalf("expected osaka to be repointed to everything, got %v", vs[0])
	}
}

func TestDeleteEntityBlockedByNonGeneralizationBelief(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation(Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddValue(value.NewLocation("tokyo", value.Slot("livesin")), value.Pointer(value.NewLocation("bob"))); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntity("tokyo"); err == nil {
		t.Fatalf("expected delete to be blocked while tokyo has its own livesin belief")
	}
}
