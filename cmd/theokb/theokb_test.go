package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/theo1"
	"github.com/gholt/theo2012/theo2"
	"github.com/gholt/theo2012/value"
)

func newScenarioStore(t *testing.T) *theo2.Store {
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

// TestScenarioCreateEntity covers creating a primitive entity generalizing
// to an existing one and confirms it is queryable.
func TestScenarioCreateEntity(t *testing.T) {
	s := newScenarioStore(t)
	if err := s.CreatePrimitiveEntity("person", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation("person")); err != nil {
		t.Fatal(err)
	}
	if !s.EntityExists("bob") {
		t.Fatal("expected bob to exist after creation")
	}
	vs, err := s.Get(value.NewLocation("bob", value.Slot(theo1.Generalizations)))
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected one generalizations value, got %v", vs)
	}
	ptr, ok := vs[0].AsPointer()
	if !ok || ptr.Entity != "person" {
		t.Fatalf("expected bob to generalize to person, got %v", vs[0])
	}
}

// TestScenarioSlotCreationAndUse covers creating a slot and writing through
// it once both ends of the belief exist.
func TestScenarioSlotCreationAndUse(t *testing.T) {
	s := newScenarioStore(t)
	if err := s.CreateSlot("nickname"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("nickname"))
	if err := s.AddValue(loc, value.String("bobby")); err != nil {
		t.Fatal(err)
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected one value, got %v", vs)
	}
	if str, ok := vs[0].AsString(); !ok || str != "bobby" {
		t.Fatalf("got %v", vs[0])
	}
}

// TestScenarioCardinalityEnforcement covers a nrofvalues=1 slot rejecting a
// second distinct value while leaving the first value in place.
func TestScenarioCardinalityEnforcement(t *testing.T) {
	s := newScenarioStore(t)
	if err := s.CreateSlot("ssn"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddValue(value.NewLocation("ssn", value.Slot(theo2.NrOfValues)), value.Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("ssn"))
	if err := s.AddValue(loc, value.String("111-11-1111")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddValue(loc, value.String("222-22-2222")); err == nil {
		t.Fatal("expected second value on a nrofvalues=1 slot to be rejected")
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected exactly one surviving value, got %v", vs)
	}
}

// TestScenarioRangeEnforcement covers a slot constrained to a primitive
// entity range rejecting a pointer outside that entity's specialization
// tree.
func TestScenarioRangeEnforcement(t *testing.T) {
	s := newScenarioStore(t)
	if err := s.CreatePrimitiveEntity("city", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation("city")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("planet", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("earth", value.NewLocation("planet")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddValue(value.NewLocation("livesin", value.Slot(theo2.Range)), value.String("city")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.AddValue(loc, value.Pointer(value.NewLocation("tokyo"))); err != nil {
		t.Fatal(err)
	}
	if err := s.AddValue(loc, value.Pointer(value.NewLocation("earth"))); err == nil {
		t.Fatal("expected a pointer outside city's specialization tree to be rejected")
	}
}

// TestScenarioDeleteIntegrity covers the delete-cascade lifecycle rule: once
// tokyo's last generalizations value is removed (deleting tokyo, having no
// other beliefs of its own), every belief pointing to it -- bob.livesin
// included -- is cleared.
func TestScenarioDeleteIntegrity(t *testing.T) {
	s := newScenarioStore(t)
	if err := s.CreatePrimitiveEntity("city", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("tokyo", value.NewLocation("city")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSlot("livesin"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePrimitiveEntity("bob", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	loc := value.NewLocation("bob", value.Slot("livesin"))
	if err := s.AddValue(loc, value.Pointer(value.NewLocation("tokyo"))); err != nil {
		t.Fatal(err)
	}
	if err := s.L1().DeleteEntity("tokyo"); err != nil {
		t.Fatal(err)
	}
	if s.EntityExists("tokyo") {
		t.Fatal("expected tokyo to no longer exist")
	}
	vs, err := s.Get(loc)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected bob.livesin to be empty after tokyo's deletion, got %v", vs)
	}
}

// TestScenarioRoundTripPersistence covers closing and reopening a
// file-backed KB and finding every belief intact, exercising the
// append-log replay path cmd/theokb's own "db" flag drives.
func TestScenarioRoundTripPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.log")

	sm1, err := storemap.Open(path, false)
	if err != nil {
		t.Fatal(err)
	}
	s1, err := theo2.Open(sm1, config.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.CreatePrimitiveEntity("person", value.NewLocation(theo1.Everything)); err != nil {
		t.Fatal(err)
	}
	if err := s1.CreatePrimitiveEntity("bob", value.NewLocation("person")); err != nil {
		t.Fatal(err)
	}
	if err := s1.CreateSlot("age"); err != nil {
		t.Fatal(err)
	}
	if err := s1.AddValue(value.NewLocation("bob", value.Slot("age")), value.Int(42)); err != nil {
		t.Fatal(err)
	}
	if err := s1.Flush(true); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist after close: %v", err)
	}

	sm2, err := storemap.Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := theo2.Open(sm2, config.New(config.OptReadOnly(true)))
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if !s2.EntityExists("bob") {
		t.Fatal("expected bob to survive close/reopen")
	}
	vs, err := s2.Get(value.NewLocation("bob", value.Slot("age")))
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected one age value after reopen, got %v", vs)
	}
	if i, ok := vs[0].AsInt(); !ok || i != 42 {
		t.Fatalf("got %v", vs[0])
	}
}
