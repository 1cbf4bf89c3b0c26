package storemap

import (
	"testing"

	"github.com/gholt/theo2012/value"
)

func TestMemStorePutGetRemove(t *testing.T) {
	s := NewMemStore()
	if err := s.Open("/", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected absent key")
	}
	if err := s.Put("k", []value.Value{value.String("a")}); err != nil {
		t.Fatal(err)
	}
	vs, ok := s.Get("k")
	if !ok || len(vs) != 1 || vs[0].S != "a" {
		t.Fatalf("got %v, %v", vs, ok)
	}
	g1 := s.Generation()
	if err := s.Put("k", []value.Value{value.String("a"), value.String("b")}); err != nil {
		t.Fatal(err)
	}
	if s.Generation() != g1 {
		t.Fatalf("generation should not change on overwrite of existing key")
	}
	if err := s.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected removed key to be absent")
	}
	if s.Generation() == g1 {
		t.Fatalf("generation should change on remove")
	}
}

func TestMemStoreReadOnly(t *testing.T) {
	s := NewMemStore()
	if err := s.Open("/", true); err != nil {
		t.Fatal(err)
	}
	if !s.IsReadOnly() {
		t.Fatalf("expected read-only")
	}
}
