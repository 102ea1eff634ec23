// internal/farm/store_test.go
package farm

import (
	"testing"

	"github.com/protanki-tools/farmbot/internal/models"
)

func TestStoreAddGetDelete(t *testing.T) {
	s := NewStore(testLogger())

	f := &models.Farm{ID: "f1", Title: "Alpha", MaxPlayers: 4}
	s.Add(f)

	got, ok := s.Get("f1")
	if !ok {
		t.Fatalf("expected farm f1 to be present")
	}
	if got != f {
		t.Fatalf("expected the same farm pointer back")
	}
	if s.Count() != 1 {
		t.Fatalf("expected count 1, got %d", s.Count())
	}

	s.Delete("f1")
	if _, ok := s.Get("f1"); ok {
		t.Fatalf("expected farm f1 to be gone after delete")
	}
	if s.Count() != 0 {
		t.Fatalf("expected count 0 after delete, got %d", s.Count())
	}
}

func TestStoreAddDoesNotOverwrite(t *testing.T) {
	s := NewStore(testLogger())

	first := &models.Farm{ID: "f1", Title: "Alpha"}
	second := &models.Farm{ID: "f1", Title: "Beta"}
	s.Add(first)
	s.Add(second)

	got, _ := s.Get("f1")
	if got != first {
		t.Fatalf("duplicate add must not replace the existing farm")
	}
}

func TestStoreDeleteUnknownIsNoop(t *testing.T) {
	s := NewStore(testLogger())
	s.Delete("missing") // must not panic
	if s.Count() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestStoreListReturnsCopy(t *testing.T) {
	s := NewStore(testLogger())
	s.Add(&models.Farm{ID: "f1"})
	s.Add(&models.Farm{ID: "f2"})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 farms, got %d", len(list))
	}

	list = list[:0]
	if s.Count() != 2 {
		t.Fatalf("mutating the listed slice must not affect the store")
	}
}
