package saves

import (
	"errors"
	"testing"
	"time"
)

func TestWriteListDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	slots := []Slot{
		{ID: "main", Name: "Main Empire", LastPlayed: time.Now().UTC(), NetWorthCents: 5_000_000, Companies: 2},
		{ID: "speedrun", Name: "Speedrun", LastPlayed: time.Now().UTC(), NetWorthCents: 120_000},
	}
	for _, s := range slots {
		if err := store.Write(s); err != nil {
			t.Fatalf("write %s: %v", s.ID, err)
		}
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list got %d slots", len(got))
	}
	if got[0].ID != "main" || got[1].ID != "speedrun" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}

	if err := store.Delete("speedrun"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = store.List()
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("list after delete got %d slots", len(got))
	}
}

func TestMainSlotProtected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Write(Slot{ID: "main", Name: "Main"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Delete("main"); !errors.Is(err, ErrSlotProtected) {
		t.Fatalf("expected ErrSlotProtected, got %v", err)
	}
	if err := store.Delete(""); !errors.Is(err, ErrSlotProtected) {
		t.Fatalf("blank id resolves to main, expected ErrSlotProtected, got %v", err)
	}
}

func TestWriteDefaultsNameAndID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Write(Slot{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "main" || got[0].Name != "main" {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestDeleteMissingSlotIsNoop(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Delete("ghost"); err != nil {
		t.Fatalf("delete of missing slot: %v", err)
	}
}
