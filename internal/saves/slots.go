package saves

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MainSlotID is the always-present slot; it cannot be deleted.
const MainSlotID = "main"

var ErrSlotProtected = errors.New("the main save slot cannot be deleted")

type Slot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LastPlayed    time.Time `json:"last_played"`
	NetWorthCents int64     `json:"net_worth_cents"`
	Companies     int       `json:"companies"`
	PlaySeconds   int64     `json:"play_seconds"`
}

// Store keeps one JSON file per slot under a local directory. It backs the
// CLI's offline view of save slots.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".emp", "saves")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) slotPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func normalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return MainSlotID
	}
	return id
}

func (s *Store) List() ([]Slot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Slot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var slot Slot
		if err := json.Unmarshal(raw, &slot); err != nil {
			continue // skip corrupt slot files rather than breaking the list
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Write(slot Slot) error {
	slot.ID = normalizeID(slot.ID)
	if strings.TrimSpace(slot.Name) == "" {
		slot.Name = slot.ID
	}
	raw, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.slotPath(slot.ID), raw, 0o600)
}

func (s *Store) Delete(id string) error {
	id = normalizeID(id)
	if id == MainSlotID {
		return ErrSlotProtected
	}
	if _, err := os.Stat(s.slotPath(id)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(s.slotPath(id))
}
