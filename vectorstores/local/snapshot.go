package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
)

// snapshotVersion is bumped whenever the on-disk layout changes, so a
// stale or foreign file is rejected instead of being half-read.
const snapshotVersion = 1

// snapshot is the on-disk form of the store: a flat, versioned record
// list. JSON float formatting uses the shortest round-tripping
// representation, so vectors survive a persist/restore cycle bit-equal.
type snapshot struct {
	SchemaVersion int              `json:"schema_version"`
	Entries       []snapshotRecord `json:"entries"`
}

type snapshotRecord struct {
	Text   string    `json:"text"`
	Index  int       `json:"index"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
	Vector []float32 `json:"vector"`
}

// Persist writes the full entry set to disk under the given key. The file
// is written to a temporary name and renamed so a crash mid-write never
// leaves a truncated snapshot behind.
func (s *Store) Persist(_ context.Context, key string) error {
	if key == "" {
		return ErrMissingKey
	}

	s.mu.RLock()
	if !s.loaded {
		s.mu.RUnlock()
		return vectorstores.ErrEmptyStore
	}
	snap := snapshot{
		SchemaVersion: snapshotVersion,
		Entries:       make([]snapshotRecord, len(s.entries)),
	}
	for i, e := range s.entries {
		snap.Entries[i] = snapshotRecord{
			Text:   e.Chunk.Text,
			Index:  e.Chunk.Index,
			Start:  e.Chunk.Start,
			End:    e.Chunk.End,
			Vector: e.Vector,
		}
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("local: failed to encode snapshot: %w", err)
	}

	path := s.snapshotPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local: failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("local: failed to finalize snapshot: %w", err)
	}

	s.logger.Info("snapshot persisted", "key", key, "entries", len(snap.Entries))
	return nil
}

// Restore loads a previously persisted entry set. A missing snapshot is
// not an error: it reports (false, nil) and the caller must ingest.
func (s *Store) Restore(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrMissingKey
	}

	data, err := os.ReadFile(s.snapshotPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("local: failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if snap.SchemaVersion != snapshotVersion {
		return false, fmt.Errorf("%w: unsupported schema version %d", ErrBadSnapshot, snap.SchemaVersion)
	}
	if len(snap.Entries) == 0 {
		return false, fmt.Errorf("%w: snapshot holds no entries", ErrBadSnapshot)
	}

	entries := make([]vectorstores.Entry, len(snap.Entries))
	for i, rec := range snap.Entries {
		entries[i] = vectorstores.Entry{
			Chunk: schema.Chunk{
				Text:  rec.Text,
				Index: rec.Index,
				Start: rec.Start,
				End:   rec.End,
			},
			Vector: rec.Vector,
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("snapshot restored", "key", key, "entries", len(entries))
	return true, nil
}
