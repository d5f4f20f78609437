// Package local provides an in-process vector store for a single active
// document, with versioned JSON snapshots on disk so a document that was
// already indexed does not have to be embedded again.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
)

var (
	ErrMissingKey = errors.New("local: snapshot key is required")

	// ErrBadSnapshot is returned when a snapshot file exists but cannot
	// serve this store (corrupt payload or unknown schema version).
	ErrBadSnapshot = errors.New("local: snapshot is invalid")
)

// Store keeps the entry set of the active document in memory. Reads may
// run concurrently; ReplaceAll swaps the whole slice under the write lock
// so a search never observes a partially replaced store.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []vectorstores.Entry
	loaded  bool
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New creates a store that keeps its snapshots under dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("local: storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: failed to create storage directory: %w", err)
	}

	o := applyOptions(opts...)
	return &Store{
		dir:    dir,
		logger: o.logger.With("component", "local_store", "dir", dir),
	}, nil
}

// ReplaceAll discards the current entry set and installs the given one.
func (s *Store) ReplaceAll(_ context.Context, entries []vectorstores.Entry) error {
	if len(entries) == 0 {
		return vectorstores.ErrNoEntries
	}

	replacement := make([]vectorstores.Entry, len(entries))
	copy(replacement, entries)

	s.mu.Lock()
	s.entries = replacement
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("store contents replaced", "entries", len(replacement))
	return nil
}

// Search returns up to k chunks ranked by descending cosine similarity to
// the query vector. Ties rank the lower chunk index first so results are
// deterministic.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]vectorstores.SearchResult, error) {
	if k <= 0 {
		return nil, vectorstores.ErrInvalidNumResults
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, vectorstores.ErrEmptyStore
	}

	results := make([]vectorstores.SearchResult, len(s.entries))
	for i, entry := range s.entries {
		results[i] = vectorstores.SearchResult{
			Chunk: entry.Chunk,
			Score: vectorstores.CosineSimilarity(query, entry.Vector),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) snapshotPath(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps a document identity key onto a safe file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
