// Package qdrant backs the vector store interface with a remote Qdrant
// collection. Qdrant is durable server-side, so Persist is a no-op and
// Restore probes whether a collection already holds points.
//
// Each logical store name maps onto two physical collections ("-a"/"-b").
// ReplaceAll always builds the inactive one from scratch and only adopts
// it once every point is uploaded, so reads never observe a partially
// filled collection.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
)

var (
	ErrMissingCollectionName = errors.New("qdrant: collection name is required")
	ErrConnectionFailed      = errors.New("qdrant: connection failed")
	ErrCollectionNotFound    = errors.New("qdrant: collection not found")
)

const (
	payloadKeyText  = "text"
	payloadKeyIndex = "index"
	payloadKeyStart = "start"
	payloadKeyEnd   = "end"

	upsertBatchSize = 100
)

// Store is a vector store bound to a single logical Qdrant collection,
// either configured up front or derived from the document key on Restore.
type Store struct {
	client  *qdrant.Client
	logger  *slog.Logger
	options options

	mu     sync.Mutex
	base   string // logical collection name
	active string // physical collection serving reads, "" until installed
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New creates a new Qdrant-backed store.
func New(opts ...Option) (*Store, error) {
	o, err := parseOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   o.host,
		Port:   o.port,
		APIKey: o.apiKey,
		UseTLS: o.useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger := o.logger.With("component", "qdrant_store", "host", o.host)
	logger.Info("Qdrant store initialized successfully")

	return &Store{
		client:  client,
		logger:  logger,
		options: o,
		base:    o.collectionName,
	}, nil
}

// ReplaceAll uploads the full entry set into the inactive physical
// collection and adopts it only after every batch succeeds. A failure or
// cancellation mid-upload deletes the staging collection and leaves the
// previously active one serving reads untouched.
func (s *Store) ReplaceAll(ctx context.Context, entries []vectorstores.Entry) error {
	if len(entries) == 0 {
		return vectorstores.ErrNoEntries
	}

	base, active := s.names()
	if base == "" {
		return ErrMissingCollectionName
	}
	staging := stagingName(base, active)

	exists, err := s.client.CollectionExists(ctx, staging)
	if err != nil {
		return fmt.Errorf("qdrant: collection lookup failed: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, staging); err != nil {
			return fmt.Errorf("qdrant: failed to drop stale staging collection: %w", err)
		}
	}

	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: staging,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(entries[0].Vector)),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("qdrant: failed to create collection: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadKeyText:  entry.Chunk.Text,
				payloadKeyIndex: int64(entry.Chunk.Index),
				payloadKeyStart: int64(entry.Chunk.Start),
				payloadKeyEnd:   int64(entry.Chunk.End),
			}),
		}
	}

	wait := true
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: staging,
			Wait:           &wait,
			Points:         points[start:end],
		}); err != nil {
			s.dropCollection(ctx, staging)
			return fmt.Errorf("qdrant: upsert failed at batch %d: %w", start/upsertBatchSize, err)
		}
	}

	s.mu.Lock()
	s.active = staging
	s.mu.Unlock()

	if active != "" && active != staging {
		s.dropCollection(ctx, active)
	}

	s.logger.InfoContext(ctx, "collection replaced", "collection", staging, "points", len(points))
	return nil
}

// dropCollection is best-effort cleanup; it must work even when ctx was
// already cancelled, since that is exactly when staging is abandoned.
func (s *Store) dropCollection(ctx context.Context, name string) {
	if err := s.client.DeleteCollection(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn("failed to drop collection", "collection", name, "error", err)
	}
}

// Search queries the active collection for the k nearest points. Qdrant
// already ranks by cosine score; ties are re-sorted by chunk index
// afterwards for determinism.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]vectorstores.SearchResult, error) {
	if k <= 0 {
		return nil, vectorstores.ErrInvalidNumResults
	}

	_, collection := s.names()
	if collection == "" {
		return nil, vectorstores.ErrEmptyStore
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if stat, ok := status.FromError(err); ok && stat.Code() == codes.NotFound {
			return nil, vectorstores.ErrEmptyStore
		}
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]vectorstores.SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, vectorstores.SearchResult{
			Chunk: payloadToChunk(point.GetPayload()),
			Score: point.GetScore(),
		})
	}

	sortResults(results)
	return results, nil
}

// sortResults orders by descending score with ties ranking the lower
// chunk index first, matching the local store's determinism rule.
func sortResults(results []vectorstores.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
}

// Persist is a no-op: Qdrant writes with wait=true are already durable
// server-side under the collection name.
func (s *Store) Persist(_ context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrMissingCollectionName
	}
	return nil
}

// Restore binds the store to the logical name for the given key and
// probes both physical collections; a non-empty one is adopted for reads
// and ingestion can be skipped.
func (s *Store) Restore(ctx context.Context, key string) (bool, error) {
	base := s.baseFor(key)
	if base == "" {
		return false, ErrMissingCollectionName
	}

	for _, candidate := range []string{base + "-a", base + "-b"} {
		exists, err := s.client.CollectionExists(ctx, candidate)
		if err != nil {
			return false, fmt.Errorf("qdrant: collection lookup failed: %w", err)
		}
		if !exists {
			continue
		}

		count, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: candidate})
		if err != nil {
			return false, fmt.Errorf("qdrant: count failed: %w", err)
		}
		if count > 0 {
			s.mu.Lock()
			s.active = candidate
			s.mu.Unlock()
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) names() (base, active string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base, s.active
}

// baseFor maps a document key onto the logical collection name and
// remembers it. A configured collection name always wins.
func (s *Store) baseFor(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.options.collectionName != "" {
		s.base = s.options.collectionName
		return s.base
	}

	sanitized := sanitizeCollectionName(key)
	if sanitized != "" {
		s.base = sanitized
	}
	return s.base
}

// stagingName picks the physical collection not currently serving reads.
func stagingName(base, active string) string {
	if active == base+"-a" {
		return base + "-b"
	}
	return base + "-a"
}

func sanitizeCollectionName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(key))
	return strings.Trim(name, "_")
}

func payloadToChunk(payload map[string]*qdrant.Value) schema.Chunk {
	chunk := schema.Chunk{}
	if v, ok := payload[payloadKeyText]; ok {
		chunk.Text = v.GetStringValue()
	}
	if v, ok := payload[payloadKeyIndex]; ok {
		chunk.Index = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadKeyStart]; ok {
		chunk.Start = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadKeyEnd]; ok {
		chunk.End = int(v.GetIntegerValue())
	}
	return chunk
}
