// Package memstore keeps content, catalog entries and monetization identifiers in process memory.
// It backs DB-less runs and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"PublishGate/internal/domain"
	"PublishGate/internal/ports"
)

// Store is a concurrency-safe in-memory repository.
type Store struct {
	mu          sync.RWMutex
	records     map[string]domain.ContentRecord
	catalog     map[string]domain.CatalogEntry
	identifiers map[domain.IdentifierKind]map[int64]struct{}
	now         func() time.Time
}

var (
	_ ports.ContentRepository  = (*Store)(nil)
	_ ports.CatalogRepository  = (*Store)(nil)
	_ ports.IdentifierRegistry = (*Store)(nil)
)

// New returns a store holding copies of the given records.
func New(records ...domain.ContentRecord) *Store {
	s := &Store{
		records:     make(map[string]domain.ContentRecord, len(records)),
		catalog:     make(map[string]domain.CatalogEntry),
		identifiers: make(map[domain.IdentifierKind]map[int64]struct{}),
		now:         time.Now,
	}
	for _, rec := range records {
		s.records[rec.ID] = cloneRecord(rec)
	}
	return s
}

// Put inserts or replaces a record.
func (s *Store) Put(rec domain.ContentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(rec)
}

// AddIdentifiers registers identifiers of one kind.
func (s *Store) AddIdentifiers(kind domain.IdentifierKind, ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.identifiers[kind]
	if !ok {
		set = make(map[int64]struct{}, len(ids))
		s.identifiers[kind] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// Get returns a copy of the stored record.
func (s *Store) Get(_ context.Context, id string) (domain.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.ContentRecord{}, fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}
	return cloneRecord(rec), nil
}

// MarkPublished flips the record to published. Empty identifiers keep the stored values.
func (s *Store) MarkPublished(_ context.Context, id string, update domain.PublishUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}

	publishedAt := update.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.now()
	}
	rec.Status = domain.StatusPublished
	if update.ExternalPostID != "" {
		rec.ExternalPostID = update.ExternalPostID
	}
	if update.ExternalURL != "" {
		rec.ExternalURL = update.ExternalURL
	}
	rec.PublishedAt = &publishedAt
	rec.UpdatedAt = s.now()
	s.records[id] = rec
	return nil
}

// UpsertCatalogEntry writes the entry keyed by URL.
func (s *Store) UpsertCatalogEntry(_ context.Context, entry domain.CatalogEntry) error {
	if entry.URL == "" {
		return fmt.Errorf("catalog entry for %s has no url", entry.ArticleID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[entry.URL] = entry
	return nil
}

// CatalogEntries lists catalog entries ordered by URL.
func (s *Store) CatalogEntries() []domain.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CatalogEntry, 0, len(s.catalog))
	for _, entry := range s.catalog {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Exists reports whether the identifier was registered.
func (s *Store) Exists(_ context.Context, kind domain.IdentifierKind, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identifiers[kind][id]
	return ok, nil
}

// Seed is the JSON shape accepted by LoadSeed.
type Seed struct {
	Records     []domain.ContentRecord           `json:"records"`
	Identifiers map[domain.IdentifierKind][]int64 `json:"identifiers"`
}

// LoadSeed builds a store from a JSON seed file.
func LoadSeed(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}

	s := New(seed.Records...)
	for kind, ids := range seed.Identifiers {
		s.AddIdentifiers(kind, ids...)
	}
	return s, nil
}

func cloneRecord(rec domain.ContentRecord) domain.ContentRecord {
	rec.FAQs = slices.Clone(rec.FAQs)
	if rec.PublishedAt != nil {
		at := *rec.PublishedAt
		rec.PublishedAt = &at
	}
	return rec
}
