// Package listing maintains the in-memory index of catalog listings and
// their validation state.
package listing

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentmanifest/registry/internal/domain"
)

// Catalog is the file source listings are loaded from.
type Catalog interface {
	ReadFile(path string) ([]byte, error)
}

// Filter narrows List results.
type Filter struct {
	Category     string
	FreeOnly     bool
	VerifiedOnly bool
}

// Store provides access to listings. Listings come from the catalog
// repository and from runtime submissions that passed validation.
type Store struct {
	catalog   Catalog
	cache     *lru.Cache[string, *domain.Listing]
	cacheSize int
	logger    *slog.Logger

	mu      sync.RWMutex
	entries []domain.CatalogEntry
	local   map[string]*domain.Listing
	results map[string]*domain.ValidationResult

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	lastSyncAt  atomic.Value // time.Time
}

// Config holds listing store configuration.
type Config struct {
	Catalog   Catalog // nil in validate-only mode
	CacheSize int
	Logger    *slog.Logger
}

// New creates a listing store.
func New(cfg Config) (*Store, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := lru.New[string, *domain.Listing](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Store{
		catalog:   cfg.Catalog,
		cache:     cache,
		cacheSize: cfg.CacheSize,
		logger:    cfg.Logger,
		local:     make(map[string]*domain.Listing),
		results:   make(map[string]*domain.ValidationResult),
	}
	s.lastSyncAt.Store(time.Time{})
	return s, nil
}

// LoadCatalog loads and validates the catalog index.yaml.
func (s *Store) LoadCatalog() error {
	if s.catalog == nil {
		return errors.New("no catalog configured")
	}

	content, err := s.catalog.ReadFile("index.yaml")
	if err != nil {
		return fmt.Errorf("index.yaml not found: %w", err)
	}

	var index domain.CatalogIndex
	if err := yaml.Unmarshal(content, &index); err != nil {
		return fmt.Errorf("failed to parse index.yaml: %w", err)
	}

	if len(index.Listings) == 0 {
		s.logger.Warn("catalog index contains no listings")
	}

	s.mu.Lock()
	s.entries = index.Listings
	s.mu.Unlock()
	s.lastSyncAt.Store(time.Now())

	s.logger.Info("catalog index loaded",
		"version", index.Version,
		"commit", index.Commit,
		"listing_count", len(index.Listings),
	)
	return nil
}

// Refresh reloads the catalog index and invalidates the cache.
func (s *Store) Refresh() error {
	s.cache.Purge()
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
	return s.LoadCatalog()
}

// Get retrieves a listing by ID, loading and parsing its file on demand.
func (s *Store) Get(id string) (*domain.Listing, error) {
	if l, ok := s.cache.Get(id); ok {
		s.cacheHits.Add(1)
		return s.withResult(l), nil
	}
	s.cacheMisses.Add(1)

	s.mu.RLock()
	if l, ok := s.local[id]; ok {
		s.mu.RUnlock()
		return s.withResult(l), nil
	}
	var entry *domain.CatalogEntry
	for i := range s.entries {
		if s.entries[i].ID == id {
			entry = &s.entries[i]
			break
		}
	}
	s.mu.RUnlock()

	if entry == nil {
		return nil, fmt.Errorf("listing not found: %s", id)
	}

	l, err := s.loadEntry(entry)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, l)
	return s.withResult(l), nil
}

func (s *Store) loadEntry(entry *domain.CatalogEntry) (*domain.Listing, error) {
	if s.catalog == nil {
		return nil, errors.New("no catalog configured")
	}
	content, err := s.catalog.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing file: %w", err)
	}

	var l domain.Listing
	if err := yaml.Unmarshal(content, &l); err != nil {
		return nil, fmt.Errorf("failed to parse listing file %s: %w", entry.Path, err)
	}
	if l.ID == "" {
		l.ID = entry.ID
	}
	if l.URL == "" {
		l.URL = entry.URL
	}
	if l.Name == "" {
		l.Name = entry.Name
	}
	return &l, nil
}

// withResult overlays any runtime validation result onto the listing.
func (s *Store) withResult(l *domain.Listing) *domain.Listing {
	s.mu.RLock()
	res, ok := s.results[l.ID]
	s.mu.RUnlock()
	if !ok {
		return l
	}
	copied := *l
	copied.LastResult = res
	copied.ValidatedAt = res.ValidatedAt
	return &copied
}

// Upsert adds or replaces a runtime listing (e.g. a submission that passed
// validation). Runtime listings survive catalog refreshes.
func (s *Store) Upsert(l *domain.Listing) {
	s.mu.Lock()
	s.local[l.ID] = l
	s.mu.Unlock()
	s.cache.Remove(l.ID)
}

// SetResult records the latest validation result for a listing.
func (s *Store) SetResult(id string, res *domain.ValidationResult) {
	s.mu.Lock()
	s.results[id] = res
	s.mu.Unlock()
}

// List returns a filtered, cursor-paginated page of listing summaries.
func (s *Store) List(filter Filter, cursor string, limit int) (*domain.ListingListResponse, error) {
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}

	ids := s.allIDs()

	startIdx := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				startIdx = i + 1
				break
			}
		}
	}

	summaries := make([]domain.ListingSummary, 0, limit)
	var lastIncluded string
	i := startIdx
	for ; i < len(ids) && len(summaries) < limit; i++ {
		l, err := s.Get(ids[i])
		if err != nil {
			s.logger.Warn("skipping unreadable listing", "id", ids[i], "error", err)
			continue
		}
		if !matches(l, filter) {
			continue
		}
		summaries = append(summaries, summarize(l))
		lastIncluded = l.ID
	}

	var nextCursor string
	if i < len(ids) && lastIncluded != "" {
		nextCursor = lastIncluded
	}

	return &domain.ListingListResponse{
		Listings: summaries,
		Metadata: domain.ListMetadata{
			NextCursor: nextCursor,
			Count:      len(summaries),
		},
	}, nil
}

// Search returns listings whose name or description matches the query.
func (s *Store) Search(query string) []domain.ListingSummary {
	query = strings.ToLower(query)

	var results []domain.ListingSummary
	for _, id := range s.allIDs() {
		l, err := s.Get(id)
		if err != nil {
			continue
		}
		desc := ""
		if l.Manifest != nil {
			desc = l.Manifest.Description
		}
		if strings.Contains(strings.ToLower(l.Name), query) ||
			strings.Contains(strings.ToLower(desc), query) {
			results = append(results, summarize(l))
		}
	}
	return results
}

// allIDs returns catalog and runtime listing IDs sorted for stable paging.
func (s *Store) allIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.entries)+len(s.local))
	ids := make([]string, 0, len(s.entries)+len(s.local))
	for _, e := range s.entries {
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			ids = append(ids, e.ID)
		}
	}
	for id := range s.local {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func matches(l *domain.Listing, f Filter) bool {
	if f.VerifiedOnly && !l.Verified() {
		return false
	}
	// free_only deliberately ORs the pricing model and the payment model;
	// a free pricing tier and a free payment model both qualify.
	if f.FreeOnly && !l.Free() {
		return false
	}
	if f.Category != "" {
		if l.Manifest == nil {
			return false
		}
		if l.Manifest.PrimaryCategory != f.Category {
			found := false
			for _, c := range l.Manifest.Categories {
				if c == f.Category {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func summarize(l *domain.Listing) domain.ListingSummary {
	sum := domain.ListingSummary{
		ID:           l.ID,
		Name:         l.Name,
		URL:          l.URL,
		PricingModel: l.PricingModel(),
		PaymentModel: l.PaymentModel(),
		Verified:     l.Verified(),
		Badges:       l.Badges(),
	}
	if l.Manifest != nil {
		sum.Description = l.Manifest.Description
		sum.Categories = l.Manifest.Categories
	}
	return sum
}

// Count returns the number of known listings.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.entries)+len(s.local))
	for _, e := range s.entries {
		seen[e.ID] = struct{}{}
	}
	for id := range s.local {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// CacheStats returns current cache statistics.
func (s *Store) CacheStats() *domain.CacheStats {
	hits := s.cacheHits.Load()
	misses := s.cacheMisses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return &domain.CacheStats{
		Size:     s.cache.Len(),
		Capacity: s.cacheSize,
		HitRate:  hitRate,
	}
}

// LastSyncAt returns the last catalog load timestamp.
func (s *Store) LastSyncAt() time.Time {
	return s.lastSyncAt.Load().(time.Time)
}
