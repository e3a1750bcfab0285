// Package sync keeps the listing store current with the catalog repository
// and re-validates listings after changes.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentmanifest/registry/internal/catalog"
	"github.com/agentmanifest/registry/internal/listing"
	"github.com/agentmanifest/registry/internal/middleware"
	"github.com/agentmanifest/registry/internal/validator"
)

// Manager handles catalog synchronization and listing revalidation.
type Manager struct {
	store        *catalog.Store
	listings     *listing.Store
	engine       *validator.Engine
	pollInterval time.Duration
	debounce     time.Duration
	logger       *slog.Logger

	triggerChan chan struct{}
	mu          sync.Mutex
	lastSync    time.Time
	syncing     bool
}

// Config holds sync manager configuration.
type Config struct {
	Store        *catalog.Store
	Listings     *listing.Store
	Engine       *validator.Engine
	PollInterval time.Duration
	Debounce     time.Duration
	Logger       *slog.Logger
}

// NewManager creates a sync manager.
func NewManager(cfg Config) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		store:        cfg.Store,
		listings:     cfg.Listings,
		engine:       cfg.Engine,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		logger:       cfg.Logger,
		triggerChan:  make(chan struct{}, 1),
	}
}

// Start begins the polling loop. It blocks until ctx is canceled.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Info("sync manager started",
		"poll_interval", m.pollInterval,
		"debounce", m.debounce,
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sync manager stopped")
			return

		case <-ticker.C:
			m.doSync(ctx, "poll")

		case <-m.triggerChan:
			m.debounceSync(ctx)
		}
	}
}

// Trigger initiates a sync; called by the webhook handler.
func (m *Manager) Trigger() {
	select {
	case m.triggerChan <- struct{}{}:
		m.logger.Debug("sync triggered")
	default:
		m.logger.Debug("sync already pending")
	}
}

// LastSyncTime returns the last successful sync time.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync
}

// IsSyncing returns whether a sync is in progress.
func (m *Manager) IsSyncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

func (m *Manager) debounceSync(ctx context.Context) {
	m.mu.Lock()
	if time.Since(m.lastSync) < m.debounce {
		m.mu.Unlock()
		m.logger.Debug("sync debounced", "last_sync", m.lastSync)
		return
	}
	m.mu.Unlock()

	m.doSync(ctx, "webhook")
}

func (m *Manager) doSync(ctx context.Context, source string) {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		m.logger.Debug("sync already in progress")
		return
	}
	m.syncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	start := time.Now()
	m.logger.Info("starting sync", "source", source)

	changed, err := m.store.PullWithRetry(ctx, 3)
	if err != nil {
		middleware.CatalogSyncErrors.Inc()
		m.logger.Error("sync failed",
			"source", source,
			"error", err,
			"duration", time.Since(start),
		)
		return
	}

	if !changed {
		m.logger.Debug("no changes detected", "source", source)
		m.markSynced()
		return
	}

	if err := m.listings.Refresh(); err != nil {
		middleware.CatalogSyncErrors.Inc()
		m.logger.Error("failed to refresh listing store",
			"source", source,
			"error", err,
		)
		return
	}

	middleware.CatalogSyncDuration.Observe(time.Since(start).Seconds())
	middleware.ListingsTotal.Set(float64(m.listings.Count()))
	m.markSynced()

	m.logger.Info("sync completed",
		"source", source,
		"commit", m.store.CurrentCommit(),
		"listing_count", m.listings.Count(),
		"duration", time.Since(start),
	)

	m.revalidate(ctx)
}

func (m *Manager) markSynced() {
	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()
}

// revalidate re-runs validation for every listing after a catalog change.
// Listings run sequentially: revalidation is background work and must not
// stampede providers.
func (m *Manager) revalidate(ctx context.Context) {
	if m.engine == nil {
		return
	}

	for _, sum := range m.listings.Search("") {
		if ctx.Err() != nil {
			return
		}
		if sum.URL == "" {
			continue
		}

		result := m.engine.ValidateURL(ctx, sum.URL)
		m.listings.SetResult(sum.ID, result)

		outcome := "failed"
		if result.Passed {
			outcome = "passed"
		}
		middleware.RevalidationsTotal.WithLabelValues(outcome).Inc()

		m.logger.Info("listing revalidated",
			"id", sum.ID,
			"url", sum.URL,
			"passed", result.Passed,
		)
	}
}
