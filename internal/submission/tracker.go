// Package submission tracks async validation submissions in an explicit
// keyed store with TTL eviction.
package submission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentmanifest/registry/internal/domain"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// DefaultTTL is how long a finished submission stays queryable.
const DefaultTTL = 1 * time.Hour

// Submission is one tracked async validation.
type Submission struct {
	ID          string
	URL         string
	Status      Status
	SubmittedAt time.Time
	Result      *domain.ValidationResult

	expiresAt time.Time
}

// Tracker is a keyed submission store with TTL eviction. It is owned by the
// API layer and deliberately not a process-wide singleton.
type Tracker struct {
	mu     sync.RWMutex
	items  map[string]*Submission
	ttl    time.Duration
	logger *slog.Logger
}

// NewTracker creates a tracker with the given entry TTL.
func NewTracker(ttl time.Duration, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		items:  make(map[string]*Submission),
		ttl:    ttl,
		logger: logger,
	}
}

// Start runs the eviction janitor until ctx is canceled.
func (t *Tracker) Start(ctx context.Context) {
	interval := t.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.evictExpired()
		}
	}
}

// Create registers a new pending submission and returns it.
func (t *Tracker) Create(url string) *Submission {
	now := time.Now()
	sub := &Submission{
		ID:          uuid.NewString(),
		URL:         url,
		Status:      StatusPending,
		SubmittedAt: now,
		expiresAt:   now.Add(t.ttl),
	}

	t.mu.Lock()
	t.items[sub.ID] = sub
	t.mu.Unlock()
	return sub
}

// Get returns a copy of the submission with the given ID.
func (t *Tracker) Get(id string) (Submission, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sub, ok := t.items[id]
	if !ok || time.Now().After(sub.expiresAt) {
		return Submission{}, false
	}
	return *sub, true
}

// SetStatus transitions a submission's status.
func (t *Tracker) SetStatus(id string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sub, ok := t.items[id]; ok {
		sub.Status = status
	}
}

// Complete records the final result. A passed result completes the
// submission; a failed validation still completes it (the result is the
// report), only engine-level inability to produce a result marks it failed.
func (t *Tracker) Complete(id string, result *domain.ValidationResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.items[id]
	if !ok {
		return
	}
	if result == nil {
		sub.Status = StatusFailed
		return
	}
	sub.Status = StatusComplete
	sub.Result = result
	sub.expiresAt = time.Now().Add(t.ttl)
}

// Len returns the number of tracked submissions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Tracker) evictExpired() {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, sub := range t.items {
		if now.After(sub.expiresAt) {
			delete(t.items, id)
			evicted++
		}
	}
	if evicted > 0 {
		t.logger.Debug("evicted expired submissions", "count", evicted, "remaining", len(t.items))
	}
}
