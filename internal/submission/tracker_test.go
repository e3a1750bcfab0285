package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmanifest/registry/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	tr := NewTracker(time.Minute, nil)

	sub := tr.Create("https://api.example.com")
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, StatusPending, sub.Status)
	assert.False(t, sub.SubmittedAt.IsZero())

	got, ok := tr.Get(sub.ID)
	require.True(t, ok)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "https://api.example.com", got.URL)

	_, ok = tr.Get("no-such-id")
	assert.False(t, ok)
}

func TestDistinctIDs(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	a := tr.Create("https://a.example.com")
	b := tr.Create("https://b.example.com")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, tr.Len())
}

func TestStatusTransitions(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	sub := tr.Create("https://api.example.com")

	tr.SetStatus(sub.ID, StatusValidating)
	got, ok := tr.Get(sub.ID)
	require.True(t, ok)
	assert.Equal(t, StatusValidating, got.Status)

	res := &domain.ValidationResult{Passed: false}
	tr.Complete(sub.ID, res)
	got, ok = tr.Get(sub.ID)
	require.True(t, ok)
	// A failed validation still completes; the result is the report.
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, res, got.Result)
}

func TestCompleteNilResultMarksFailed(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	sub := tr.Create("https://api.example.com")

	tr.Complete(sub.ID, nil)
	got, ok := tr.Get(sub.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.Result)
}

func TestGetCopiesState(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	sub := tr.Create("https://api.example.com")

	got, ok := tr.Get(sub.ID)
	require.True(t, ok)
	got.Status = StatusFailed

	again, ok := tr.Get(sub.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, again.Status)
}

func TestExpiry(t *testing.T) {
	tr := NewTracker(20*time.Millisecond, nil)
	sub := tr.Create("https://api.example.com")

	time.Sleep(40 * time.Millisecond)

	_, ok := tr.Get(sub.ID)
	assert.False(t, ok)

	tr.evictExpired()
	assert.Equal(t, 0, tr.Len())
}

func TestCompleteExtendsTTL(t *testing.T) {
	tr := NewTracker(50*time.Millisecond, nil)
	sub := tr.Create("https://api.example.com")

	time.Sleep(30 * time.Millisecond)
	tr.Complete(sub.ID, &domain.ValidationResult{Passed: true})

	// Past the original deadline, but completion reset the clock.
	time.Sleep(30 * time.Millisecond)
	_, ok := tr.Get(sub.ID)
	assert.True(t, ok)
}
