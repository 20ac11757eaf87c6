package task

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/domain"
)

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistrySingleFlightPerTarget(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour, nil)
	first := uuid.New()
	require.NoError(t, registry.Begin(first, domain.LogTypeMetadataUpdate, "metadata_update"))

	err := registry.Begin(uuid.New(), domain.LogTypeMetadataUpdate, "metadata_update")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// A different target is unaffected.
	require.NoError(t, registry.Begin(uuid.New(), domain.LogTypeRankingWorks, "ranking_works:daily"))

	// Finishing releases the key for the next submission.
	registry.Finish(first, TaskStatusCompleted, "done", 3)
	assert.NoError(t, registry.Begin(uuid.New(), domain.LogTypeMetadataUpdate, "metadata_update"))
}

func TestRegistryFinishIsFinal(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour, nil)
	id := uuid.New()
	require.NoError(t, registry.Begin(id, domain.LogTypeRankingWorks, "ranking_works:daily"))

	registry.MarkProcessing(id)
	registry.Finish(id, TaskStatusCompleted, "stored 42 works", 42)

	// The runner's fallback marks must not overwrite the reported outcome.
	registry.MarkFailed(id, "late failure")
	registry.MarkProcessing(id)

	rec, err := registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, rec.Status)
	assert.Equal(t, "stored 42 works", rec.Result)
	assert.Equal(t, 42, rec.ArtworksCount)
	require.NotNil(t, rec.FinishedAt)
}

func TestRegistryRetentionExpiry(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	registry := NewRegistry(time.Hour, clock.Now)

	id := uuid.New()
	require.NoError(t, registry.Begin(id, domain.LogTypeFollowSync, "follow_sync"))
	registry.Finish(id, TaskStatusCompleted, "done", 0)

	clock.Advance(30 * time.Minute)
	_, err := registry.Get(id)
	assert.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = registry.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistryRunningRecordsNeverExpire(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	registry := NewRegistry(time.Hour, clock.Now)

	id := uuid.New()
	require.NoError(t, registry.Begin(id, domain.LogTypeFollowSync, "follow_sync"))
	registry.MarkProcessing(id)

	clock.Advance(48 * time.Hour)
	rec, err := registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusProcessing, rec.Status)
}

func TestTargetKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ranking_works:daily",
		TargetKey(domain.LogTypeRankingWorks, collector.Params{}))
	assert.Equal(t, "ranking_works:weekly",
		TargetKey(domain.LogTypeRankingWorks, collector.Params{Period: "weekly"}))

	// Keyword order must not matter.
	a := TargetKey(domain.LogTypeCustomRanking, collector.Params{Keywords: []string{"b", "a"}})
	b := TargetKey(domain.LogTypeCustomRanking, collector.Params{Keywords: []string{"a", "b"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a,
		TargetKey(domain.LogTypeCustomRanking, collector.Params{Keywords: []string{"a"}}))

	// All metadata-update runs share one key.
	assert.Equal(t, "metadata_update",
		TargetKey(domain.LogTypeMetadataUpdate, collector.Params{}))
}
