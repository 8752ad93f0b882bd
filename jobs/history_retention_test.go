package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiworkbench/models"
	"apiworkbench/services"
	"apiworkbench/store"
	"apiworkbench/utils"
)

type fakeArchiver struct {
	mu      sync.Mutex
	batches [][]models.History
}

func (a *fakeArchiver) Archive(_ context.Context, _ string, entries []models.History) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, entries)
	return nil
}

func (a *fakeArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batches)
}

// seedHistory records one entry per timestamp.
func seedHistory(t *testing.T, executedAt ...time.Time) *services.HistoryService {
	t.Helper()
	i := 0
	clock := func() time.Time {
		ts := executedAt[i]
		i++
		return ts
	}
	history := services.NewHistoryService(store.NewMemoryStore(),
		services.WithClock(clock),
		services.WithLogger(utils.NopLogger()),
	)
	for range executedAt {
		_, err := history.Record(context.Background(),
			services.PreparedRequest{Method: "GET", URL: "https://example.com"},
			&services.ExecutionResponse{StatusCode: 200},
			nil,
		)
		require.NoError(t, err)
	}
	return history
}

func TestRunOncePrunesExpiredHistory(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	history := seedHistory(t,
		now.Add(-72*time.Hour),
		now.Add(-25*time.Hour),
		now.Add(-1*time.Hour),
	)
	archiver := &fakeArchiver{}

	job := NewHistoryRetention(history, 24*time.Hour, time.Hour,
		WithArchiver(archiver),
		WithRetentionClock(func() time.Time { return now }),
		WithRetentionLogger(utils.NopLogger()),
	)

	result, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, int64(2), result.Deleted)
	require.Equal(t, 1, archiver.count())
	assert.Len(t, archiver.batches[0], 2)

	page, err := history.ListHistory(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	result, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)
	assert.Equal(t, 1, archiver.count(), "nothing left to archive")
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	history := seedHistory(t, now.Add(-48*time.Hour))
	archiver := &fakeArchiver{}

	job := NewHistoryRetention(history, 24*time.Hour, time.Hour,
		WithArchiver(archiver),
		WithRetentionClock(func() time.Time { return now }),
		WithRetentionLogger(utils.NopLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return archiver.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after cancel")
	}
}
