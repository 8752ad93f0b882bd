package jobs

import (
	"context"
	"log/slog"
	"time"

	"apiworkbench/services"
	"apiworkbench/utils"
)

// HistoryRetention prunes history older than the retention window, archiving
// it first when an archiver is configured.
type HistoryRetention struct {
	history   *services.HistoryService
	archiver  services.HistoryArchiver
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type RetentionOption func(*HistoryRetention)

func WithArchiver(archiver services.HistoryArchiver) RetentionOption {
	return func(j *HistoryRetention) { j.archiver = archiver }
}

func WithRetentionClock(now func() time.Time) RetentionOption {
	return func(j *HistoryRetention) { j.now = now }
}

func WithRetentionLogger(logger *slog.Logger) RetentionOption {
	return func(j *HistoryRetention) { j.logger = logger }
}

func NewHistoryRetention(history *services.HistoryService, retention, interval time.Duration, opts ...RetentionOption) *HistoryRetention {
	j := &HistoryRetention{
		history:   history,
		retention: retention,
		interval:  interval,
		timeout:   30 * time.Minute,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    utils.Logger(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "history_retention")
	return j
}

// Start runs a cleanup immediately and then every interval until ctx is
// cancelled. It blocks; callers run it in a goroutine.
func (j *HistoryRetention) Start(ctx context.Context) {
	j.logger.Info("starting history retention job", "retention", j.retention, "interval", j.interval, "archive", j.archiver != nil)

	j.runCleanup(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("history retention job stopped")
			return
		case <-ticker.C:
			j.runCleanup(ctx)
		}
	}
}

func (j *HistoryRetention) runCleanup(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("history cleanup failed", "error", err)
	}
}

// RunOnce prunes everything executed before now minus the retention window.
func (j *HistoryRetention) RunOnce(ctx context.Context) (*services.PruneResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	result, err := j.history.PruneHistory(ctx, cutoff, j.archiver)
	if err != nil {
		return nil, err
	}

	j.logger.Info("history cleanup completed",
		"cutoff", cutoff,
		"archived", result.Archived,
		"deleted", result.Deleted,
	)
	return result, nil
}
