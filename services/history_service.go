package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"apiworkbench/models"
	"apiworkbench/store"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// HistoryArchiver stores expired history entries somewhere durable before
// they are pruned.
type HistoryArchiver interface {
	Archive(ctx context.Context, objectName string, entries []models.History) error
}

type HistoryPage struct {
	Items []models.History `json:"items"`
	Total int64            `json:"total"`
}

type PruneResult struct {
	Archived   int    `json:"archived"`
	Deleted    int64  `json:"deleted"`
	ObjectName string `json:"object_name,omitempty"`
}

type HistoryService struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewHistoryService(st store.Store, opts ...Option) *HistoryService {
	cfg := newServiceConfig("history", opts)
	return &HistoryService{store: st, now: cfg.now, logger: cfg.logger}
}

// Record appends one entry for a completed execution. sourceRequestID is nil
// for ad-hoc requests.
func (s *HistoryService) Record(ctx context.Context, sent PreparedRequest, resp *ExecutionResponse, sourceRequestID *int64) (*models.History, error) {
	entry := &models.History{
		RequestID:       sourceRequestID,
		Method:          sent.Method,
		URL:             sent.URL,
		RequestHeaders:  maps.Clone(sent.Headers),
		RequestBody:     sent.Body,
		StatusCode:      resp.StatusCode,
		StatusText:      resp.StatusText,
		ResponseHeaders: maps.Clone(resp.Headers),
		ResponseBody:    resp.Body,
		ResponseTimeMS:  resp.ResponseTimeMS,
		ResponseSize:    resp.ResponseSize,
		ExecutedAt:      s.now(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.History().Create(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}
	return entry, nil
}

// ListHistory pages through history newest first. A non-positive limit
// selects DefaultHistoryLimit.
func (s *HistoryService) ListHistory(ctx context.Context, skip, limit int) (*HistoryPage, error) {
	skip = max(skip, 0)
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	items, total, err := s.store.History().List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if items == nil {
		items = []models.History{}
	}
	return &HistoryPage{Items: items, Total: total}, nil
}

func (s *HistoryService) GetHistory(ctx context.Context, id int64) (*models.History, error) {
	entry, err := s.store.History().Get(ctx, id)
	if err != nil {
		return nil, translate(err, "History entry", id)
	}
	return entry, nil
}

func (s *HistoryService) DeleteHistory(ctx context.Context, id int64) error {
	if err := s.store.History().Delete(ctx, id); err != nil {
		return translate(err, "History entry", id)
	}
	return nil
}

func (s *HistoryService) ClearHistory(ctx context.Context) (int64, error) {
	n, err := s.store.History().DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("history cleared", "deleted", n)
	return n, nil
}

// PruneHistory deletes entries executed before cutoff. When archiver is set
// the entries are uploaded first and nothing is deleted if the upload fails.
func (s *HistoryService) PruneHistory(ctx context.Context, cutoff time.Time, archiver HistoryArchiver) (*PruneResult, error) {
	result := &PruneResult{}

	if archiver != nil {
		expired, err := s.store.History().ListBefore(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("failed to list expired history: %w", err)
		}
		if len(expired) > 0 {
			result.ObjectName = fmt.Sprintf("history/%s-%s.jsonl", cutoff.UTC().Format("20060102T150405Z"), uuid.NewString())
			if err := archiver.Archive(ctx, result.ObjectName, expired); err != nil {
				return nil, fmt.Errorf("failed to archive history: %w", err)
			}
			result.Archived = len(expired)
		}
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		n, err := tx.History().DeleteBefore(ctx, cutoff)
		result.Deleted = n
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prune history: %w", err)
	}

	s.logger.Info("history pruned", "cutoff", cutoff, "archived", result.Archived, "deleted", result.Deleted)
	return result, nil
}
