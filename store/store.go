// Package store persists folders, requests, environments, variables and
// execution history. Every backend implements Store; services never talk to a
// driver directly.
package store

import (
	"context"
	"errors"
	"time"

	"apiworkbench/models"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("store: record not found")

type FolderRepository interface {
	Get(ctx context.Context, id int64) (*models.Folder, error)
	// List returns every folder ordered by (sort_order, id).
	List(ctx context.Context) ([]models.Folder, error)
	// ListChildren returns the direct children of parentID; nil lists the roots.
	ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, error)
	// MaxSortOrder reports the largest sort_order among the children of parentID.
	// ok is false when parentID has no children.
	MaxSortOrder(ctx context.Context, parentID *int64) (highest int, ok bool, err error)
	Create(ctx context.Context, folder *models.Folder) error
	Update(ctx context.Context, folder *models.Folder) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

type RequestRepository interface {
	Get(ctx context.Context, id int64) (*models.Request, error)
	// List returns every request ordered by (sort_order, id).
	List(ctx context.Context) ([]models.Request, error)
	// ListByFolder returns the requests of folderID; nil lists standalone requests.
	ListByFolder(ctx context.Context, folderID *int64) ([]models.Request, error)
	Create(ctx context.Context, request *models.Request) error
	Update(ctx context.Context, request *models.Request) error
	Delete(ctx context.Context, id int64) error
	DeleteByFolders(ctx context.Context, folderIDs []int64) (int64, error)
}

type EnvironmentRepository interface {
	Get(ctx context.Context, id int64) (*models.Environment, error)
	List(ctx context.Context) ([]models.Environment, error)
	// GetActive returns ErrNotFound when no environment is active.
	GetActive(ctx context.Context) (*models.Environment, error)
	Create(ctx context.Context, env *models.Environment) error
	Update(ctx context.Context, env *models.Environment) error
	Delete(ctx context.Context, id int64) error
	DeactivateAll(ctx context.Context) error
}

type VariableRepository interface {
	Get(ctx context.Context, id int64) (*models.Variable, error)
	ListByEnvironment(ctx context.Context, environmentID int64) ([]models.Variable, error)
	Create(ctx context.Context, variable *models.Variable) error
	Update(ctx context.Context, variable *models.Variable) error
	Delete(ctx context.Context, id int64) error
	DeleteByEnvironment(ctx context.Context, environmentID int64) (int64, error)
}

type HistoryRepository interface {
	Get(ctx context.Context, id int64) (*models.History, error)
	// List pages through history newest first and reports the total row count.
	List(ctx context.Context, offset, limit int) ([]models.History, int64, error)
	Create(ctx context.Context, entry *models.History) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	// ClearRequestRef nulls request_id on every entry that points at requestID.
	ClearRequestRef(ctx context.Context, requestID int64) error
	// ListBefore returns entries executed strictly before cutoff, oldest first.
	ListBefore(ctx context.Context, cutoff time.Time) ([]models.History, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Folders() FolderRepository
	Requests() RequestRepository
	Environments() EnvironmentRepository
	Variables() VariableRepository
	History() HistoryRepository

	// WithinTx runs fn atomically. The Store handed to fn is bound to the
	// transaction; returning an error rolls every write back. Calling WithinTx
	// on a transaction-bound Store joins the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Migrate creates tables, collections and indexes when missing.
	Migrate(ctx context.Context) error
	Close() error
}
