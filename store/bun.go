package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"apiworkbench/models"
)

// BunStore backs the repositories with a SQL database through bun.
type BunStore struct {
	db   bun.IDB
	root *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, root: db}
}

// OpenSQLite opens a sqlite database. A single connection is kept so that
// in-memory databases are shared and writers never contend.
func OpenSQLite(dsn string) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return NewBunStore(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

func OpenPostgres(dsn string) (*BunStore, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return NewBunStore(bun.NewDB(sqldb, pgdialect.New())), nil
}

func (s *BunStore) Folders() FolderRepository           { return bunFolders{s.db} }
func (s *BunStore) Requests() RequestRepository         { return bunRequests{s.db} }
func (s *BunStore) Environments() EnvironmentRepository { return bunEnvironments{s.db} }
func (s *BunStore) Variables() VariableRepository       { return bunVariables{s.db} }
func (s *BunStore) History() HistoryRepository          { return bunHistory{s.db} }

func (s *BunStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.root == nil {
		return fn(ctx, s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunStore{db: tx})
	})
}

func (s *BunStore) Migrate(ctx context.Context) error {
	tables := []any{
		(*models.Folder)(nil),
		(*models.Request)(nil),
		(*models.Environment)(nil),
		(*models.Variable)(nil),
		(*models.History)(nil),
	}
	for _, model := range tables {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*models.Folder)(nil), "idx_folders_parent_folder_id", "parent_folder_id"},
		{(*models.Request)(nil), "idx_requests_folder_id", "folder_id"},
		{(*models.Variable)(nil), "idx_variables_environment_id", "environment_id"},
		{(*models.History)(nil), "idx_history_request_id", "request_id"},
		{(*models.History)(nil), "idx_history_executed_at", "executed_at"},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *BunStore) Close() error {
	if s.root == nil {
		return nil
	}
	return s.root.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func whereRef(q *bun.SelectQuery, column string, ref *int64) *bun.SelectQuery {
	if ref == nil {
		return q.Where("? IS NULL", bun.Ident(column))
	}
	return q.Where("? = ?", bun.Ident(column), *ref)
}

// ========== Folders ==========

type bunFolders struct{ db bun.IDB }

func (r bunFolders) Get(ctx context.Context, id int64) (*models.Folder, error) {
	folder := new(models.Folder)
	if err := r.db.NewSelect().Model(folder).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return folder, nil
}

func (r bunFolders) List(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.db.NewSelect().Model(&folders).Order("sort_order ASC", "id ASC").Scan(ctx)
	return folders, err
}

func (r bunFolders) ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, error) {
	var folders []models.Folder
	q := r.db.NewSelect().Model(&folders)
	err := whereRef(q, "parent_folder_id", parentID).Order("sort_order ASC", "id ASC").Scan(ctx)
	return folders, err
}

func (r bunFolders) MaxSortOrder(ctx context.Context, parentID *int64) (int, bool, error) {
	var highest sql.NullInt64
	q := r.db.NewSelect().Model((*models.Folder)(nil)).ColumnExpr("MAX(sort_order)")
	if err := whereRef(q, "parent_folder_id", parentID).Scan(ctx, &highest); err != nil {
		return 0, false, err
	}
	return int(highest.Int64), highest.Valid, nil
}

func (r bunFolders) Create(ctx context.Context, folder *models.Folder) error {
	_, err := r.db.NewInsert().Model(folder).Exec(ctx)
	return err
}

func (r bunFolders) Update(ctx context.Context, folder *models.Folder) error {
	return expectAffected(r.db.NewUpdate().Model(folder).WherePK().Exec(ctx))
}

func (r bunFolders) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return affected(r.db.NewDelete().Model((*models.Folder)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx))
}

// ========== Requests ==========

type bunRequests struct{ db bun.IDB }

func (r bunRequests) Get(ctx context.Context, id int64) (*models.Request, error) {
	request := new(models.Request)
	if err := r.db.NewSelect().Model(request).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return request, nil
}

func (r bunRequests) List(ctx context.Context) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.NewSelect().Model(&requests).Order("sort_order ASC", "id ASC").Scan(ctx)
	return requests, err
}

func (r bunRequests) ListByFolder(ctx context.Context, folderID *int64) ([]models.Request, error) {
	var requests []models.Request
	q := r.db.NewSelect().Model(&requests)
	err := whereRef(q, "folder_id", folderID).Order("sort_order ASC", "id ASC").Scan(ctx)
	return requests, err
}

func (r bunRequests) Create(ctx context.Context, request *models.Request) error {
	_, err := r.db.NewInsert().Model(request).Exec(ctx)
	return err
}

func (r bunRequests) Update(ctx context.Context, request *models.Request) error {
	return expectAffected(r.db.NewUpdate().Model(request).WherePK().Exec(ctx))
}

func (r bunRequests) Delete(ctx context.Context, id int64) error {
	return expectAffected(r.db.NewDelete().Model((*models.Request)(nil)).Where("id = ?", id).Exec(ctx))
}

func (r bunRequests) DeleteByFolders(ctx context.Context, folderIDs []int64) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	return affected(r.db.NewDelete().Model((*models.Request)(nil)).Where("folder_id IN (?)", bun.In(folderIDs)).Exec(ctx))
}

// ========== Environments ==========

type bunEnvironments struct{ db bun.IDB }

func (r bunEnvironments) Get(ctx context.Context, id int64) (*models.Environment, error) {
	env := new(models.Environment)
	if err := r.db.NewSelect().Model(env).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return env, nil
}

func (r bunEnvironments) List(ctx context.Context) ([]models.Environment, error) {
	var envs []models.Environment
	err := r.db.NewSelect().Model(&envs).Order("id ASC").Scan(ctx)
	return envs, err
}

func (r bunEnvironments) GetActive(ctx context.Context) (*models.Environment, error) {
	env := new(models.Environment)
	err := r.db.NewSelect().Model(env).Where("is_active = ?", true).Order("id ASC").Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return env, nil
}

func (r bunEnvironments) Create(ctx context.Context, env *models.Environment) error {
	_, err := r.db.NewInsert().Model(env).Exec(ctx)
	return err
}

func (r bunEnvironments) Update(ctx context.Context, env *models.Environment) error {
	return expectAffected(r.db.NewUpdate().Model(env).WherePK().Exec(ctx))
}

func (r bunEnvironments) Delete(ctx context.Context, id int64) error {
	return expectAffected(r.db.NewDelete().Model((*models.Environment)(nil)).Where("id = ?", id).Exec(ctx))
}

func (r bunEnvironments) DeactivateAll(ctx context.Context) error {
	_, err := r.db.NewUpdate().Model((*models.Environment)(nil)).
		Set("is_active = ?", false).
		Where("is_active = ?", true).
		Exec(ctx)
	return err
}

// ========== Variables ==========

type bunVariables struct{ db bun.IDB }

func (r bunVariables) Get(ctx context.Context, id int64) (*models.Variable, error) {
	variable := new(models.Variable)
	if err := r.db.NewSelect().Model(variable).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return variable, nil
}

func (r bunVariables) ListByEnvironment(ctx context.Context, environmentID int64) ([]models.Variable, error) {
	var variables []models.Variable
	err := r.db.NewSelect().Model(&variables).Where("environment_id = ?", environmentID).Order("id ASC").Scan(ctx)
	return variables, err
}

func (r bunVariables) Create(ctx context.Context, variable *models.Variable) error {
	_, err := r.db.NewInsert().Model(variable).Exec(ctx)
	return err
}

func (r bunVariables) Update(ctx context.Context, variable *models.Variable) error {
	return expectAffected(r.db.NewUpdate().Model(variable).WherePK().Exec(ctx))
}

func (r bunVariables) Delete(ctx context.Context, id int64) error {
	return expectAffected(r.db.NewDelete().Model((*models.Variable)(nil)).Where("id = ?", id).Exec(ctx))
}

func (r bunVariables) DeleteByEnvironment(ctx context.Context, environmentID int64) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.Variable)(nil)).Where("environment_id = ?", environmentID).Exec(ctx))
}

// ========== History ==========

type bunHistory struct{ db bun.IDB }

func (r bunHistory) Get(ctx context.Context, id int64) (*models.History, error) {
	entry := new(models.History)
	if err := r.db.NewSelect().Model(entry).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return entry, nil
}

func (r bunHistory) List(ctx context.Context, offset, limit int) ([]models.History, int64, error) {
	entries := []models.History{}
	q := r.db.NewSelect().Model(&entries).Order("executed_at DESC", "id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, int64(total), nil
}

func (r bunHistory) Create(ctx context.Context, entry *models.History) error {
	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (r bunHistory) Delete(ctx context.Context, id int64) error {
	return expectAffected(r.db.NewDelete().Model((*models.History)(nil)).Where("id = ?", id).Exec(ctx))
}

func (r bunHistory) DeleteAll(ctx context.Context) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.History)(nil)).Where("1 = 1").Exec(ctx))
}

func (r bunHistory) ClearRequestRef(ctx context.Context, requestID int64) error {
	_, err := r.db.NewUpdate().Model((*models.History)(nil)).
		Set("request_id = NULL").
		Where("request_id = ?", requestID).
		Exec(ctx)
	return err
}

func (r bunHistory) ListBefore(ctx context.Context, cutoff time.Time) ([]models.History, error) {
	var entries []models.History
	err := r.db.NewSelect().Model(&entries).
		Where("executed_at < ?", cutoff).
		Order("executed_at ASC", "id ASC").
		Scan(ctx)
	return entries, err
}

func (r bunHistory) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.History)(nil)).Where("executed_at < ?", cutoff).Exec(ctx))
}
