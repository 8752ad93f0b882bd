package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"apiworkbench/models"
)

type memoryData struct {
	folders      map[int64]*models.Folder
	requests     map[int64]*models.Request
	environments map[int64]*models.Environment
	variables    map[int64]*models.Variable
	history      map[int64]*models.History
	seq          map[string]int64
}

func newMemoryData() *memoryData {
	return &memoryData{
		folders:      make(map[int64]*models.Folder),
		requests:     make(map[int64]*models.Request),
		environments: make(map[int64]*models.Environment),
		variables:    make(map[int64]*models.Variable),
		history:      make(map[int64]*models.History),
		seq:          make(map[string]int64),
	}
}

func (d *memoryData) nextID(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d *memoryData) clone() *memoryData {
	out := newMemoryData()
	for id, f := range d.folders {
		out.folders[id] = cloneFolder(f)
	}
	for id, r := range d.requests {
		out.requests[id] = cloneRequest(r)
	}
	for id, e := range d.environments {
		out.environments[id] = cloneEnvironment(e)
	}
	for id, v := range d.variables {
		c := *v
		out.variables[id] = &c
	}
	for id, h := range d.history {
		out.history[id] = cloneHistory(h)
	}
	maps.Copy(out.seq, d.seq)
	return out
}

type memoryState struct {
	mu   sync.RWMutex
	data *memoryData
}

// MemoryStore keeps everything in process. Transactions hold the write lock
// for their whole duration and restore a snapshot on failure.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{data: newMemoryData()}}
}

func (s *MemoryStore) read(fn func(d *memoryData) error) error {
	if !s.inTx {
		s.state.mu.RLock()
		defer s.state.mu.RUnlock()
	}
	return fn(s.state.data)
}

func (s *MemoryStore) write(fn func(d *memoryData) error) error {
	if !s.inTx {
		s.state.mu.Lock()
		defer s.state.mu.Unlock()
	}
	return fn(s.state.data)
}

func (s *MemoryStore) Folders() FolderRepository           { return memoryFolders{s} }
func (s *MemoryStore) Requests() RequestRepository         { return memoryRequests{s} }
func (s *MemoryStore) Environments() EnvironmentRepository { return memoryEnvironments{s} }
func (s *MemoryStore) Variables() VariableRepository       { return memoryVariables{s} }
func (s *MemoryStore) History() HistoryRepository          { return memoryHistory{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snapshot := s.state.data.clone()
	if err := fn(ctx, &MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

// ========== Folders ==========

type memoryFolders struct{ s *MemoryStore }

func (r memoryFolders) Get(_ context.Context, id int64) (*models.Folder, error) {
	var out *models.Folder
	err := r.s.read(func(d *memoryData) error {
		f, ok := d.folders[id]
		if !ok {
			return ErrNotFound
		}
		out = cloneFolder(f)
		return nil
	})
	return out, err
}

func (r memoryFolders) List(_ context.Context) ([]models.Folder, error) {
	return r.collect(func(*models.Folder) bool { return true }), nil
}

func (r memoryFolders) ListChildren(_ context.Context, parentID *int64) ([]models.Folder, error) {
	return r.collect(func(f *models.Folder) bool { return sameRef(f.ParentFolderID, parentID) }), nil
}

func (r memoryFolders) collect(keep func(*models.Folder) bool) []models.Folder {
	var out []models.Folder
	_ = r.s.read(func(d *memoryData) error {
		for _, f := range d.folders {
			if keep(f) {
				out = append(out, *cloneFolder(f))
			}
		}
		return nil
	})
	sortFolders(out)
	return out
}

func (r memoryFolders) MaxSortOrder(ctx context.Context, parentID *int64) (int, bool, error) {
	children, err := r.ListChildren(ctx, parentID)
	if err != nil || len(children) == 0 {
		return 0, false, err
	}
	highest := children[0].SortOrder
	for _, c := range children[1:] {
		highest = max(highest, c.SortOrder)
	}
	return highest, true, nil
}

func (r memoryFolders) Create(_ context.Context, folder *models.Folder) error {
	return r.s.write(func(d *memoryData) error {
		folder.ID = d.nextID("folders")
		d.folders[folder.ID] = cloneFolder(folder)
		return nil
	})
}

func (r memoryFolders) Update(_ context.Context, folder *models.Folder) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.folders[folder.ID]; !ok {
			return ErrNotFound
		}
		d.folders[folder.ID] = cloneFolder(folder)
		return nil
	})
}

func (r memoryFolders) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for _, id := range ids {
			if _, ok := d.folders[id]; ok {
				delete(d.folders, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ========== Requests ==========

type memoryRequests struct{ s *MemoryStore }

func (r memoryRequests) Get(_ context.Context, id int64) (*models.Request, error) {
	var out *models.Request
	err := r.s.read(func(d *memoryData) error {
		req, ok := d.requests[id]
		if !ok {
			return ErrNotFound
		}
		out = cloneRequest(req)
		return nil
	})
	return out, err
}

func (r memoryRequests) List(_ context.Context) ([]models.Request, error) {
	return r.collect(func(*models.Request) bool { return true }), nil
}

func (r memoryRequests) ListByFolder(_ context.Context, folderID *int64) ([]models.Request, error) {
	return r.collect(func(req *models.Request) bool { return sameRef(req.FolderID, folderID) }), nil
}

func (r memoryRequests) collect(keep func(*models.Request) bool) []models.Request {
	var out []models.Request
	_ = r.s.read(func(d *memoryData) error {
		for _, req := range d.requests {
			if keep(req) {
				out = append(out, *cloneRequest(req))
			}
		}
		return nil
	})
	sortRequests(out)
	return out
}

func (r memoryRequests) Create(_ context.Context, request *models.Request) error {
	return r.s.write(func(d *memoryData) error {
		request.ID = d.nextID("requests")
		d.requests[request.ID] = cloneRequest(request)
		return nil
	})
}

func (r memoryRequests) Update(_ context.Context, request *models.Request) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.requests[request.ID]; !ok {
			return ErrNotFound
		}
		d.requests[request.ID] = cloneRequest(request)
		return nil
	})
}

func (r memoryRequests) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.requests[id]; !ok {
			return ErrNotFound
		}
		delete(d.requests, id)
		return nil
	})
}

func (r memoryRequests) DeleteByFolders(_ context.Context, folderIDs []int64) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, req := range d.requests {
			if req.FolderID != nil && slices.Contains(folderIDs, *req.FolderID) {
				delete(d.requests, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ========== Environments ==========

type memoryEnvironments struct{ s *MemoryStore }

func (r memoryEnvironments) Get(_ context.Context, id int64) (*models.Environment, error) {
	var out *models.Environment
	err := r.s.read(func(d *memoryData) error {
		env, ok := d.environments[id]
		if !ok {
			return ErrNotFound
		}
		out = cloneEnvironment(env)
		return nil
	})
	return out, err
}

func (r memoryEnvironments) List(_ context.Context) ([]models.Environment, error) {
	var out []models.Environment
	_ = r.s.read(func(d *memoryData) error {
		for _, env := range d.environments {
			out = append(out, *cloneEnvironment(env))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Environment) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r memoryEnvironments) GetActive(ctx context.Context) (*models.Environment, error) {
	envs, _ := r.List(ctx)
	for i := range envs {
		if envs[i].IsActive {
			return &envs[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryEnvironments) Create(_ context.Context, env *models.Environment) error {
	return r.s.write(func(d *memoryData) error {
		env.ID = d.nextID("environments")
		d.environments[env.ID] = cloneEnvironment(env)
		return nil
	})
}

func (r memoryEnvironments) Update(_ context.Context, env *models.Environment) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.environments[env.ID]; !ok {
			return ErrNotFound
		}
		d.environments[env.ID] = cloneEnvironment(env)
		return nil
	})
}

func (r memoryEnvironments) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.environments[id]; !ok {
			return ErrNotFound
		}
		delete(d.environments, id)
		return nil
	})
}

func (r memoryEnvironments) DeactivateAll(_ context.Context) error {
	return r.s.write(func(d *memoryData) error {
		for _, env := range d.environments {
			env.IsActive = false
		}
		return nil
	})
}

// ========== Variables ==========

type memoryVariables struct{ s *MemoryStore }

func (r memoryVariables) Get(_ context.Context, id int64) (*models.Variable, error) {
	var out *models.Variable
	err := r.s.read(func(d *memoryData) error {
		v, ok := d.variables[id]
		if !ok {
			return ErrNotFound
		}
		c := *v
		out = &c
		return nil
	})
	return out, err
}

func (r memoryVariables) ListByEnvironment(_ context.Context, environmentID int64) ([]models.Variable, error) {
	var out []models.Variable
	_ = r.s.read(func(d *memoryData) error {
		for _, v := range d.variables {
			if v.EnvironmentID == environmentID {
				out = append(out, *v)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Variable) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r memoryVariables) Create(_ context.Context, variable *models.Variable) error {
	return r.s.write(func(d *memoryData) error {
		variable.ID = d.nextID("variables")
		c := *variable
		d.variables[c.ID] = &c
		return nil
	})
}

func (r memoryVariables) Update(_ context.Context, variable *models.Variable) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.variables[variable.ID]; !ok {
			return ErrNotFound
		}
		c := *variable
		d.variables[c.ID] = &c
		return nil
	})
}

func (r memoryVariables) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.variables[id]; !ok {
			return ErrNotFound
		}
		delete(d.variables, id)
		return nil
	})
}

func (r memoryVariables) DeleteByEnvironment(_ context.Context, environmentID int64) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, v := range d.variables {
			if v.EnvironmentID == environmentID {
				delete(d.variables, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ========== History ==========

type memoryHistory struct{ s *MemoryStore }

func (r memoryHistory) Get(_ context.Context, id int64) (*models.History, error) {
	var out *models.History
	err := r.s.read(func(d *memoryData) error {
		h, ok := d.history[id]
		if !ok {
			return ErrNotFound
		}
		out = cloneHistory(h)
		return nil
	})
	return out, err
}

func (r memoryHistory) List(_ context.Context, offset, limit int) ([]models.History, int64, error) {
	var all []models.History
	_ = r.s.read(func(d *memoryData) error {
		for _, h := range d.history {
			all = append(all, *cloneHistory(h))
		}
		return nil
	})
	slices.SortFunc(all, func(a, b models.History) int {
		if c := b.ExecutedAt.Compare(a.ExecutedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []models.History{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r memoryHistory) Create(_ context.Context, entry *models.History) error {
	return r.s.write(func(d *memoryData) error {
		entry.ID = d.nextID("history")
		d.history[entry.ID] = cloneHistory(entry)
		return nil
	})
}

func (r memoryHistory) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.history[id]; !ok {
			return ErrNotFound
		}
		delete(d.history, id)
		return nil
	})
}

func (r memoryHistory) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		n = int64(len(d.history))
		clear(d.history)
		return nil
	})
	return n, err
}

func (r memoryHistory) ClearRequestRef(_ context.Context, requestID int64) error {
	return r.s.write(func(d *memoryData) error {
		for _, h := range d.history {
			if h.RequestID != nil && *h.RequestID == requestID {
				h.RequestID = nil
			}
		}
		return nil
	})
}

func (r memoryHistory) ListBefore(_ context.Context, cutoff time.Time) ([]models.History, error) {
	var out []models.History
	_ = r.s.read(func(d *memoryData) error {
		for _, h := range d.history {
			if h.ExecutedAt.Before(cutoff) {
				out = append(out, *cloneHistory(h))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.History) int {
		if c := a.ExecutedAt.Compare(b.ExecutedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r memoryHistory) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *memoryData) error {
		for id, h := range d.history {
			if h.ExecutedAt.Before(cutoff) {
				delete(d.history, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ========== Helpers ==========

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortFolders(folders []models.Folder) {
	slices.SortFunc(folders, func(a, b models.Folder) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortRequests(requests []models.Request) {
	slices.SortFunc(requests, func(a, b models.Request) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func cloneRef(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFolder(f *models.Folder) *models.Folder {
	c := *f
	c.ParentFolderID = cloneRef(f.ParentFolderID)
	return &c
}

func cloneRequest(r *models.Request) *models.Request {
	c := *r
	c.FolderID = cloneRef(r.FolderID)
	c.Headers = maps.Clone(r.Headers)
	c.QueryParams = maps.Clone(r.QueryParams)
	return &c
}

// cloneEnvironment drops Variables; they live in their own table.
func cloneEnvironment(e *models.Environment) *models.Environment {
	c := *e
	c.Variables = nil
	return &c
}

func cloneHistory(h *models.History) *models.History {
	c := *h
	c.RequestID = cloneRef(h.RequestID)
	c.RequestHeaders = maps.Clone(h.RequestHeaders)
	c.ResponseHeaders = maps.Clone(h.ResponseHeaders)
	return &c
}
