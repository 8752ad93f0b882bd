package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"apiworkbench/models"
	"apiworkbench/store"
)

// FolderLookup is the read access the depth and cycle checks need.
// store.FolderRepository satisfies it.
type FolderLookup interface {
	Get(ctx context.Context, id int64) (*models.Folder, error)
	ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, error)
}

var errHierarchyCycle = errors.New("folder hierarchy contains a cycle")

// BuildFolderTree nests folders under their parents and attaches each request
// to its folder. Roots and every children list are ordered by (sort_order, id).
// Requests without a folder are ignored.
func BuildFolderTree(folders []models.Folder, requests []models.Request) []*models.FolderNode {
	children := make(map[int64][]models.Folder)
	var roots []models.Folder
	for _, f := range folders {
		if f.ParentFolderID == nil {
			roots = append(roots, f)
			continue
		}
		children[*f.ParentFolderID] = append(children[*f.ParentFolderID], f)
	}

	byFolder := make(map[int64][]models.Request)
	for _, r := range requests {
		if r.FolderID != nil {
			byFolder[*r.FolderID] = append(byFolder[*r.FolderID], r)
		}
	}

	var build func(f models.Folder) *models.FolderNode
	build = func(f models.Folder) *models.FolderNode {
		node := &models.FolderNode{
			Folder:   f,
			Children: []*models.FolderNode{},
			Requests: slices.Clone(byFolder[f.ID]),
		}
		if node.Requests == nil {
			node.Requests = []models.Request{}
		}
		slices.SortFunc(node.Requests, compareRequests)

		kids := children[f.ID]
		slices.SortFunc(kids, compareFolders)
		for _, child := range kids {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	slices.SortFunc(roots, compareFolders)
	forest := make([]*models.FolderNode, 0, len(roots))
	for _, root := range roots {
		forest = append(forest, build(root))
	}
	return forest
}

func compareFolders(a, b models.Folder) int {
	if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareRequests(a, b models.Request) int {
	if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// FolderDepth counts the folders on the path from id up to its root; a root
// has depth 1. Any unresolvable id on the way yields a NotFoundError.
func FolderDepth(ctx context.Context, folders FolderLookup, id int64) (int, error) {
	depth := 0
	seen := make(map[int64]bool)
	current := &id
	for current != nil {
		if seen[*current] {
			return 0, fmt.Errorf("depth of folder %d: %w", id, errHierarchyCycle)
		}
		seen[*current] = true

		folder, err := folders.Get(ctx, *current)
		if err != nil {
			return 0, translate(err, "Folder", *current)
		}
		depth++
		current = folder.ParentFolderID
	}
	return depth, nil
}

// SubtreeDepth is the length of the longest downward path from id, counting
// id itself; a leaf has subtree depth 1.
func SubtreeDepth(ctx context.Context, folders FolderLookup, id int64) (int, error) {
	return subtreeDepth(ctx, folders, id, make(map[int64]bool))
}

func subtreeDepth(ctx context.Context, folders FolderLookup, id int64, seen map[int64]bool) (int, error) {
	if seen[id] {
		return 0, fmt.Errorf("subtree of folder %d: %w", id, errHierarchyCycle)
	}
	seen[id] = true

	children, err := folders.ListChildren(ctx, &id)
	if err != nil {
		return 0, fmt.Errorf("failed to list children of folder %d: %w", id, err)
	}
	deepest := 0
	for _, child := range children {
		d, err := subtreeDepth(ctx, folders, child.ID, seen)
		if err != nil {
			return 0, err
		}
		deepest = max(deepest, d)
	}
	return 1 + deepest, nil
}

// DetectCircularReference reports whether parenting movingID under
// newParentID would close a cycle: either they are the same folder or
// movingID is an ancestor of newParentID. A chain that ends at a root or at
// a missing folder is not circular.
func DetectCircularReference(ctx context.Context, folders FolderLookup, movingID, newParentID int64) (bool, error) {
	if movingID == newParentID {
		return true, nil
	}

	seen := make(map[int64]bool)
	current := newParentID
	for !seen[current] {
		seen[current] = true

		folder, err := folders.Get(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to load folder %d: %w", current, err)
		}
		if folder.ParentFolderID == nil {
			return false, nil
		}
		if *folder.ParentFolderID == movingID {
			return true, nil
		}
		current = *folder.ParentFolderID
	}
	// The chain loops without passing movingID; attaching to it is still unsafe.
	return true, nil
}

// FolderSnapshot answers FolderLookup queries from an in-memory folder list.
type FolderSnapshot struct {
	byID     map[int64]models.Folder
	children map[int64][]models.Folder
	roots    []models.Folder
}

func NewFolderSnapshot(folders []models.Folder) *FolderSnapshot {
	s := &FolderSnapshot{
		byID:     make(map[int64]models.Folder, len(folders)),
		children: make(map[int64][]models.Folder),
	}
	for _, f := range folders {
		s.byID[f.ID] = f
		if f.ParentFolderID == nil {
			s.roots = append(s.roots, f)
		} else {
			s.children[*f.ParentFolderID] = append(s.children[*f.ParentFolderID], f)
		}
	}
	return s
}

func (s *FolderSnapshot) Get(_ context.Context, id int64) (*models.Folder, error) {
	f, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *FolderSnapshot) ListChildren(_ context.Context, parentID *int64) ([]models.Folder, error) {
	if parentID == nil {
		return slices.Clone(s.roots), nil
	}
	return slices.Clone(s.children[*parentID]), nil
}
