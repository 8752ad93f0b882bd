package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiworkbench/models"
)

// sampleForest:
//
//	1 (sort 1)
//	├── 3 (sort 0)
//	│   └── 5
//	│       └── 6
//	└── 4 (sort 0)
//	2 (sort 0)
//	7 (sort 1)
func sampleForest() []models.Folder {
	return []models.Folder{
		{ID: 1, Name: "users", SortOrder: 1},
		{ID: 2, Name: "auth", SortOrder: 0},
		{ID: 3, Name: "crud", ParentFolderID: ref(1), SortOrder: 0},
		{ID: 4, Name: "search", ParentFolderID: ref(1), SortOrder: 0},
		{ID: 5, Name: "create", ParentFolderID: ref(3), SortOrder: 0},
		{ID: 6, Name: "bulk", ParentFolderID: ref(5), SortOrder: 0},
		{ID: 7, Name: "admin", SortOrder: 1},
	}
}

func flatten(nodes []*models.FolderNode, out map[int64]*int64) {
	for _, n := range nodes {
		out[n.ID] = n.ParentFolderID
		flatten(n.Children, out)
	}
}

func assertSorted(t *testing.T, nodes []*models.FolderNode) {
	t.Helper()
	for i := 1; i < len(nodes); i++ {
		prev, cur := nodes[i-1], nodes[i]
		ordered := prev.SortOrder < cur.SortOrder || (prev.SortOrder == cur.SortOrder && prev.ID < cur.ID)
		assert.True(t, ordered, "folder %d should come before %d", prev.ID, cur.ID)
	}
	for _, n := range nodes {
		assertSorted(t, n.Children)
	}
}

func TestBuildFolderTree(t *testing.T) {
	folders := sampleForest()
	requests := []models.Request{
		{ID: 10, Name: "second", FolderID: ref(3), SortOrder: 1},
		{ID: 11, Name: "first", FolderID: ref(3), SortOrder: 0},
		{ID: 12, Name: "standalone"},
		{ID: 13, Name: "deep", FolderID: ref(6)},
	}

	forest := BuildFolderTree(folders, requests)

	t.Run("roots ordered by sort_order then id", func(t *testing.T) {
		require.Len(t, forest, 3)
		assert.Equal(t, []int64{2, 1, 7}, []int64{forest[0].ID, forest[1].ID, forest[2].ID})
		assertSorted(t, forest)
	})

	t.Run("round trip reproduces parent pairs", func(t *testing.T) {
		pairs := map[int64]*int64{}
		flatten(forest, pairs)
		require.Len(t, pairs, len(folders))
		for _, f := range folders {
			assert.Equal(t, f.ParentFolderID, pairs[f.ID], "folder %d", f.ID)
		}
	})

	t.Run("requests attached to their folder", func(t *testing.T) {
		crud := forest[1].Children[0]
		require.Equal(t, int64(3), crud.ID)
		require.Len(t, crud.Requests, 2)
		assert.Equal(t, "first", crud.Requests[0].Name)
		assert.Equal(t, "second", crud.Requests[1].Name)

		bulk := crud.Children[0].Children[0]
		require.Equal(t, int64(6), bulk.ID)
		require.Len(t, bulk.Requests, 1)
		assert.Equal(t, int64(13), bulk.Requests[0].ID)
	})

	t.Run("leaves have empty slices", func(t *testing.T) {
		auth := forest[0]
		assert.NotNil(t, auth.Children)
		assert.NotNil(t, auth.Requests)
		assert.Empty(t, auth.Children)
		assert.Empty(t, auth.Requests)
	})

	t.Run("empty input", func(t *testing.T) {
		empty := BuildFolderTree(nil, nil)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}

func TestFolderDepthAndSubtreeDepth(t *testing.T) {
	ctx := context.Background()
	snapshot := NewFolderSnapshot(sampleForest())

	depths := map[int64]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 6: 4, 7: 1}
	subtrees := map[int64]int{1: 4, 2: 1, 3: 3, 4: 1, 5: 2, 6: 1, 7: 1}

	for id, want := range depths {
		got, err := FolderDepth(ctx, snapshot, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "depth of %d", id)
	}
	for id, want := range subtrees {
		got, err := SubtreeDepth(ctx, snapshot, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "subtree depth of %d", id)
	}

	// depth + subtree - 1 is the deepest leaf below each folder.
	d, _ := FolderDepth(ctx, snapshot, 3)
	s, _ := SubtreeDepth(ctx, snapshot, 3)
	assert.Equal(t, 4, d+s-1)
}

func TestFolderDepthMissingFolder(t *testing.T) {
	ctx := context.Background()

	_, err := FolderDepth(ctx, NewFolderSnapshot(sampleForest()), 99)
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Folder with id 99 not found", notFound.Error())

	// A dangling parent reference is reported too.
	dangling := NewFolderSnapshot([]models.Folder{{ID: 1, ParentFolderID: ref(42)}})
	_, err = FolderDepth(ctx, dangling, 1)
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, int64(42), notFound.ID)
}

func TestFolderDepthCycle(t *testing.T) {
	looped := NewFolderSnapshot([]models.Folder{
		{ID: 1, ParentFolderID: ref(2)},
		{ID: 2, ParentFolderID: ref(1)},
	})
	_, err := FolderDepth(context.Background(), looped, 1)
	assert.ErrorIs(t, err, errHierarchyCycle)
}

func TestDetectCircularReference(t *testing.T) {
	ctx := context.Background()
	folders := sampleForest()
	snapshot := NewFolderSnapshot(folders)

	ancestors := func(id int64) map[int64]bool {
		out := map[int64]bool{}
		f, _ := snapshot.Get(ctx, id)
		for f.ParentFolderID != nil {
			out[*f.ParentFolderID] = true
			f, _ = snapshot.Get(ctx, *f.ParentFolderID)
		}
		return out
	}

	for _, moving := range folders {
		for _, target := range folders {
			got, err := DetectCircularReference(ctx, snapshot, moving.ID, target.ID)
			require.NoError(t, err)

			want := moving.ID == target.ID || ancestors(target.ID)[moving.ID]
			assert.Equal(t, want, got, "move %d under %d", moving.ID, target.ID)
		}
	}

	t.Run("missing target is not circular", func(t *testing.T) {
		got, err := DetectCircularReference(ctx, snapshot, 1, 99)
		require.NoError(t, err)
		assert.False(t, got)
	})
}
