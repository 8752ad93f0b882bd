package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiworkbench/models"
	"apiworkbench/store"
)

// historyEpoch is the first timestamp handed out by testOptions' clock.
var historyEpoch = time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)

type recordingArchiver struct {
	objectName string
	entries    []models.History
	err        error
}

func (a *recordingArchiver) Archive(_ context.Context, objectName string, entries []models.History) error {
	a.objectName = objectName
	a.entries = entries
	return a.err
}

func newHistoryFixture(t *testing.T, n int) (*HistoryService, []*models.History) {
	t.Helper()
	svc := NewHistoryService(store.NewMemoryStore(), testOptions()...)
	var entries []*models.History
	for i := 0; i < n; i++ {
		entry, err := svc.Record(context.Background(),
			PreparedRequest{Method: "GET", URL: "https://example.com/", Headers: map[string]string{"Accept": "*/*"}},
			&ExecutionResponse{StatusCode: 200 + i, StatusText: "OK", Headers: map[string]string{}},
			nil,
		)
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return svc, entries
}

func TestListHistory(t *testing.T) {
	svc, entries := newHistoryFixture(t, 5)
	ctx := context.Background()

	page, err := svc.ListHistory(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 5)
	assert.Equal(t, entries[4].ID, page.Items[0].ID, "newest first")
	assert.Equal(t, entries[0].ID, page.Items[4].ID)

	page, err = svc.ListHistory(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, []int64{entries[3].ID, entries[2].ID}, []int64{page.Items[0].ID, page.Items[1].ID})

	page, err = svc.ListHistory(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestDeleteAndClearHistory(t *testing.T) {
	svc, entries := newHistoryFixture(t, 3)
	ctx := context.Background()

	require.NoError(t, svc.DeleteHistory(ctx, entries[0].ID))
	_, err := svc.GetHistory(ctx, entries[0].ID)
	requireNotFound(t, err, "History entry with id 1 not found")

	err = svc.DeleteHistory(ctx, entries[0].ID)
	requireNotFound(t, err, "History entry with id 1 not found")

	n, err := svc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := svc.ListHistory(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPruneHistory(t *testing.T) {
	ctx := context.Background()
	cutoff := historyEpoch.Add(2*time.Second + 500*time.Millisecond)

	t.Run("without archiver", func(t *testing.T) {
		svc, entries := newHistoryFixture(t, 4)

		result, err := svc.PruneHistory(ctx, cutoff, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Deleted)
		assert.Zero(t, result.Archived)
		assert.Empty(t, result.ObjectName)

		page, err := svc.ListHistory(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, entries[3].ID, page.Items[0].ID)
	})

	t.Run("archives before deleting", func(t *testing.T) {
		svc, entries := newHistoryFixture(t, 4)
		archiver := &recordingArchiver{}

		result, err := svc.PruneHistory(ctx, cutoff, archiver)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Archived)
		assert.Equal(t, int64(3), result.Deleted)
		assert.Equal(t, archiver.objectName, result.ObjectName)
		assert.True(t, strings.HasPrefix(result.ObjectName, "history/20240101T000003Z-"), result.ObjectName)
		assert.True(t, strings.HasSuffix(result.ObjectName, ".jsonl"))

		require.Len(t, archiver.entries, 3)
		for i, e := range archiver.entries {
			assert.Equal(t, entries[i].ID, e.ID, "oldest first")
		}
	})

	t.Run("failed archive keeps history", func(t *testing.T) {
		svc, _ := newHistoryFixture(t, 4)
		archiver := &recordingArchiver{err: errors.New("bucket unavailable")}

		_, err := svc.PruneHistory(ctx, cutoff, archiver)
		require.ErrorContains(t, err, "bucket unavailable")

		page, err := svc.ListHistory(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
	})

	t.Run("nothing expired skips archiver", func(t *testing.T) {
		svc, _ := newHistoryFixture(t, 2)
		archiver := &recordingArchiver{}

		result, err := svc.PruneHistory(ctx, historyEpoch, archiver)
		require.NoError(t, err)
		assert.Zero(t, result.Deleted)
		assert.Empty(t, archiver.objectName)
	})
}

func TestWriteHistoryJSONL(t *testing.T) {
	_, entries := newHistoryFixture(t, 3)
	var flat []models.History
	for _, e := range entries {
		flat = append(flat, *e)
	}

	var buf bytes.Buffer
	n, err := WriteHistoryJSONL(&buf, flat)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		var decoded models.History
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		assert.Equal(t, flat[lines].ID, decoded.ID)
		assert.Equal(t, flat[lines].StatusCode, decoded.StatusCode)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 3, lines)
}

func TestExportWorkspace(t *testing.T) {
	folders, requests, st := newFolderFixture(t)
	envs := NewEnvironmentService(st, testOptions()...)
	ctx := context.Background()

	root := mustCreateFolder(t, folders, "root", nil)
	child := mustCreateFolder(t, folders, "child", &root.ID)
	mustCreateRequest(t, requests, "nested", &child.ID)
	loose := mustCreateRequest(t, requests, "loose", nil)
	_, err := envs.CreateEnvironment(ctx, CreateEnvironmentInput{
		Name: "dev", Variables: []VariableInput{{Key: "host", Value: "localhost"}},
	})
	require.NoError(t, err)

	tree, err := ExportWorkspace(ctx, st)
	require.NoError(t, err)

	require.Len(t, tree.Folders, 1)
	assert.Equal(t, root.ID, tree.Folders[0].ID)
	require.Len(t, tree.Folders[0].Children, 1)
	assert.Equal(t, child.ID, tree.Folders[0].Children[0].ID)
	require.Len(t, tree.Folders[0].Children[0].Requests, 1)
	assert.Equal(t, "nested", tree.Folders[0].Children[0].Requests[0].Name)

	require.Len(t, tree.StandaloneRequests, 1)
	assert.Equal(t, loose.ID, tree.StandaloneRequests[0].ID)

	require.Len(t, tree.Environments, 1)
	assert.Equal(t, map[string]string{"host": "localhost"}, tree.Environments[0].VariableMap())
	assert.False(t, tree.ExportedAt.IsZero())
}
