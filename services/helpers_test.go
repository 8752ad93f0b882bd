package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"apiworkbench/models"
	"apiworkbench/store"
	"apiworkbench/utils"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func testOptions() []Option {
	clock := &fixedClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return []Option{WithLogger(utils.NopLogger()), WithClock(clock.now)}
}

func newFolderFixture(t *testing.T) (*FolderService, *RequestService, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewFolderService(st, testOptions()...), NewRequestService(st, testOptions()...), st
}

func mustCreateFolder(t *testing.T, svc *FolderService, name string, parent *int64) *models.Folder {
	t.Helper()
	folder, err := svc.CreateFolder(context.Background(), CreateFolderInput{Name: name, ParentFolderID: parent})
	require.NoError(t, err)
	return folder
}

// mustCreateChain creates n folders, each nested in the previous one.
func mustCreateChain(t *testing.T, svc *FolderService, n int) []*models.Folder {
	t.Helper()
	var chain []*models.Folder
	var parent *int64
	for i := 0; i < n; i++ {
		f := mustCreateFolder(t, svc, "level", parent)
		chain = append(chain, f)
		parent = &f.ID
	}
	return chain
}

func mustCreateRequest(t *testing.T, svc *RequestService, name string, folderID *int64) *models.Request {
	t.Helper()
	request, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		Name:     name,
		Method:   "GET",
		URL:      "https://example.com/" + name,
		FolderID: folderID,
	})
	require.NoError(t, err)
	return request
}

func ref(id int64) *int64 { return &id }
