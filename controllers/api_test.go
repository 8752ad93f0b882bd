package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiworkbench/routes"
	"apiworkbench/store"
	"apiworkbench/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	container := routes.NewServiceContainer(store.NewMemoryStore(), routes.ContainerOptions{
		ExecutionTimeout: 200 * time.Millisecond,
		Logger:           utils.NopLogger(),
	})
	return &apiClient{t: t, router: routes.NewRouter(container, nil, utils.NopLogger())}
}

func (a *apiClient) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(a.t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

// create posts body and decodes the created resource's id.
func (a *apiClient) create(path string, body any) int64 {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &created))
	return created.ID
}

func errorCode(t *testing.T, env envelope) string {
	t.Helper()
	var code string
	require.NoError(t, json.Unmarshal(env.Error, &code))
	return code
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFolderEndpoints(t *testing.T) {
	api := newAPI(t)

	root := api.create("/api/folders", map[string]any{"name": "root"})
	child := api.create("/api/folders", map[string]any{"name": "child", "parent_folder_id": root})

	t.Run("get", func(t *testing.T) {
		rec, env := api.do(http.MethodGet, fmt.Sprintf("/api/folders/%d", child), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "Folder retrieved successfully", env.Message)
	})

	t.Run("missing", func(t *testing.T) {
		rec, env := api.do(http.MethodGet, "/api/folders/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Folder with id 999 not found", env.Message)
		assert.Equal(t, utils.CodeNotFound, errorCode(t, env))
	})

	t.Run("malformed id", func(t *testing.T) {
		rec, env := api.do(http.MethodGet, "/api/folders/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid folder ID format", env.Message)
		assert.Equal(t, utils.CodeValidationFailed, errorCode(t, env))
	})

	t.Run("blank name", func(t *testing.T) {
		rec, env := api.do(http.MethodPost, "/api/folders", map[string]any{"name": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, utils.CodeValidationFailed, errorCode(t, env))
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, env := api.do(http.MethodPost, "/api/folders", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, utils.CodeValidationFailed, errorCode(t, env))
	})

	t.Run("move into own descendant", func(t *testing.T) {
		rec, env := api.do(http.MethodPut, fmt.Sprintf("/api/folders/%d", root), map[string]any{"parent_folder_id": child})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, utils.CodeInvalidOperation, errorCode(t, env))
	})

	t.Run("explicit null moves to root", func(t *testing.T) {
		rec, env := api.do(http.MethodPut, fmt.Sprintf("/api/folders/%d", child), `{"parent_folder_id": null}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var folder struct {
			ParentFolderID *int64 `json:"parent_folder_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &folder))
		assert.Nil(t, folder.ParentFolderID)
	})

	t.Run("absent parent keeps position", func(t *testing.T) {
		grandchild := api.create("/api/folders", map[string]any{"name": "gc", "parent_folder_id": root})
		rec, env := api.do(http.MethodPut, fmt.Sprintf("/api/folders/%d", grandchild), map[string]any{"name": "renamed"})
		require.Equal(t, http.StatusOK, rec.Code)
		var folder struct {
			Name           string `json:"name"`
			ParentFolderID *int64 `json:"parent_folder_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &folder))
		assert.Equal(t, "renamed", folder.Name)
		require.NotNil(t, folder.ParentFolderID)
		assert.Equal(t, root, *folder.ParentFolderID)
	})

	t.Run("delete", func(t *testing.T) {
		rec, _ := api.do(http.MethodDelete, fmt.Sprintf("/api/folders/%d", root), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/folders/%d", root), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEnvironmentEndpoints(t *testing.T) {
	api := newAPI(t)

	rec, env := api.do(http.MethodGet, "/api/environments/active", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Active environment not found", env.Message)

	id := api.create("/api/environments", map[string]any{
		"name":      "dev",
		"variables": []map[string]string{{"key": "host", "value": "localhost"}},
	})

	rec, _ = api.do(http.MethodPost, fmt.Sprintf("/api/environments/%d/activate", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodGet, "/api/environments/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active struct {
		ID        int64 `json:"id"`
		IsActive  bool  `json:"is_active"`
		Variables []struct {
			Key string `json:"key"`
		} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &active))
	assert.Equal(t, id, active.ID)
	assert.True(t, active.IsActive)
	require.Len(t, active.Variables, 1)
	assert.Equal(t, "host", active.Variables[0].Key)

	rec, env = api.do(http.MethodPost, fmt.Sprintf("/api/environments/%d/variables", id), map[string]string{"key": "bad key"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.CodeValidationFailed, errorCode(t, env))
}

func TestExecuteEndpoints(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(upstream.Close)

	api := newAPI(t)
	envID := api.create("/api/environments", map[string]any{"name": "local", "base_url": upstream.URL})
	requestID := api.create("/api/requests", map[string]any{"name": "ping", "method": "GET", "url": "/ping"})

	t.Run("saved request", func(t *testing.T) {
		rec, env := api.do(http.MethodPost, fmt.Sprintf("/api/execute/%d?environment_id=%d", requestID, envID), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var result struct {
			StatusCode int            `json:"status_code"`
			BodyJSON   map[string]any `json:"body_json"`
			HistoryID  int64          `json:"history_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Equal(t, "/ping", result.BodyJSON["path"])

		rec, _ = api.do(http.MethodGet, fmt.Sprintf("/api/history/%d", result.HistoryID), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing saved request", func(t *testing.T) {
		rec, env := api.do(http.MethodPost, "/api/execute/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Request with id 999 not found", env.Message)
	})

	t.Run("invalid url", func(t *testing.T) {
		rec, env := api.do(http.MethodPost, "/api/execute", map[string]any{"method": "GET", "url": "ftp://example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid URL", env.Message)
		var body utils.ExecutionErrorBody
		require.NoError(t, json.Unmarshal(env.Error, &body))
		assert.Equal(t, "invalid_url", body.ErrorType)
		assert.NotEmpty(t, body.Details)
	})

	t.Run("network error", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		target := closed.URL
		closed.Close()

		rec, env := api.do(http.MethodPost, "/api/execute", map[string]any{"method": "GET", "url": target})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var body utils.ExecutionErrorBody
		require.NoError(t, json.Unmarshal(env.Error, &body))
		assert.Equal(t, "network_error", body.ErrorType)
	})

	t.Run("history listing", func(t *testing.T) {
		rec, env := api.do(http.MethodGet, "/api/history?limit=10", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, int64(1), page.Total)

		rec, _ = api.do(http.MethodGet, "/api/history?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec, _ = api.do(http.MethodDelete, "/api/history", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
