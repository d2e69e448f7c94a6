package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/3leaps/ftpfinder/internal/server/middleware"
	"github.com/3leaps/ftpfinder/internal/server/state"
)

type fixture struct {
	store   *state.Store
	indexer *state.Indexer
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := state.NewStore(bcrypt.MinCost)
	indexer := state.NewIndexer(store, 0, []string{"pub/", "pub/My%20Files/"}, nil)
	t.Cleanup(indexer.Close)

	r := chi.NewRouter()
	NewAPI(store, indexer, nil).Register(r)
	return &fixture{store: store, indexer: indexer, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FTP Finder Backend is running", decode[MessageResponse](t, rec).Message)
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/auth/status", "")
	assert.Equal(t, map[string]bool{"configured": false}, decode[map[string]bool](t, rec))

	rec = f.do(t, "POST", "/auth/login", `{"password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "POST", "/auth/setup", `{"password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password set successfully", decode[MessageResponse](t, rec).Message)

	rec = f.do(t, "GET", "/auth/status", "")
	assert.Equal(t, map[string]bool{"configured": true}, decode[map[string]bool](t, rec))

	rec = f.do(t, "POST", "/auth/setup", `{"password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Already configured", decode[middleware.ErrorResponse](t, rec).Error.Message)

	rec = f.do(t, "POST", "/auth/login", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password", decode[middleware.ErrorResponse](t, rec).Error.Message)

	rec = f.do(t, "POST", "/auth/login", `{"password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"success": true}, decode[map[string]bool](t, rec))
}

func TestSetup_BadBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/auth/setup", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/auth/setup", `{"password":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/auth/setup", `{"password":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, f.store.Configured())
}

func TestSourcesCRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/sources", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = f.do(t, "POST", "/sources", `{"label":"Mirror","url":"http://mirror.example.com/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[state.Source](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Mirror", created.Label)
	assert.NotEmpty(t, created.CreatedAt)

	rec = f.do(t, "POST", "/sources", `{"label":"","url":"http://x/"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	list := decode[[]state.Source](t, f.do(t, "GET", "/sources", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	rec = f.do(t, "DELETE", "/sources/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Source deleted", decode[MessageResponse](t, rec).Message)
	assert.Empty(t, f.store.Sources())

	rec = f.do(t, "DELETE", "/sources/99", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "DELETE", "/sources/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListEndpoints_EmptyIsArray(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = f.do(t, "POST", "/sources", `{"label":"Mirror","url":"http://mirror.example.com/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "DELETE", "/sources/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/sources", "")
	assert.Equal(t, "[]\n", rec.Body.String(), "sources after the last delete")

	rec = f.do(t, "GET", "/search?q=nothing", "")
	assert.Equal(t, "[]\n", rec.Body.String(), "search with no hits")

	rec = f.do(t, "GET", "/search?q=", "")
	assert.Equal(t, "[]\n", rec.Body.String(), "blank search")

	job := decode[map[string]any](t, f.do(t, "GET", "/index/status", ""))
	assert.Equal(t, []any{}, job["logs"])
}

func TestIndexAndSearch(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddSource("Mirror", "http://mirror.example.com/")
	require.NoError(t, err)

	rec := f.do(t, "POST", "/index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Indexing started in background", decode[MessageResponse](t, rec).Message)
	f.indexer.Wait()

	job := decode[state.JobStatus](t, f.do(t, "GET", "/index/status", ""))
	assert.False(t, job.IsRunning)
	assert.Equal(t, 2, job.DirectoriesFound)
	assert.Nil(t, job.CurrentSource)
	require.NotEmpty(t, job.Logs)
	assert.Equal(t, "Indexing completed.", job.Logs[len(job.Logs)-1])

	hits := decode[[]state.Directory](t, f.do(t, "GET", "/search?q=FILES", ""))
	require.Len(t, hits, 1)
	assert.Equal(t, "My%20Files", hits[0].Name)
	assert.Equal(t, "http://mirror.example.com/pub/My%20Files/", hits[0].OriginalLink)

	assert.Equal(t, "[]\n", f.do(t, "GET", "/search?q=", "").Body.String())
	assert.Equal(t, "[]\n", f.do(t, "GET", "/search", "").Body.String())

	stats := decode[state.Stats](t, f.do(t, "GET", "/stats", ""))
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 2, stats.Directories)
	require.NotNil(t, stats.LastUpdated)
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/stats", "")
	assert.JSONEq(t, `{"sources":0,"directories":0,"last_updated":null}`, rec.Body.String())
}

func TestIndexStatus_Idle(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/index/status", "")
	assert.JSONEq(t,
		`{"is_running":false,"current_source":null,"current_path":null,"directories_found":0,"logs":[]}`,
		rec.Body.String())
}
