package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr string
	}{
		{name: "default when empty", baseURL: ""},
		{name: "http", baseURL: "http://localhost:8000"},
		{name: "https with path", baseURL: "https://finder.example.com/api"},
		{name: "bad scheme", baseURL: "ftp://example.com", wantErr: "scheme must be http or https"},
		{name: "missing host", baseURL: "http://", wantErr: "host is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{BaseURL: tt.baseURL})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestClient_EndpointKeepsBasePath(t *testing.T) {
	c, err := New(Config{BaseURL: "https://finder.example.com/api/"})
	require.NoError(t, err)

	assert.Equal(t, "https://finder.example.com/api/sources/42", c.endpoint([]string{"sources", "42"}, nil))
}

func TestClient_AuthStatus(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/status", r.URL.Path)
			assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
			_, _ = io.WriteString(w, `{"configured": true}`)
		})

		st, err := c.AuthStatus(context.Background())
		require.NoError(t, err)
		assert.True(t, st.Configured)
	})

	t.Run("missing field is a decode error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"error": "Supabase not connected"}`)
		})

		_, err := c.AuthStatus(context.Background())
		require.Error(t, err)
		assert.True(t, IsDecode(err))
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestClient_LoginStatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantDetail    string
		wantTransport bool
	}{
		{name: "fastapi detail", status: http.StatusUnauthorized, body: `{"detail":"Invalid password"}`, wantDetail: "Invalid password"},
		{name: "error envelope", status: http.StatusBadRequest, body: `{"error":{"code":"BAD_REQUEST","message":"Already configured"}}`, wantDetail: "Already configured"},
		{name: "empty body", status: http.StatusBadGateway, body: "", wantTransport: true},
		{name: "html body", status: http.StatusInternalServerError, body: "<html>oops</html>", wantTransport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "hunter2", body["password"])
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := c.Login(context.Background(), "hunter2")
			require.Error(t, err)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.wantDetail, Detail(err))
			assert.Equal(t, tt.wantTransport, IsTransport(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.ListSources(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.IndexStatus(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_ListSources(t *testing.T) {
	t.Run("passes server order through", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = io.WriteString(w, `[
				{"id": 7, "label": "B", "url": "http://b/", "created_at": "2024-01-02T00:00:00Z"},
				{"id": 3, "label": "A", "url": "http://a/"}
			]`)
		})

		got, err := c.ListSources(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Source{ID: 7, Label: "B", URL: "http://b/", CreatedAt: "2024-01-02T00:00:00Z"}, got[0])
		assert.Equal(t, int64(3), got[1].ID)
	})

	t.Run("rejects records without id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"label": "A", "url": "http://a/"}]`)
		})

		_, err := c.ListSources(context.Background())
		require.Error(t, err)
		assert.True(t, IsDecode(err))
		assert.Contains(t, err.Error(), "source 0")
		assert.Contains(t, err.Error(), "id")
	})

	t.Run("null body is an empty list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `null`)
		})

		got, err := c.ListSources(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestClient_CreateAndDeleteSource(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodPost {
			var in SourceCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, SourceCreate{Label: "X", URL: "http://x"}, in)
			_, _ = io.WriteString(w, `{"id": 1, "label": "X", "url": "http://x"}`)
			return
		}
		_, _ = io.WriteString(w, `{"message": "Source deleted"}`)
	})

	require.NoError(t, c.CreateSource(context.Background(), SourceCreate{Label: "X", URL: "http://x"}))
	require.NoError(t, c.DeleteSource(context.Background(), 12))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"POST /sources", "DELETE /sources/12"}, calls)
}

func TestClient_IndexStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *JobSnapshot
		wantErr bool
	}{
		{
			name: "running with nulls",
			body: `{"is_running": true, "directories_found": 3, "current_source": null, "current_path": null, "logs": ["started"]}`,
			want: &JobSnapshot{IsRunning: true, DirectoriesFound: 3, Logs: []string{"started"}},
		},
		{
			name: "stopped without logs",
			body: `{"is_running": false, "directories_found": 10, "current_source": "ftp1", "current_path": "ftp://a/b"}`,
			want: &JobSnapshot{DirectoriesFound: 10, CurrentSource: "ftp1", CurrentPath: "ftp://a/b", Logs: []string{}},
		},
		{name: "missing is_running", body: `{"directories_found": 1}`, wantErr: true},
		{name: "malformed", body: `{"is_running": tru`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/index/status", r.URL.Path)
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := c.IndexStatus(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsDecode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_TriggerIndex(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/index", r.URL.Path)
		hits.Add(1)
		_, _ = io.WriteString(w, `{"message":"Indexing started in background"}`)
	})

	require.NoError(t, c.TriggerIndex(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Stats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"sources": 2, "directories": 120, "last_updated": "2024-03-01T10:00:00.123456+00:00"}`)
	})

	st, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, 120, st.Directories)
	require.NotNil(t, st.LastUpdated)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC), *st.LastUpdated)
}

func TestClient_Search(t *testing.T) {
	t.Run("blank query sends nothing", func(t *testing.T) {
		var hits atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		})

		got, err := c.Search(context.Background(), "   ")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("encodes query", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "linux iso&more", r.URL.Query().Get("q"))
			_, _ = io.WriteString(w, `[{"id": 1, "name": "Linux%20ISOs", "original_link": "ftp://x/Linux%20ISOs/", "source_id": 4}]`)
		})

		got, err := c.Search(context.Background(), "linux iso&more")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, SearchResult{ID: 1, Name: "Linux%20ISOs", OriginalLink: "ftp://x/Linux%20ISOs/", SourceID: 4}, got[0])
	})
}

func TestClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"configured": true}`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, RateLimit: 20})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.AuthStatus(context.Background())
		require.NoError(t, err)
	}
	// Burst of one: the second and third requests wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{in: "2024-01-15T12:00:00Z", ok: true, want: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
		{in: "2024-01-15T12:00:00.5", ok: true, want: time.Date(2024, 1, 15, 12, 0, 0, 500000000, time.UTC)},
		{in: "2024-01-15 12:00:00", ok: true, want: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
		{in: "yesterday", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}
