package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/sqlite"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, store storage.Store) *Server {
	t.Helper()
	s, err := New(store, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func seededStore(t *testing.T) (*sqlite.Store, models.Repository) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "delta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo, err := store.GetOrCreateRepository(ctx, "acme/rocket", "https://github.com/acme/rocket")
	require.NoError(t, err)
	_, err = store.GetOrCreateRepository(ctx, "acme/idle", "https://github.com/acme/idle")
	require.NoError(t, err)

	started := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.CreateEntry(ctx, models.ChangelogEntry{
		RepositoryID: repo.ID,
		Title:        "February",
		Content:      "- **Added** boosters\n- Fixed `fuel` gauge",
		CreatedAt:    time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		StartedAt:    &started,
	})
	require.NoError(t, err)
	_, err = store.CreateEntry(ctx, models.ChangelogEntry{
		RepositoryID: repo.ID,
		Title:        "March",
		Content:      "- Launch <script>alert(1)</script>",
		CreatedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return store, repo
}

func get(t *testing.T, s *Server, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	store, repo := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `href="/repos/`+repo.ID+`"`)
	assert.Contains(t, body, "acme/idle")
	assert.Contains(t, body, "never")
	assert.Less(t, strings.Index(body, "acme/rocket"), strings.Index(body, "acme/idle"))
}

func TestChangelogPage(t *testing.T) {
	store, repo := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/repos/"+repo.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Added</strong> boosters")
	assert.Contains(t, body, "<code>fuel</code>")
	assert.Contains(t, body, "changes since Feb 1, 2024")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Less(t, strings.Index(body, "March"), strings.Index(body, "February"))
}

func TestChangelogNotFound(t *testing.T) {
	store, _ := seededStore(t)
	s := newTestServer(t, store)

	const unknown = "/repos/00000000-0000-4000-8000-000000000000"

	rec := get(t, s, unknown)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Repository not found")

	rec = get(t, s, unknown, "Accept", "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestChangelogMalformedID(t *testing.T) {
	store, _ := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/repos/missing")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid repository id")

	rec = get(t, s, "/repos/missing", "Accept", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body["code"])
}

func TestUnknownRoute(t *testing.T) {
	store, _ := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestDetails(t *testing.T) {
	store, _ := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/details")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "delta generate")
}

func TestRequestIDHeader(t *testing.T) {
	store, _ := seededStore(t)
	s := newTestServer(t, store)

	rec := get(t, s, "/details")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = get(t, s, "/details", RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

type downStore struct {
	storage.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestStatus(t *testing.T) {
	store, _ := seededStore(t)

	tests := []struct {
		name       string
		store      storage.Store
		wantStatus int
		wantCode   string
	}{
		{name: "healthy", store: store, wantStatus: http.StatusOK},
		{name: "storage down", store: downStore{}, wantStatus: http.StatusServiceUnavailable, wantCode: "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.store)

			rec := get(t, s, "/status")
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
				return
			}
			assert.Equal(t, "ok", body["status"])
			stats := body["stats"].(map[string]any)
			assert.EqualValues(t, 2, stats["repositories"])
			assert.EqualValues(t, 2, stats["entries"])
		})
	}
}

func TestShutdownStopsStart(t *testing.T) {
	tests := map[string]bool{
		"shutdown before start":  true,
		"shutdown while running": false,
	}

	for name, shutdownFirst := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, nil)

			if shutdownFirst {
				require.NoError(t, s.Shutdown(context.Background()))
			}
			errCh := make(chan error, 1)
			go func() { errCh <- s.Start("127.0.0.1:0") }()
			if !shutdownFirst {
				require.NoError(t, s.Shutdown(context.Background()))
			}

			select {
			case err := <-errCh:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Start did not return after Shutdown")
			}
		})
	}
}

func TestStartInvalidAddr(t *testing.T) {
	s := newTestServer(t, nil)
	err := s.Start("not-an-addr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on not-an-addr")
}
