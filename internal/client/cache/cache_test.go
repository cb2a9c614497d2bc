package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorgalore/storysync/internal/client/events"
	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/stories"
	"github.com/yorgalore/storysync/internal/logging"

	_ "modernc.org/sqlite"
)

func setupStories(t *testing.T) stories.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE stories (
  id TEXT PRIMARY KEY,
  description TEXT NOT NULL,
  lat REAL,
  lon REAL,
  created_at TEXT NOT NULL,
  name TEXT NOT NULL,
  photo_url TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return stories.NewSQLiteRepository(db)
}

func testLogger() logging.Logger {
	return logging.NewTextLogger(io.Discard, slog.LevelError)
}

func listBody(ids ...string) string {
	list := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, map[string]any{
			"id": id, "description": "d", "createdAt": "t", "name": "n", "photoUrl": "u",
		})
	}
	b, _ := json.Marshal(map[string]any{"error": false, "message": "ok", "listStory": list})
	return string(b)
}

func getIDs(t *testing.T, c *http.Client, url string) []string {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Error     bool                 `json:"error"`
		ListStory []models.CachedStory `json:"listStory"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.False(t, env.Error)

	ids := make([]string, 0, len(env.ListStory))
	for _, s := range env.ListStory {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestStoryList_CacheMissWaitsForNetwork(t *testing.T) {
	repo := setupStories(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listBody("s1", "s2"))
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	ids := getIDs(t, c, srv.URL+"/v1/stories")
	assert.Equal(t, []string{"s1", "s2"}, ids)

	// the fetch also replaced the persistent snapshot
	got, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoryList_StaleWhileRevalidate(t *testing.T) {
	repo := setupStories(t)

	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			fmt.Fprint(w, listBody("old"))
			return
		}
		<-release // slow refresh
		fmt.Fprint(w, listBody("new"))
	}))
	defer srv.Close()

	bus := events.NewBus()
	rt := New(nil, repo, bus, testLogger())
	c := &http.Client{Transport: rt}
	url := srv.URL + "/v1/stories"

	// prime the HTTP cache
	require.Equal(t, []string{"old"}, getIDs(t, c, url))

	// second read returns the stale entry without waiting for the
	// still-blocked network refresh
	start := time.Now()
	assert.Equal(t, []string{"old"}, getIDs(t, c, url))
	assert.Less(t, time.Since(start), time.Second)

	close(release)

	// once the background refresh lands, reads observe the new snapshot
	require.Eventually(t, func() bool {
		got, err := repo.GetAll(context.Background())
		return err == nil && len(got) == 1 && got[0].ID == "new"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		ids := getIDs(t, c, url)
		return len(ids) == 1 && ids[0] == "new"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStoryList_RefreshReplacesSnapshotIdempotently(t *testing.T) {
	repo := setupStories(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listBody("a", "b"))
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	ctx := context.Background()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stories", nil)
	require.NoError(t, err)

	// same payload twice through the refresh path
	for i := 0; i < 2; i++ {
		_, err := rt.fetchAndStore(ctx, req, cacheKey(req))
		require.NoError(t, err)
	}

	got, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoryList_OfflineFallbackFromStore(t *testing.T) {
	repo := setupStories(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, []models.CachedStory{
		{ID: "c1", Description: "d", CreatedAt: "t", Name: "n"},
		{ID: "c2", Description: "d", CreatedAt: "t", Name: "n"},
		{ID: "c3", Description: "d", CreatedAt: "t", Name: "n"},
	}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // network down, HTTP cache empty

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	ids := getIDs(t, c, srv.URL+"/v1/stories")
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, ids)
}

func TestStoryList_NoDataAnywhere(t *testing.T) {
	repo := setupStories(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	resp, err := c.Get(srv.URL + "/v1/stories")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticAssets_CacheFirst(t *testing.T) {
	repo := setupStories(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "asset-body")
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	for i := 0; i < 3; i++ {
		resp, err := c.Get(srv.URL + "/app.css")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "asset-body", string(body))
	}

	// only the first request hit the network
	assert.Equal(t, int32(1), calls.Load())
}

func TestStaticAssets_ErrorsNotCached(t *testing.T) {
	repo := setupStories(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "recovered")
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	resp, err := c.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = c.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "recovered", string(body))
}

func TestHead_NeverCached(t *testing.T) {
	repo := setupStories(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	// reachability probes must observe the real network every time
	for i := 0; i < 2; i++ {
		resp, err := c.Head(srv.URL + "/")
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, int32(2), calls.Load())

	srv.Close()
	_, err := c.Head(srv.URL + "/")
	require.Error(t, err)
}

func TestPost_Bypassed(t *testing.T) {
	repo := setupStories(t)

	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		fmt.Fprint(w, `{"error":false,"message":"ok"}`)
	}))
	defer srv.Close()

	rt := New(nil, repo, nil, testLogger())
	c := &http.Client{Transport: rt}

	resp, err := c.Post(srv.URL+"/v1/stories", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.MethodPost, method)
}
