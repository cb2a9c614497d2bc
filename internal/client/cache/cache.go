// Package cache intercepts read requests for story data. The story
// list endpoint gets a stale-while-revalidate policy backed by the
// persistent store; every other GET is served cache-first.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/yorgalore/storysync/internal/client/events"
	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/repositories/stories"
	"github.com/yorgalore/storysync/internal/logging"
)

// storiesPathSuffix identifies the story collection endpoint.
const storiesPathSuffix = "/v1/stories"

// entry is one cached HTTP response.
type entry struct {
	status int
	header http.Header
	body   []byte
}

// listEnvelope mirrors the API's story list response.
type listEnvelope struct {
	Error     bool                 `json:"error"`
	Message   string               `json:"message"`
	ListStory []models.CachedStory `json:"listStory"`
}

// RoundTripper wraps an inner transport with the offline caching
// policy. Safe for concurrent use.
type RoundTripper struct {
	inner   http.RoundTripper
	stories stories.Repository
	bus     *events.Bus
	log     logging.Logger

	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]struct{}
}

// New returns a caching RoundTripper over inner. A nil inner falls back
// to http.DefaultTransport; a nil bus disables refresh notifications.
func New(inner http.RoundTripper, repo stories.Repository, bus *events.Bus, log logging.Logger) *RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &RoundTripper{
		inner:    inner,
		stories:  repo,
		bus:      bus,
		log:      log,
		entries:  make(map[string]*entry),
		inflight: make(map[string]struct{}),
	}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// only GETs are cached; writes and reachability probes (HEAD) must
	// always hit the network
	if req.Method != http.MethodGet {
		return rt.inner.RoundTrip(req)
	}
	if strings.HasSuffix(req.URL.Path, storiesPathSuffix) {
		return rt.storyList(req)
	}
	return rt.cacheFirst(req)
}

// storyList applies stale-while-revalidate with a persistent-store
// fallback.
func (rt *RoundTripper) storyList(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)

	if cached := rt.lookup(key); cached != nil {
		// serve stale immediately, refresh in the background
		rt.refreshAsync(req, key)
		return cached.response(req), nil
	}

	resp, err := rt.fetchAndStore(req.Context(), req, key)
	if err == nil {
		return resp, nil
	}
	rt.log.Warn(req.Context(), "story fetch failed, falling back to local store", "err", err)
	return rt.synthesize(req), nil
}

// cacheFirst serves static assets: cached copy when present, otherwise
// fetch and populate.
func (rt *RoundTripper) cacheFirst(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)
	if cached := rt.lookup(key); cached != nil {
		return cached.response(req), nil
	}

	resp, err := rt.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	e, err := consume(resp)
	if err != nil {
		return nil, err
	}
	if e.status == http.StatusOK {
		rt.store(key, e)
	}
	return e.response(req), nil
}

// refreshAsync starts at most one background refresh per key. The
// request context is detached: the caller already has its (stale)
// response and may cancel at any moment.
func (rt *RoundTripper) refreshAsync(req *http.Request, key string) {
	rt.mu.Lock()
	if _, busy := rt.inflight[key]; busy {
		rt.mu.Unlock()
		return
	}
	rt.inflight[key] = struct{}{}
	rt.mu.Unlock()

	ctx := context.WithoutCancel(req.Context())
	go func() {
		defer func() {
			rt.mu.Lock()
			delete(rt.inflight, key)
			rt.mu.Unlock()
		}()
		if _, err := rt.fetchAndStore(ctx, req.Clone(ctx), key); err != nil {
			rt.log.Debug(ctx, "background refresh failed, cache left as-is", "err", err)
		}
	}()
}

// fetchAndStore performs the network fetch. A 200 response replaces
// the cached HTTP entry and the whole CachedStory collection.
func (rt *RoundTripper) fetchAndStore(ctx context.Context, req *http.Request, key string) (*http.Response, error) {
	resp, err := rt.inner.RoundTrip(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	e, err := consume(resp)
	if err != nil {
		return nil, err
	}
	if e.status != http.StatusOK {
		return e.response(req), nil
	}

	rt.store(key, e)

	var env listEnvelope
	if jsonErr := json.Unmarshal(e.body, &env); jsonErr == nil && !env.Error {
		if repErr := rt.stories.ReplaceAll(ctx, env.ListStory); repErr != nil {
			rt.log.Warn(ctx, "cached story snapshot not replaced", "err", repErr)
		} else if rt.bus != nil {
			rt.bus.Publish(events.DataRefreshed{Count: len(env.ListStory)})
		}
	}

	return e.response(req), nil
}

// synthesize builds a story list response from the persistent store,
// or a not-found response when the local cache is empty too.
func (rt *RoundTripper) synthesize(req *http.Request) *http.Response {
	list, err := rt.stories.GetAll(req.Context())
	if err != nil {
		rt.log.Warn(req.Context(), "local story cache unavailable", "err", err)
		list = nil
	}
	if len(list) == 0 {
		return plainResponse(req, http.StatusNotFound, "Network error and no local data found.")
	}

	body, err := json.Marshal(listEnvelope{
		Error:     false,
		Message:   fmt.Sprintf("Stories fetched successfully (%d from local store)", len(list)),
		ListStory: list,
	})
	if err != nil {
		return plainResponse(req, http.StatusNotFound, "Network error and no local data found.")
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	e := &entry{status: http.StatusOK, header: header, body: body}
	return e.response(req)
}

func (rt *RoundTripper) lookup(key string) *entry {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.entries[key]
}

func (rt *RoundTripper) store(key string, e *entry) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.entries[key] = e
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// consume drains resp into an immutable entry so it can be replayed to
// any number of readers.
func consume(resp *http.Response) (*entry, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &entry{status: resp.StatusCode, header: resp.Header.Clone(), body: body}, nil
}

// response materializes a fresh http.Response from the entry.
func (e *entry) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.status,
		Status:        fmt.Sprintf("%d %s", e.status, http.StatusText(e.status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}

func plainResponse(req *http.Request, status int, msg string) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	e := &entry{status: status, header: header, body: []byte(msg)}
	return e.response(req)
}
