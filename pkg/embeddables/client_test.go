package embeddables

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/caching"
	"github.com/dtnitsch/funnelx/pkg/embeddables/embeddablestest"
)

const (
	testKey     = "test-key"
	testProject = "proj-1"
	testFlow    = "flow_a"
)

var newest = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:       testKey,
		ProjectID:    testProject,
		BaseURL:      baseURL,
		RequestDelay: -1,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{ProjectID: "p"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(Config{APIKey: "k"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFetchBatchSendsHeadersAndParams(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(3, testFlow, "e", newest, nil))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	batch, err := c.FetchBatch(context.Background(), BatchParams{Limit: 2, UpdatedAfter: "2020-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	q := srv.Requests()[0]
	assert.Equal(t, "2", q.Get("limit"))
	assert.Equal(t, "created_at", q.Get("sort"))
	assert.Equal(t, "DESC", q.Get("direction"))
	assert.Equal(t, "2020-01-01T00:00:00Z", q.Get("updated_after"))
	assert.False(t, q.Has("updated_before"))
}

func TestFetchBatchErrorKinds(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, nil)
	defer srv.Close()

	t.Run("unauthorized", func(t *testing.T) {
		c, err := NewClient(Config{APIKey: "wrong", ProjectID: testProject, BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.FetchBatch(context.Background(), BatchParams{Limit: 10})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("project not found", func(t *testing.T) {
		c, err := NewClient(Config{APIKey: testKey, ProjectID: "missing", BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.FetchBatch(context.Background(), BatchParams{Limit: 10})
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		srv.FailOnCall(3, http.StatusBadGateway)
		c := newTestClient(t, srv.URL)
		_, err := c.FetchBatch(context.Background(), BatchParams{Limit: 10})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})
}

func TestFetchBatchMalformedBody(t *testing.T) {
	srv := http.NewServeMux()
	srv.HandleFunc("/projects/proj-1/entries", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})
	ts := newHTTPServer(t, srv)

	c := newTestClient(t, ts)
	_, err := c.FetchBatch(context.Background(), BatchParams{Limit: 10})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchAllTwoCallsForFifteenHundred(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(1500, testFlow, "e", newest, nil))
	defer srv.Close()

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{MaxRecords: 10000})

	require.NoError(t, res.Err)
	assert.Len(t, res.Entries, 1500)
	assert.Equal(t, 2, res.Calls)
	assert.Equal(t, 2, srv.Calls())
	assert.Equal(t, StopExhausted, res.Stop)
	assert.Len(t, uniqueIDs(res.Entries), 1500)

	reqs := srv.Requests()
	assert.False(t, reqs[0].Has("updated_before"))
	assert.Equal(t, res.Entries[999].CreatedAt, reqs[1].Get("updated_before"))
}

func TestFetchAllIsIdempotent(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(2300, testFlow, "e", newest, nil))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	first := c.FetchAll(context.Background(), FetchRequest{MaxRecords: 10000})
	second := c.FetchAll(context.Background(), FetchRequest{MaxRecords: 10000})

	assert.Equal(t, embeddablestest.IDs(first.Entries), embeddablestest.IDs(second.Entries))
	assert.Len(t, first.Entries, 2300)
}

func TestFetchAllStopsWhenNoNewEntries(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(10, testFlow, "e", newest, nil))
	defer srv.Close()
	srv.IgnoreCursor()

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{MaxRecords: 100, BatchSize: 5})

	assert.Equal(t, StopNoNewEntries, res.Stop)
	assert.Equal(t, 2, res.Calls)
	assert.Len(t, res.Entries, 5)
}

func TestFetchAllStopsWhenCursorStalls(t *testing.T) {
	mux := http.NewServeMux()
	call := 0
	mux.HandleFunc("/projects/proj-1/entries", func(w http.ResponseWriter, r *http.Request) {
		call++
		ts := newest.Format(time.RFC3339)
		body := `[{"entry_id":"x` + string(rune('0'+call)) + `a","created_at":"` + ts + `"},` +
			`{"entry_id":"x` + string(rune('0'+call)) + `b","created_at":"` + ts + `"}]`
		_, _ = w.Write([]byte(body))
	})
	url := newHTTPServer(t, mux)

	res := newTestClient(t, url).FetchAll(context.Background(), FetchRequest{MaxRecords: 100, BatchSize: 2})

	assert.Equal(t, StopCursorStalled, res.Stop)
	assert.Equal(t, 2, res.Calls)
	assert.Len(t, res.Entries, 4)
}

func TestFetchAllTruncatesAtMaxRecords(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(50, testFlow, "e", newest, nil))
	defer srv.Close()

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{MaxRecords: 25, BatchSize: 10})

	assert.Equal(t, StopLimitReached, res.Stop)
	assert.Len(t, res.Entries, 25)
	assert.Equal(t, 3, res.Calls)
}

func TestFetchAllKeepsPartialResultsOnFailure(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(30, testFlow, "e", newest, nil))
	defer srv.Close()
	srv.FailOnCall(2, http.StatusInternalServerError)

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{MaxRecords: 100, BatchSize: 10})

	assert.Equal(t, StopAborted, res.Stop)
	assert.Len(t, res.Entries, 10)
	var statusErr *StatusError
	assert.True(t, errors.As(res.Err, &statusErr))
}

func TestFetchAllFiltersByEmbeddable(t *testing.T) {
	entries := append(
		embeddablestest.Entries(6, testFlow, "a", newest, nil),
		embeddablestest.Entries(6, "flow_other", "b", newest.Add(-30*time.Second), nil)...,
	)
	srv := embeddablestest.NewServer(testKey, testProject, entries)
	defer srv.Close()

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{EmbeddableID: testFlow, MaxRecords: 100, BatchSize: 4})

	require.NoError(t, res.Err)
	assert.Len(t, res.Entries, 6)
	assert.True(t, embeddablestest.HasPrefix(res.Entries, "a"))
}

func TestFetchAllKeepsFullBatchWhenFiltering(t *testing.T) {
	entries := append(
		embeddablestest.Entries(20, "flow_other", "o", newest, nil),
		embeddablestest.Entries(5, testFlow, "a", newest.Add(-time.Hour), nil)...,
	)
	srv := embeddablestest.NewServer(testKey, testProject, entries)
	defer srv.Close()

	res := newTestClient(t, srv.URL).FetchAll(context.Background(), FetchRequest{EmbeddableID: testFlow, MaxRecords: 3})

	require.NoError(t, res.Err)
	assert.Equal(t, "1000", srv.Requests()[0].Get("limit"))
	assert.Equal(t, 1, res.Calls)
	assert.Equal(t, StopLimitReached, res.Stop)
	assert.Len(t, res.Entries, 3)
	assert.True(t, embeddablestest.HasPrefix(res.Entries, "a"))
}

func TestFetchAllHonorsCancellation(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(30, testFlow, "e", newest, nil))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: testKey, ProjectID: testProject, BaseURL: srv.URL, RequestDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	res := c.FetchAll(ctx, FetchRequest{MaxRecords: 100, BatchSize: 10})

	assert.Equal(t, StopAborted, res.Stop)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Len(t, res.Entries, 10)
}

func TestFetchBatchUsesCache(t *testing.T) {
	srv := embeddablestest.NewServer(testKey, testProject, embeddablestest.Entries(3, testFlow, "e", newest, nil))
	defer srv.Close()

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	c, err := NewClient(Config{APIKey: testKey, ProjectID: testProject, BaseURL: srv.URL, Cache: cache, RequestDelay: -1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		batch, err := c.FetchBatch(context.Background(), BatchParams{Limit: 10})
		require.NoError(t, err)
		assert.Len(t, batch, 3)
	}
	assert.Equal(t, 1, srv.Calls())
}

func TestOldestCreatedAt(t *testing.T) {
	batch := []models.RawEntry{
		{CreatedAt: "2025-09-01T10:00:00Z"},
		{CreatedAt: "2025-08-01T10:00:00Z"},
		{CreatedAt: "2025-08-15T10:00:00Z"},
	}
	assert.Equal(t, "2025-08-01T10:00:00Z", oldestCreatedAt(batch))

	assert.Equal(t, "junk-2", oldestCreatedAt([]models.RawEntry{{CreatedAt: "junk-1"}, {CreatedAt: "junk-2"}}))
	assert.Equal(t, "", oldestCreatedAt(nil))
}

func uniqueIDs(entries []models.RawEntry) map[string]bool {
	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.EntryID] = true
	}
	return ids
}

func newHTTPServer(t *testing.T, h http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}
