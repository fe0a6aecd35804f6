// Package embeddablestest provides an in-process fake of the entries API.
package embeddablestest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dtnitsch/funnelx/models"
)

// Server serves a fixed set of entries newest first and honors limit,
// updated_before and updated_after like the real API.
type Server struct {
	*httptest.Server

	APIKey    string
	ProjectID string

	mu           sync.Mutex
	entries      []models.RawEntry
	requests     []url.Values
	failOnCall   int
	failStatus   int
	ignoreCursor bool
}

// NewServer starts a fake holding entries. Entries are sorted by
// created_at descending.
func NewServer(apiKey, projectID string, entries []models.RawEntry) *Server {
	s := &Server{
		APIKey:    apiKey,
		ProjectID: projectID,
		entries:   append([]models.RawEntry(nil), entries...),
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].CreatedAt > s.entries[j].CreatedAt
	})
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailOnCall makes the n-th call (1-based) answer with status.
func (s *Server) FailOnCall(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnCall, s.failStatus = n, status
}

// IgnoreCursor makes every call serve the newest page, like a server that
// does not honor updated_before.
func (s *Server) IgnoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignoreCursor = true
}

// Calls returns the number of requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the query of every request received.
func (s *Server) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Query())
	call := len(s.requests)
	failOnCall, failStatus, ignoreCursor := s.failOnCall, s.failStatus, s.ignoreCursor
	s.mu.Unlock()

	if r.Header.Get("X-Api-Key") != s.APIKey {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if r.URL.Path != fmt.Sprintf("/projects/%s/entries", s.ProjectID) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if failOnCall > 0 && call == failOnCall {
		http.Error(w, `{"error":"boom"}`, failStatus)
		return
	}

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 1000
	}
	before := q.Get("updated_before")
	after := q.Get("updated_after")
	if ignoreCursor {
		before = ""
	}

	out := make([]models.RawEntry, 0, limit)
	for _, e := range s.entries {
		if before != "" && !(e.CreatedAt < before) {
			continue
		}
		if after != "" && !(e.UpdatedAt > after) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Entries builds n entries for embeddableID with strictly decreasing
// created_at, one minute apart, starting at newest. Ids are prefixed so
// several funnels can share one server.
func Entries(n int, embeddableID, idPrefix string, newest time.Time, data map[string]interface{}) []models.RawEntry {
	if data == nil {
		data = map[string]interface{}{}
	}
	encoded, _ := json.Marshal(data)
	asString, _ := json.Marshal(string(encoded))

	out := make([]models.RawEntry, n)
	for i := 0; i < n; i++ {
		ts := newest.Add(-time.Duration(i) * time.Minute).UTC().Format(time.RFC3339)
		out[i] = models.RawEntry{
			EntryID:      fmt.Sprintf("%s%05d", idPrefix, i),
			EmbeddableID: embeddableID,
			CreatedAt:    ts,
			UpdatedAt:    ts,
			EntryData:    json.RawMessage(asString),
		}
	}
	return out
}

// Entry builds a single entry with the given payload object.
func Entry(id, embeddableID string, created time.Time, data map[string]interface{}) models.RawEntry {
	e := Entries(1, embeddableID, "", created, data)[0]
	e.EntryID = id
	return e
}

// IDs returns the entry ids of entries, sorted.
func IDs(entries []models.RawEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.EntryID
	}
	sort.Strings(ids)
	return ids
}

// HasPrefix reports whether every id starts with prefix.
func HasPrefix(entries []models.RawEntry, prefix string) bool {
	for _, e := range entries {
		if !strings.HasPrefix(e.EntryID, prefix) {
			return false
		}
	}
	return true
}
