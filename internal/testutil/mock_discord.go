// Package testutil provides a mock Discord API for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const channelsPrefix = "/api/v9/channels/"

// MockThread is a thread served by the search endpoint.
type MockThread struct {
	ID   string
	Name string
	// NoName omits the name key from the response.
	NoName bool
}

// MockError is a canned error response for one path.
type MockError struct {
	StatusCode int
	Code       int
	Message    string
	// Times limits how often the error is served; 0 means always.
	Times int
}

// MockDiscord is a configurable mock of the channel and thread-search
// endpoints.
type MockDiscord struct {
	server *httptest.Server

	mu       sync.RWMutex
	channels map[string]string
	types    map[string]int
	threads  map[string][]MockThread
	errors   map[string]*MockError

	requestCount      int
	offsets           []int
	lastRequestHeader http.Header
	lastQuery         map[string]string
}

// NewMockDiscord starts a mock Discord server.
func NewMockDiscord() *MockDiscord {
	m := &MockDiscord{
		channels: make(map[string]string),
		types:    make(map[string]int),
		threads:  make(map[string][]MockThread),
		errors:   make(map[string]*MockError),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the base URL to configure the client with.
func (m *MockDiscord) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDiscord) Close() {
	m.server.Close()
}

// SetChannel registers a channel or thread name for GET /channels/{id}.
func (m *MockDiscord) SetChannel(id, name string, channelType int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[id] = name
	m.types[id] = channelType
}

// SetThreads sets the threads returned by a channel's search endpoint, in
// the order they are paged out. Entries may repeat.
func (m *MockDiscord) SetThreads(channelID string, threads []MockThread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[channelID] = threads
}

// SetError makes a path (e.g. "/api/v9/channels/1") answer with an error.
func (m *MockDiscord) SetError(path string, e MockError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[path] = &e
}

// RequestCount returns the number of requests served.
func (m *MockDiscord) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// Offsets returns the offsets requested from the search endpoint, in order.
func (m *MockDiscord) Offsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.offsets...)
}

// LastRequestHeader returns the headers of the last request.
func (m *MockDiscord) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastSearchQuery returns the query of the last search request.
func (m *MockDiscord) LastSearchQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// MakeThreads builds n threads with ids prefix+index and names "Thread index".
func MakeThreads(prefix string, n int) []MockThread {
	threads := make([]MockThread, n)
	for i := range threads {
		threads[i] = MockThread{
			ID:   prefix + strconv.Itoa(i),
			Name: "Thread " + strconv.Itoa(i),
		}
	}
	return threads
}

func (m *MockDiscord) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.lastRequestHeader = r.Header.Clone()
	injected := m.errors[r.URL.Path]
	if injected != nil && injected.Times > 0 {
		injected.Times--
		if injected.Times == 0 {
			delete(m.errors, r.URL.Path)
		}
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", "50")
	w.Header().Set("X-RateLimit-Remaining", "49")
	w.Header().Set("X-RateLimit-Reset-After", "1.000")
	w.Header().Set("X-RateLimit-Bucket", "mock-bucket")

	if r.Header.Get("Authorization") == "" {
		writeError(w, http.StatusUnauthorized, 0, "401: Unauthorized")
		return
	}

	if injected != nil {
		if injected.StatusCode == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		writeError(w, injected.StatusCode, injected.Code, injected.Message)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, channelsPrefix)
	if rest == r.URL.Path {
		writeError(w, http.StatusNotFound, 0, "404: Not Found")
		return
	}

	if channelID, ok := strings.CutSuffix(rest, "/threads/search"); ok {
		m.search(w, r, channelID)
		return
	}

	m.mu.RLock()
	name, ok := m.channels[rest]
	channelType := m.types[rest]
	m.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, 10003, "Unknown Channel")
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":   rest,
		"name": name,
		"type": channelType,
	})
}

func (m *MockDiscord) search(w http.ResponseWriter, r *http.Request, channelID string) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}

	m.mu.Lock()
	m.offsets = append(m.offsets, offset)
	m.lastQuery = make(map[string]string, len(q))
	for k := range q {
		m.lastQuery[k] = q.Get(k)
	}
	all, ok := m.threads[channelID]
	m.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, 10003, "Unknown Channel")
		return
	}

	start := min(offset, len(all))
	end := min(offset+limit, len(all))
	page := make([]map[string]any, 0, end-start)
	for _, t := range all[start:end] {
		item := map[string]any{"id": t.ID, "type": 11}
		if !t.NoName {
			item["name"] = t.Name
		}
		page = append(page, item)
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"threads":       page,
		"members":       []any{},
		"has_more":      end < len(all),
		"total_results": len(all),
	})
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
	})
}
