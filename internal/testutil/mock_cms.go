// Package testutil provides testing utilities for the CMS client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/bernardodestefano/storyblok-fast-client/pkg/stories"
)

// MockCMS is a configurable mock CMS server for testing the paginated
// stories endpoint and the space-metadata endpoint.
type MockCMS struct {
	server *httptest.Server
	mu     sync.Mutex

	perMarket    map[string][]stories.Story
	pageFailures map[string]int // market:page -> remaining failures
	failStatus   int
	spaceVersion int64
	noTotal      bool

	// Tracking
	RequestCount int
	PageRequests map[string]int // market:page -> request count
}

// NewMockCMS creates a new mock CMS server.
func NewMockCMS() *MockCMS {
	mock := &MockCMS{
		perMarket:    make(map[string][]stories.Story),
		pageFailures: make(map[string]int),
		failStatus:   http.StatusInternalServerError,
		spaceVersion: 1,
		PageRequests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cdn/stories", mock.handleStories)
	mux.HandleFunc("/cdn/spaces/me", mock.handleSpace)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockCMS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCMS) Close() {
	m.server.Close()
}

// SetStories configures the full collection for a market. Pages are
// sliced from it on demand using the per_page query parameter.
func (m *MockCMS) SetStories(market string, list []stories.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perMarket[market] = list
}

// SetSpaceVersion configures the version reported by the
// space-metadata endpoint.
func (m *MockCMS) SetSpaceVersion(version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaceVersion = version
}

// FailPage makes the given market page fail `times` times before
// succeeding. A negative count fails forever.
func (m *MockCMS) FailPage(market string, page, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageFailures[pageKey(market, page)] = times
}

// SetFailStatus sets the HTTP status used for injected failures
// (default 500).
func (m *MockCMS) SetFailStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// SuppressTotalHeader drops the Total header from stories responses so
// callers exercise the absent-metadata path.
func (m *MockCMS) SuppressTotalHeader() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noTotal = true
}

// GetPageRequestCount returns how often a market page was requested.
func (m *MockCMS) GetPageRequestCount(market string, page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PageRequests[pageKey(market, page)]
}

// GetRequestCount returns the total number of requests served.
func (m *MockCMS) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

func pageKey(market string, page int) string {
	return fmt.Sprintf("%s:%d", market, page)
}

func (m *MockCMS) handleStories(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("language")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 25
	}

	m.mu.Lock()
	m.RequestCount++
	key := pageKey(market, page)
	m.PageRequests[key]++

	if remaining, ok := m.pageFailures[key]; ok && remaining != 0 {
		if remaining > 0 {
			m.pageFailures[key] = remaining - 1
		}
		status := m.failStatus
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": "injected failure"}`)
		return
	}

	all := m.perMarket[market]
	noTotal := m.noTotal
	m.mu.Unlock()

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	w.Header().Set("Content-Type", "application/json")
	if !noTotal {
		w.Header().Set("Total", strconv.Itoa(len(all)))
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"stories": all[start:end]})
}

func (m *MockCMS) handleSpace(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	version := m.spaceVersion
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"space": {"version": %d}}`, version)
}

// MakeStories builds n sequential test stories for a market, uuids
// "<prefix>-1" .. "<prefix>-n".
func MakeStories(prefix string, n int) []stories.Story {
	list := make([]stories.Story, n)
	for i := range list {
		list[i] = stories.Story{
			UUID:     fmt.Sprintf("%s-%d", prefix, i+1),
			Name:     fmt.Sprintf("Story %d", i+1),
			Slug:     fmt.Sprintf("story-%d", i+1),
			FullSlug: fmt.Sprintf("%s/story-%d", prefix, i+1),
			Content:  map[string]any{"component": "page", "title": fmt.Sprintf("Title %d", i+1)},
		}
	}
	return list
}
