// Package testutil provides testing utilities for the lazyimg pipeline.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// TinyPNG is a valid 1x1 transparent PNG, small enough to inline in tests.
var TinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// MockImageResponse defines the behavior for a mock image endpoint.
type MockImageResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Delay       time.Duration
}

// MockImageServer is a configurable image origin for testing the pipeline.
type MockImageServer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	pathCounts   map[string]int
}

// NewMockImageServer creates a new mock image origin.
func NewMockImageServer() *MockImageServer {
	mock := &MockImageServer{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockImageServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockImageServer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockImageServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockImageServer) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockImageServer) SetResponse(path string, resp MockImageResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "image/png"
		}
		w.Header().Set("Content-Type", contentType)

		w.WriteHeader(resp.StatusCode)
		if len(resp.Body) > 0 {
			w.Write(resp.Body)
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockImageServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made for a specific path.
func (m *MockImageServer) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// defaultHandler serves the tiny PNG for any unconfigured path.
func (m *MockImageServer) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(TinyPNG)
}

// NewImageResponse creates a standard 200 OK PNG response.
func NewImageResponse() MockImageResponse {
	return MockImageResponse{
		StatusCode: http.StatusOK,
		Body:       TinyPNG,
	}
}

// NewSlowImageResponse creates a 200 OK PNG response delayed by d.
func NewSlowImageResponse(d time.Duration) MockImageResponse {
	return MockImageResponse{
		StatusCode: http.StatusOK,
		Body:       TinyPNG,
		Delay:      d,
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockImageResponse {
	return MockImageResponse{
		StatusCode:  http.StatusNotFound,
		Body:        []byte("not found"),
		ContentType: "text/plain",
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockImageResponse {
	return MockImageResponse{
		StatusCode:  http.StatusInternalServerError,
		Body:        []byte("internal error"),
		ContentType: "text/plain",
	}
}
