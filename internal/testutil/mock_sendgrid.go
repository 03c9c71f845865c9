// Package testutil provides testing utilities for the SendGrid client.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Form   url.Values
}

// MockSendGrid is a configurable mock SendGrid API server for testing.
// Every path answers {"message": "success"} unless configured otherwise.
type MockSendGrid struct {
	server    *httptest.Server
	mu        sync.RWMutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	sequences map[string][]MockResponse
	requests  []RecordedRequest
}

// NewMockSendGrid creates a new mock SendGrid server.
func NewMockSendGrid() *MockSendGrid {
	mock := &MockSendGrid{
		handlers:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		sequences: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Form:   form,
		})
		if seq := mock.sequences[r.URL.Path]; len(seq) > 0 {
			resp := seq[0]
			if len(seq) > 1 {
				mock.sequences[r.URL.Path] = seq[1:]
			}
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeResponse(w, NewJSONResponse(`{"message": "success"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSendGrid) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSendGrid) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockSendGrid) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSendGrid) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockSendGrid) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence configures responses served in order for a path.
// The last response repeats once the sequence is used up.
func (m *MockSendGrid) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[path] = responses
}

// Requests returns a copy of all recorded requests.
func (m *MockSendGrid) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsTo returns the recorded requests for one path.
func (m *MockSendGrid) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSendGrid) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewAppErrorResponse creates a 200 OK response carrying an application error.
func NewAppErrorResponse(message string) MockResponse {
	return NewJSONResponse(`{"error": "` + message + `"}`)
}

// NewHTMLErrorResponse creates an HTML error page with the given title.
func NewHTMLErrorResponse(status int, title string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       "<html><head><title>" + title + "</title></head><body>error</body></html>",
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewGarbageResponse creates a 200 OK response that is neither JSON nor HTML.
func NewGarbageResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "not json at all",
	}
}
