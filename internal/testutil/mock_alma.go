// Package testutil provides testing utilities for the Alma client and pipeline.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockResponse defines the behavior for a mock Alma endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAlma is a configurable mock Alma API for testing. Handlers are keyed
// by URL path; query parameters are left for the handler to inspect.
type MockAlma struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount     int
	conditionalCount int
	pathCounts       map[string]int
	lastHeader       http.Header

	// Remaining is reported in X-Exl-Api-Remaining when positive.
	Remaining int
}

// NewMockAlma creates a new mock Alma server.
func NewMockAlma() *MockAlma {
	mock := &MockAlma{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		remaining := mock.Remaining
		mock.mu.Unlock()

		if remaining > 0 {
			w.Header().Set("X-Exl-Api-Remaining", strconv.Itoa(remaining))
		}
		if r.Header.Get("Authorization") == "" {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API-key not defined or not configured to allow this API.")
			return
		}
		if exists {
			handler(w, r)
			return
		}
		WriteError(w, http.StatusBadRequest, "402204", fmt.Sprintf("No handler for %s", r.URL.Path))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAlma) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAlma) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAlma) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAlma) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAlma) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves v as a 200 JSON body for path.
func (m *MockAlma) SetJSON(path string, v any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, v)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockAlma) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to one path.
func (m *MockAlma) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// ConditionalCount returns the number of conditional requests.
func (m *MockAlma) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastHeader returns the headers of the most recent request.
func (m *MockAlma) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// WriteError writes an Alma-style error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	w.Write([]byte(ErrorBody(code, message)))
}

// ErrorBody renders an Alma error envelope.
func ErrorBody(code, message string) string {
	body, _ := json.Marshal(map[string]any{
		"errorsExist": true,
		"errorList": map[string]any{
			"error": []map[string]string{{
				"errorCode":    code,
				"errorMessage": message,
				"trackingId":   "E01-0101000000-TEST",
			}},
		},
	})
	return string(body)
}

// InvalidParameterResponse is the 400 Alma returns for an out-of-range
// query parameter.
func InvalidParameterResponse(param string, options ...string) MockResponse {
	msg := fmt.Sprintf("The parameter %s is invalid. Valid options are: [", param)
	for i, o := range options {
		if i > 0 {
			msg += ","
		}
		msg += o
	}
	msg += "]"
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       ErrorBody("40166410", msg),
		Headers:    map[string]string{"Content-Type": "application/json;charset=UTF-8"},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       ErrorBody("INTERNAL_SERVER_ERROR", "The web server encountered an unexpected condition"),
		Headers:    map[string]string{"Content-Type": "application/json;charset=UTF-8"},
	}
}

// NewConditionalHandler responds 304 when If-None-Match equals etag.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
