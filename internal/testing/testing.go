// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// Reply is a canned response served by a [Recorder].
type Reply struct {
	Status int
	Body   string
}

// RecordedRequest captures one request seen by a [Recorder].
type RecordedRequest struct {
	Method string
	URI    string // path and raw query
	Header http.Header
	Body   []byte
}

// Recorder is an [http.Handler] that records every request and answers from a route table keyed by "METHOD /path".
// Unknown routes get a 404.
type Recorder struct {
	mu       sync.Mutex
	requests []RecordedRequest
	routes   map[string]Reply
}

func NewRecorder() *Recorder {
	return &Recorder{routes: make(map[string]Reply)}
}

// On sets the reply for method and path (query excluded).
func (r *Recorder) On(method, path string, status int, body string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[method+" "+path] = Reply{Status: status, Body: body}
	return r
}

func (r *Recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.requests = append(r.requests, RecordedRequest{
		Method: req.Method,
		URI:    req.URL.RequestURI(),
		Header: req.Header.Clone(),
		Body:   body,
	})
	reply, ok := r.routes[req.Method+" "+req.URL.Path]
	r.mu.Unlock()

	if !ok {
		reply = Reply{Status: http.StatusNotFound, Body: `{"error":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write([]byte(reply.Body))
}

// Requests returns a copy of every recorded request.
func (r *Recorder) Requests() []RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedRequest(nil), r.requests...)
}

// Count returns the number of recorded requests.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Last returns the most recent request, or the zero value when none were made.
func (r *Recorder) Last() RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return RecordedRequest{}
	}
	return r.requests[len(r.requests)-1]
}

// NewRecordingServer starts an httptest server backed by a fresh [Recorder] and closes it on cleanup.
func NewRecordingServer(t *testing.T) (*httptest.Server, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return srv, rec
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
