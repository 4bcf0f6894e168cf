// Package offline is the client's offline cache: a versioned store of HTTP
// responses, a network-first RoundTripper that fills and falls back on it,
// the install/activate lifecycle of cache generations, and push
// notification handling.
package offline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// ErrNoMatch means neither the network nor the cache could answer.
var ErrNoMatch = errors.New("offline: no cached response")

// CachedResponse is a stored copy of an HTTP response.
type CachedResponse struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// RequestKey identifies a request inside a generation. Only the method and
// the full URL take part, so a later response replaces an earlier one.
func RequestKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// NewCachedResponse copies status, headers and body of resp.
func NewCachedResponse(resp *http.Response, body []byte, now time.Time) CachedResponse {
	return CachedResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     append([]byte(nil), body...),
		StoredAt: now,
	}
}

// HTTPResponse rebuilds a response for req from the stored copy.
func (c CachedResponse) HTTPResponse(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(c.Status) + " " + http.StatusText(c.Status),
		StatusCode:    c.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// Store holds named cache generations of responses. Implementations are
// shared by every client in the process and are last-write-wins per key.
type Store interface {
	// Open creates the named generation if it does not exist.
	Open(ctx context.Context, cache string) error
	// Caches lists the existing generation names.
	Caches(ctx context.Context) ([]string, error)
	// Delete drops a generation and reports whether it existed.
	Delete(ctx context.Context, cache string) (bool, error)
	// Put stores resp under key, creating the generation when needed.
	Put(ctx context.Context, cache, key string, resp CachedResponse) error
	// Match returns the response stored under key or ErrNoMatch.
	Match(ctx context.Context, cache, key string) (CachedResponse, error)
	// Keys lists the request keys stored in a generation.
	Keys(ctx context.Context, cache string) ([]string, error)
	Close() error
}

// MemoryStore keeps generations in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	caches map[string]map[string]CachedResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{caches: make(map[string]map[string]CachedResponse)}
}

func (m *MemoryStore) Open(_ context.Context, cache string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caches[cache]; !ok {
		m.caches[cache] = make(map[string]CachedResponse)
	}
	return nil
}

func (m *MemoryStore) Caches(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Delete(_ context.Context, cache string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.caches[cache]
	delete(m.caches, cache)
	return ok, nil
}

func (m *MemoryStore) Put(_ context.Context, cache, key string, resp CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen, ok := m.caches[cache]
	if !ok {
		gen = make(map[string]CachedResponse)
		m.caches[cache] = gen
	}
	gen[key] = resp
	return nil
}

func (m *MemoryStore) Match(_ context.Context, cache, key string) (CachedResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, ok := m.caches[cache][key]
	if !ok {
		return CachedResponse{}, ErrNoMatch
	}
	return resp, nil
}

func (m *MemoryStore) Keys(_ context.Context, cache string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.caches[cache]))
	for k := range m.caches[cache] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
