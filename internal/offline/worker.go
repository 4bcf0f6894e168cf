package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	applog "gestorebinder/internal/log"
)

// Defaults for the application's cache generation.
const (
	DefaultCacheName = "gestore-binder-v1"
)

// DefaultSeed is the set of shell assets every generation starts with.
var DefaultSeed = []string{"/", "/index.html", "/manifest.json"}

// Worker manages one cache generation and serves requests network-first.
// It implements http.RoundTripper.
type Worker struct {
	store     Store
	cacheName string
	seed      []string
	next      http.RoundTripper
	logger    *applog.Logger
	now       func() time.Time
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithCacheName sets the current generation name.
func WithCacheName(name string) WorkerOption {
	return func(w *Worker) { w.cacheName = name }
}

// WithSeed replaces the assets fetched on install.
func WithSeed(paths ...string) WorkerOption {
	return func(w *Worker) { w.seed = append([]string(nil), paths...) }
}

// WithNetwork sets the transport used to reach the network.
func WithNetwork(rt http.RoundTripper) WorkerOption {
	return func(w *Worker) { w.next = rt }
}

func WithLogger(l *applog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// NewWorker creates a worker over store.
func NewWorker(store Store, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		cacheName: DefaultCacheName,
		seed:      DefaultSeed,
		next:      http.DefaultTransport,
		logger:    applog.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent(applog.ComponentOffline).With(applog.FieldCacheName, w.cacheName)
	return w
}

// CacheName returns the current generation name.
func (w *Worker) CacheName() string {
	return w.cacheName
}

// Install fetches every seed asset relative to baseURL and stores them in
// the current generation. Any failed fetch or non-2xx answer aborts the
// install and nothing is stored.
func (w *Worker) Install(ctx context.Context, baseURL string) error {
	base := strings.TrimRight(baseURL, "/")
	type fetched struct {
		key  string
		resp CachedResponse
	}
	assets := make([]fetched, 0, len(w.seed))

	for _, path := range w.seed {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		resp, err := w.next.RoundTrip(req)
		if err != nil {
			w.logger.Error("Install aborted", applog.FieldOperation, applog.OpInstall, applog.FieldPath, path, applog.FieldError, err)
			return fmt.Errorf("install %s: %w", path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("install %s: reading body: %w", path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			w.logger.Error("Install aborted", applog.FieldOperation, applog.OpInstall, applog.FieldPath, path, applog.FieldStatusCode, resp.StatusCode)
			return fmt.Errorf("install %s: status %d", path, resp.StatusCode)
		}
		assets = append(assets, fetched{key: RequestKey(req), resp: NewCachedResponse(resp, body, w.now())})
	}

	if err := w.store.Open(ctx, w.cacheName); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	for _, a := range assets {
		if err := w.store.Put(ctx, w.cacheName, a.key, a.resp); err != nil {
			return fmt.Errorf("install: %w", err)
		}
	}
	w.logger.Info("Cache installed", applog.FieldOperation, applog.OpInstall, "assets", len(assets))
	return nil
}

// Activate deletes every generation other than the current one and returns
// the names it removed.
func (w *Worker) Activate(ctx context.Context) ([]string, error) {
	names, err := w.store.Caches(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	var removed []string
	for _, name := range names {
		if name == w.cacheName {
			continue
		}
		if _, err := w.store.Delete(ctx, name); err != nil {
			return removed, fmt.Errorf("activate: %w", err)
		}
		removed = append(removed, name)
		w.logger.Info("Old cache deleted", applog.FieldOperation, applog.OpActivate, "deleted", name)
	}
	return removed, nil
}

// RoundTrip tries the network first. Every GET answer, whatever its status,
// replaces the cached copy for that request. Only when the network fails,
// including a GET body that cannot be read to the end, is the cache consulted; with no cached copy the request fails with an error
// wrapping both ErrNoMatch and the network error.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, netErr := w.next.RoundTrip(req)
	if netErr == nil {
		if req.Method != http.MethodGet {
			return resp, nil
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err == nil {
			resp.Body = io.NopCloser(bytes.NewReader(body))
			if err := w.store.Put(ctx, w.cacheName, RequestKey(req), NewCachedResponse(resp, body, w.now())); err != nil {
				w.logger.Warn("Cache write failed", applog.FieldPath, req.URL.Path, applog.FieldError, err)
			}
			return resp, nil
		}
		// A body cut short counts as a network failure.
		w.logger.Debug("Response body read failed", applog.FieldPath, req.URL.Path, applog.FieldError, err)
		netErr = err
	}

	cached, err := w.store.Match(ctx, w.cacheName, RequestKey(req))
	if err != nil {
		if !errors.Is(err, ErrNoMatch) {
			w.logger.Warn("Cache read failed", applog.FieldPath, req.URL.Path, applog.FieldError, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNoMatch, netErr)
	}
	w.logger.Debug("Served from cache", applog.FieldMethod, req.Method, applog.FieldPath, req.URL.Path)
	return cached.HTTPResponse(req), nil
}
