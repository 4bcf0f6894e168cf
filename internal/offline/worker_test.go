package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchableTransport forwards to the default transport until turned off.
// With reset set, answers arrive but their bodies break after a few bytes.
type switchableTransport struct {
	offline atomic.Bool
	reset   atomic.Bool
}

func (s *switchableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.offline.Load() {
		return nil, errors.New("network unreachable")
	}
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil || !s.reset.Load() {
		return resp, err
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(io.MultiReader(strings.NewReader(`[{"id"`), resetReader{}))
	return resp, nil
}

type resetReader struct{}

func (resetReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func shellServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "root") })
	mux.HandleFunc("GET /index.html", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "<html>") })
	mux.HandleFunc("GET /manifest.json", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "{}") })
	mux.HandleFunc("GET /api/binders", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"name":"Casa"}]`)
	})
	mux.HandleFunc("GET /api/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"nope"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestInstallSeedsCurrentGeneration(t *testing.T) {
	srv := shellServer(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			w := NewWorker(store)
			require.NoError(t, w.Install(ctx, srv.URL))

			keys, err := store.Keys(ctx, DefaultCacheName)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{
				"GET " + srv.URL + "/",
				"GET " + srv.URL + "/index.html",
				"GET " + srv.URL + "/manifest.json",
			}, keys)
		})
	}
}

func TestInstallAbortsOnMissingSeed(t *testing.T) {
	srv := shellServer(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			w := NewWorker(store, WithCacheName("gestore-binder-v2"), WithSeed("/", "/icon.png"))
			require.Error(t, w.Install(ctx, srv.URL))

			caches, err := store.Caches(ctx)
			require.NoError(t, err)
			assert.NotContains(t, caches, "gestore-binder-v2")
		})
	}
}

func TestActivateKeepsOnlyCurrentGeneration(t *testing.T) {
	srv := shellServer(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, NewWorker(store).Install(ctx, srv.URL))
			require.NoError(t, store.Open(ctx, "scratch"))

			next := NewWorker(store, WithCacheName("gestore-binder-v2"))
			require.NoError(t, next.Install(ctx, srv.URL))
			removed, err := next.Activate(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{DefaultCacheName, "scratch"}, removed)

			caches, err := store.Caches(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"gestore-binder-v2"}, caches)

			_, err = store.Match(ctx, DefaultCacheName, "GET "+srv.URL+"/")
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestNetworkFirstFallsBackOnlyOnNetworkFailure(t *testing.T) {
	srv := shellServer(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			net := &switchableTransport{}
			client := &http.Client{Transport: NewWorker(store, WithNetwork(net))}

			resp, err := client.Get(srv.URL + "/api/binders")
			require.NoError(t, err)
			live, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			resp, err = client.Get(srv.URL + "/api/missing")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, "http errors pass through")

			net.offline.Store(true)

			resp, err = client.Get(srv.URL + "/api/binders")
			require.NoError(t, err)
			cached, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, live, cached)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			resp, err = client.Get(srv.URL + "/api/missing")
			require.NoError(t, err, "non-2xx responses are cached too")
			resp.Body.Close()
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			_, err = client.Get(srv.URL + "/api/never")
			assert.ErrorIs(t, err, ErrNoMatch)

			_, err = client.Post(srv.URL+"/api/binders", "application/json", nil)
			assert.Error(t, err, "writes are never served from cache")
		})
	}
}

func TestBrokenBodyFallsBackToCache(t *testing.T) {
	srv := shellServer(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			net := &switchableTransport{}
			client := &http.Client{Transport: NewWorker(store, WithNetwork(net))}

			resp, err := client.Get(srv.URL + "/api/binders")
			require.NoError(t, err)
			live, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			net.reset.Store(true)
			resp, err = client.Get(srv.URL + "/api/binders")
			require.NoError(t, err)
			cached, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, live, cached)

			_, err = client.Get(srv.URL + "/index.html")
			require.ErrorIs(t, err, ErrNoMatch)
			assert.Contains(t, err.Error(), "connection reset")
		})
	}
}

type recordingDisplay struct {
	shown     []PushNotification
	dismissed []string
}

func (d *recordingDisplay) Show(_ context.Context, n PushNotification) error {
	d.shown = append(d.shown, n)
	return nil
}

func (d *recordingDisplay) Dismiss(_ context.Context, id string) error {
	d.dismissed = append(d.dismissed, id)
	return nil
}

type recordingOpener struct{ opened []string }

func (o *recordingOpener) Open(_ context.Context, url string) error {
	o.opened = append(o.opened, url)
	return nil
}

func TestPushAndClick(t *testing.T) {
	ctx := context.Background()
	display := &recordingDisplay{}
	opener := &recordingOpener{}
	h := NewPushHandler(display, opener, nil)

	n, err := h.HandlePush(ctx, []byte("Transazione creata"))
	require.NoError(t, err)
	require.Len(t, display.shown, 1, "notification is shown before HandlePush returns")
	assert.Equal(t, NotificationTitle, display.shown[0].Title)
	assert.Equal(t, "Transazione creata", display.shown[0].Body)
	assert.Equal(t, NotificationIcon, n.Icon)

	require.NoError(t, h.HandleClick(ctx, n))
	assert.Equal(t, []string{n.ID}, display.dismissed)
	assert.Equal(t, []string{RootURL}, opener.opened)
}
