package http

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	applog "gestorebinder/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the store and every configured dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK
	probe := func(name string, p Pinger) {
		if err := p.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, applog.FieldError, err)
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			return
		}
		checks[name] = "ok"
	}
	probe("storage", s.store)
	for name, p := range s.ready {
		probe(name, p)
	}
	writeJSON(w, status, checks)
}

// shellHandler serves the embedded shell. index.html is served under both
// "/" and "/index.html" with a 200 so either can be cached for offline use.
func shellHandler(shell fs.FS) http.Handler {
	modTime := time.Now()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		data, err := fs.ReadFile(shell, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, name, modTime, bytes.NewReader(data))
	})
}
