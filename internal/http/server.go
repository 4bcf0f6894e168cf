// Package http is the reference REST backend: JSON endpoints for binders,
// categories and transactions behind a cookie session, plus the static shell.
package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"gestorebinder/internal/amqp"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/middleware/ratelimit"
	"gestorebinder/internal/middleware/security"
	"gestorebinder/internal/middleware/trace"
	"gestorebinder/internal/sessionstore"
	"gestorebinder/internal/storage"
)

// Publisher delivers push messages. The amqp client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.PushMessage) error
}

// Pinger is an optional readiness dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Store and JWTSecret are required.
type Options struct {
	Addr           string
	Store          storage.Store
	Sessions       sessionstore.Store
	Publisher      Publisher
	Shell          fs.FS
	JWTSecret      string
	SessionTTL     time.Duration
	SecureCookies  bool
	AllowedOrigins []string
	Logger         *applog.Logger
	// ReadyChecks are pinged by /readyz in addition to the store.
	ReadyChecks map[string]Pinger
}

// Server embeds http.Server and owns the middleware state that needs
// stopping.
type Server struct {
	http.Server
	store     storage.Store
	auth      *Authenticator
	publisher Publisher
	validate  *validator.Validate
	logger    *applog.Logger
	ready     map[string]Pinger

	limiter      *ratelimit.Limiter
	loginLimiter *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer wires the router.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("http: store is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("http: jwt secret is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = sessionstore.NewMemory()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		store:        opts.Store,
		auth:         newAuthenticator(opts.Store, opts.Sessions, opts.JWTSecret, opts.SessionTTL, opts.SecureCookies, logger),
		publisher:    opts.Publisher,
		validate:     validator.New(),
		logger:       logger,
		ready:        opts.ReadyChecks,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		loginLimiter: ratelimit.NewLimiter(ratelimit.LoginConfig()),
		detector:     security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.Addr = opts.Addr
	s.Handler = s.routes(opts)
	s.ReadHeaderTimeout = 5 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s, nil
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders:   []string{trace.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	limited := func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Troppe richieste, riprova più tardi")
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, limited))
		r.Use(middleware.Timeout(30 * time.Second))

		r.With(s.loginLimiter.Middleware(s.detector.ExtractClientIP, limited)).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireSession)

			r.Get("/binders", s.handleListBinders)
			r.Post("/binders", s.handleCreateBinder)
			r.Get("/binders/{id}", s.handleGetBinder)
			r.Put("/binders/{id}", s.handleUpdateBinder)
			r.Delete("/binders/{id}", s.handleDeleteBinder)
			r.Get("/binders/{id}/categories", s.handleListCategories)

			r.Post("/categories", s.handleCreateCategory)
			r.Get("/categories/{id}", s.handleGetCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
			r.Get("/categories/{id}/transactions", s.handleListTransactions)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "Risorsa non trovata")
		})
	})

	if opts.Shell != nil {
		r.Handle("/*", security.StaticAssetMiddleware(3600)(shellHandler(opts.Shell)))
	}
	return r
}

// Shutdown stops background middleware state and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.loginLimiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
