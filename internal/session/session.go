// Package session holds the client's authentication state and the route
// guard that keeps unauthenticated users on the login route.
package session

import (
	"context"
	"sync"

	applog "gestorebinder/internal/log"
)

// State is the observable authentication state.
type State struct {
	Authenticated bool
	Loading       bool
}

// Authenticator is the backend side of the session.
type Authenticator interface {
	Probe(ctx context.Context) bool
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// Session is created at start-up, derived from a probe, and torn down on
// logout. It is injected where routing decisions are made.
type Session struct {
	mu        sync.Mutex
	auth      Authenticator
	state     State
	listeners map[int]func(State)
	nextID    int
	logger    *applog.Logger
}

// New creates a session in the loading state; call Start to resolve it.
func New(auth Authenticator, logger *applog.Logger) *Session {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Session{
		auth:      auth,
		state:     State{Loading: true},
		listeners: make(map[int]func(State)),
		logger:    logger.WithComponent(applog.ComponentSession),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated is shorthand for State().Authenticated.
func (s *Session) Authenticated() bool {
	return s.State().Authenticated
}

// Subscribe calls fn on every state change until the returned function is
// called.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func (s *Session) setLoading(loading bool) {
	st := s.State()
	st.Loading = loading
	s.set(st)
}

// Start runs the start-up probe: a successful read of a protected resource
// means authenticated, anything else does not.
func (s *Session) Start(ctx context.Context) State {
	ok := s.auth.Probe(ctx)
	s.logger.Debug("Session probed", applog.FieldOperation, applog.OpProbe, "authenticated", ok)
	s.set(State{Authenticated: ok})
	return s.State()
}

// Login authenticates. On failure the session is unauthenticated and the
// backend error (an *apiclient.AuthError for rejected credentials) is
// returned.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.setLoading(true)
	if err := s.auth.Login(ctx, username, password); err != nil {
		s.logger.Warn("Login failed", applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		s.set(State{})
		return err
	}
	s.logger.Info("Logged in", applog.FieldOperation, applog.OpLogin)
	s.set(State{Authenticated: true})
	return nil
}

// Logout ends the server session. Local state is cleared even when the call
// fails; the error is still returned.
func (s *Session) Logout(ctx context.Context) (err error) {
	s.setLoading(true)
	defer func() {
		s.set(State{})
		if err != nil {
			s.logger.Warn("Logout failed", applog.FieldOperation, applog.OpLogout, applog.FieldError, err)
		}
	}()
	return s.auth.Logout(ctx)
}
