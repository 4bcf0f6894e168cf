package session

import (
	"strconv"
	"strings"
	"sync"
)

// LoginPath is the only route reachable without a session.
const LoginPath = "/"

// RouteKind is the page a location resolves to.
type RouteKind int

const (
	RouteNotFound RouteKind = iota
	RouteLogin
	RouteDashboard
	RouteBinder
	RouteCategory
)

// Route is a parsed location.
type Route struct {
	Kind RouteKind
	ID   int64
}

// Protected reports whether the route requires authentication.
func (r Route) Protected() bool {
	switch r.Kind {
	case RouteDashboard, RouteBinder, RouteCategory:
		return true
	}
	return false
}

// ParseRoute resolves /, /dashboard, /binder/:id and /category/:id.
func ParseRoute(location string) Route {
	path := strings.TrimSuffix(location, "/")
	if path == "" {
		return Route{Kind: RouteLogin}
	}
	if path == "/dashboard" {
		return Route{Kind: RouteDashboard}
	}
	for prefix, kind := range map[string]RouteKind{"/binder/": RouteBinder, "/category/": RouteCategory} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Route{Kind: RouteNotFound}
		}
		return Route{Kind: kind, ID: id}
	}
	return Route{Kind: RouteNotFound}
}

func DashboardPath() string        { return "/dashboard" }
func BinderPath(id int64) string   { return "/binder/" + strconv.FormatInt(id, 10) }
func CategoryPath(id int64) string { return "/category/" + strconv.FormatInt(id, 10) }

// Navigator owns the current location.
type Navigator interface {
	Location() string
	Navigate(location string)
}

// History is an in-memory Navigator that notifies on every change.
type History struct {
	mu        sync.Mutex
	location  string
	visited   []string
	listeners map[int]func(string)
	nextID    int
}

// NewHistory starts at location.
func NewHistory(location string) *History {
	return &History{location: location, visited: []string{location}, listeners: make(map[int]func(string))}
}

func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}

// Navigate moves to location; listeners run only when it changes.
func (h *History) Navigate(location string) {
	h.mu.Lock()
	if h.location == location {
		h.mu.Unlock()
		return
	}
	h.location = location
	h.visited = append(h.visited, location)
	listeners := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(location)
	}
}

// Visited returns every location navigated to, in order.
func (h *History) Visited() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.visited...)
}

// Subscribe calls fn after each location change.
func (h *History) Subscribe(fn func(string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Guard redirects to the login route whenever the session is not
// authenticated and the location is a protected route.
type Guard struct {
	session *Session
	nav     Navigator
}

func NewGuard(s *Session, nav Navigator) *Guard {
	return &Guard{session: s, nav: nav}
}

// Check evaluates the guard once. It returns false after redirecting.
func (g *Guard) Check() bool {
	loc := g.nav.Location()
	if !ParseRoute(loc).Protected() || loc == LoginPath {
		return true
	}
	if g.session.Authenticated() {
		return true
	}
	g.session.logger.Debug("Redirecting to login", "from", loc)
	g.nav.Navigate(LoginPath)
	return false
}

// Watch re-runs Check on every auth state change and, when nav is a
// *History, on every location change. The returned function stops it.
func (g *Guard) Watch() func() {
	stops := []func(){g.session.Subscribe(func(State) { g.Check() })}
	if h, ok := g.nav.(*History); ok {
		stops = append(stops, h.Subscribe(func(string) { g.Check() }))
	}
	g.Check()
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
