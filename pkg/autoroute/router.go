package autoroute

import (
	"context"
	"net/http"
	"sync"
)

// Router receives the routes built by Autoroute. Patterns use ":name" for
// path parameters; backends translate them into their own syntax and make the
// matched values available through WithPathParams.
type Router interface {
	http.Handler
	Handle(method, pattern string, h http.Handler)
}

// RouteLister is implemented by routers that record what was registered.
type RouteLister interface {
	Routes() []Route
}

// Route is one registered (method, pattern) pair.
type Route struct {
	Method     string       `json:"method"`
	Pattern    string       `json:"pattern"`
	Action     string       `json:"action,omitempty"`
	Controller string       `json:"controller,omitempty"`
	Handler    http.Handler `json:"-"`
}

// Table records routes in registration order. It does not match requests;
// ServeHTTP always answers 404. Router backends embed it to implement
// RouteLister.
type Table struct {
	mu     sync.RWMutex
	routes []Route
}

// NewTable returns an empty Table.
func NewTable() *Table { return &Table{} }

// Handle records a route.
func (t *Table) Handle(method, pattern string, h http.Handler) {
	route := Route{Method: method, Pattern: pattern, Handler: h}
	if d, ok := h.(describer); ok {
		ar := d.ActionRoute()
		route.Action = ar.Action
		route.Controller = ar.File.Rel
	}

	t.mu.Lock()
	t.routes = append(t.routes, route)
	t.mu.Unlock()
}

// Routes returns the recorded routes in registration order.
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

type pathParamsKey struct{}

// WithPathParams returns r with params attached as its path parameters.
func WithPathParams(r *http.Request, params map[string]string) *http.Request {
	if len(params) == 0 {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), pathParamsKey{}, params))
}

// PathParams returns the path parameters attached by the router backend.
func PathParams(ctx context.Context) map[string]string {
	p, _ := ctx.Value(pathParamsKey{}).(map[string]string)
	return p
}
