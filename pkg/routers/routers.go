package routers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// ByName returns the factory for a backend name: "chi", "mux",
// "httprouter", "gin" or "servemux".
func ByName(name string) (func() autoroute.Router, error) {
	switch name {
	case "", "chi":
		return func() autoroute.Router { return NewChi() }, nil
	case "mux", "gorilla":
		return func() autoroute.Router { return NewMux() }, nil
	case "httprouter":
		return func() autoroute.Router { return NewHTTPRouter() }, nil
	case "gin":
		return func() autoroute.Router { return NewGin() }, nil
	case "servemux", "std":
		return func() autoroute.Router { return NewServeMux() }, nil
	}
	return nil, fmt.Errorf("routers: unknown router %q", name)
}

// Names lists the backend names accepted by ByName.
var Names = []string{"chi", "mux", "httprouter", "gin", "servemux"}

// braces converts ":name" parameters to "{name}".
func braces(pattern string) string {
	return routepath.Convert(pattern, func(name string) string { return "{" + name + "}" })
}

// withParams attaches the values returned by lookup to the request.
func withParams(h http.Handler, names []string, lookup func(r *http.Request, name string) string) http.Handler {
	if len(names) == 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string, len(names))
		for _, n := range names {
			params[n] = lookup(r, n)
		}
		h.ServeHTTP(w, autoroute.WithPathParams(r, params))
	})
}

// registrar turns panics from an underlying router into an error reported
// by Err. Only the first failure is kept.
type registrar struct {
	mu  sync.Mutex
	err error
}

func (g *registrar) guard(method, pattern string, register func()) {
	defer func() {
		if v := recover(); v != nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = fmt.Errorf("%w: %s %s: %v", autoroute.ErrRouteConflict, method, pattern, v)
			}
			g.mu.Unlock()
		}
	}()
	register()
}

// Err returns the first pattern the underlying router rejected.
func (g *registrar) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
