package routers

import (
	"net/http"
	"strings"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// ServeMux registers routes on a net/http ServeMux using method patterns
// such as "GET /users/{id}". The root route is registered as "/{$}" so it
// only matches "/".
type ServeMux struct {
	autoroute.Table
	registrar
	mux *http.ServeMux
}

// NewServeMux returns a ServeMux backend with a fresh http.ServeMux.
func NewServeMux() *ServeMux {
	return &ServeMux{mux: http.NewServeMux()}
}

// Handle implements autoroute.Router.
func (s *ServeMux) Handle(method, pattern string, h http.Handler) {
	s.Table.Handle(method, pattern, h)
	wrapped := withParams(h, routepath.ParamNames(pattern), func(r *http.Request, name string) string {
		return r.PathValue(name)
	})
	s.guard(method, pattern, func() {
		s.mux.Handle(method+" "+servePattern(pattern), wrapped)
	})
}

func servePattern(pattern string) string {
	p := braces(pattern)
	if strings.HasSuffix(p, "/") {
		return p + "{$}"
	}
	return p
}

func (s *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
