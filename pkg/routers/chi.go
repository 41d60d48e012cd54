package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Chi registers routes on a chi.Mux.
type Chi struct {
	autoroute.Table
	registrar
	mux *chi.Mux
}

// NewChi returns a Chi backend with a fresh chi.Mux.
func NewChi() *Chi {
	return &Chi{mux: chi.NewRouter()}
}

// Use adds middleware. chi requires this before the first route is added.
func (c *Chi) Use(middlewares ...func(http.Handler) http.Handler) {
	c.mux.Use(middlewares...)
}

// Mux returns the underlying chi.Mux, e.g. to mount extra handlers.
func (c *Chi) Mux() *chi.Mux { return c.mux }

// Handle implements autoroute.Router.
func (c *Chi) Handle(method, pattern string, h http.Handler) {
	c.Table.Handle(method, pattern, h)
	wrapped := withParams(h, routepath.ParamNames(pattern), func(r *http.Request, name string) string {
		return chi.URLParam(r, name)
	})
	c.guard(method, pattern, func() {
		c.mux.Method(method, braces(pattern), wrapped)
	})
}

func (c *Chi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mux.ServeHTTP(w, r)
}
