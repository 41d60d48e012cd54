package routers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Mux registers routes on a gorilla/mux Router. gorilla/mux tries routes in
// registration order, so the specificity order decides which route wins.
type Mux struct {
	autoroute.Table
	router *mux.Router
}

// NewMux returns a Mux backend with a fresh mux.Router.
func NewMux() *Mux {
	return &Mux{router: mux.NewRouter()}
}

// Router returns the underlying mux.Router.
func (m *Mux) Router() *mux.Router { return m.router }

// Handle implements autoroute.Router.
func (m *Mux) Handle(method, pattern string, h http.Handler) {
	m.Table.Handle(method, pattern, h)
	wrapped := withParams(h, routepath.ParamNames(pattern), func(r *http.Request, name string) string {
		return mux.Vars(r)[name]
	})
	m.router.Handle(braces(pattern), wrapped).Methods(method)
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}
