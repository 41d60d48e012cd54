package routers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// HTTPRouter registers routes on a julienschmidt/httprouter Router, which
// uses the ":name" syntax natively. httprouter does not allow a static
// segment next to a parameter at the same position; such routes are
// reported by Err.
type HTTPRouter struct {
	autoroute.Table
	registrar
	router *httprouter.Router
}

// NewHTTPRouter returns an HTTPRouter backend with a fresh router.
func NewHTTPRouter() *HTTPRouter {
	return &HTTPRouter{router: httprouter.New()}
}

// Router returns the underlying httprouter.Router.
func (hr *HTTPRouter) Router() *httprouter.Router { return hr.router }

// Handle implements autoroute.Router.
func (hr *HTTPRouter) Handle(method, pattern string, h http.Handler) {
	hr.Table.Handle(method, pattern, h)
	wrapped := withParams(h, routepath.ParamNames(pattern), func(r *http.Request, name string) string {
		return httprouter.ParamsFromContext(r.Context()).ByName(name)
	})
	hr.guard(method, pattern, func() {
		hr.router.Handler(method, pattern, wrapped)
	})
}

func (hr *HTTPRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hr.router.ServeHTTP(w, r)
}
