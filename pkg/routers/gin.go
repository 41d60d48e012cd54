package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Gin registers routes on a gin.Engine.
type Gin struct {
	autoroute.Table
	registrar
	engine *gin.Engine
}

// NewGin returns a Gin backend with a bare gin.Engine. Add gin middleware
// through Engine before building.
func NewGin() *Gin {
	return &Gin{engine: gin.New()}
}

// Engine returns the underlying gin.Engine.
func (g *Gin) Engine() *gin.Engine { return g.engine }

// Handle implements autoroute.Router.
func (g *Gin) Handle(method, pattern string, h http.Handler) {
	g.Table.Handle(method, pattern, h)
	names := routepath.ParamNames(pattern)
	g.guard(method, pattern, func() {
		g.engine.Handle(method, pattern, func(c *gin.Context) {
			r := c.Request
			if len(names) > 0 {
				params := make(map[string]string, len(names))
				for _, n := range names {
					params[n] = c.Param(n)
				}
				r = autoroute.WithPathParams(r, params)
			}
			h.ServeHTTP(c.Writer, r)
		})
	})
}

func (g *Gin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.engine.ServeHTTP(w, r)
}
