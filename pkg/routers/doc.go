// Package routers adapts third-party HTTP routers to autoroute.Router.
//
// Every backend records the routes it receives, so all of them implement
// autoroute.RouteLister, and translates ":name" patterns into its own
// syntax. Matched path parameters are attached to the request with
// autoroute.WithPathParams before the action handler runs.
//
//	ar := autoroute.New(routers.NewChi, autoroute.DefaultActions)
//	r, err := ar.Build("./controllers")
//
// Backends that match routes in registration order (Mux, ServeMux for equal
// precedence) rely on the specificity order autoroute registers in. Backends
// built on radix trees (Chi, HTTPRouter, Gin) are order independent but may
// reject patterns that collide; those rejections are reported by Err and
// make Build fail.
package routers
