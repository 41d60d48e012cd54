// Package source reads Go source controllers without compiling them.
//
// A source controller is a .go file under the controllers directory whose
// exported functions implement actions:
//
//	// controllers/users.go
//	package controllers
//
//	func UsersRead(ctx context.Context, p autoroute.Params, m autoroute.Meta) (any, error)
//	func UsersCreate(ctx context.Context, p autoroute.Params, m autoroute.Meta) (any, error)
//
// The function for action "read" in users.go is named UsersRead, or Read
// when the file is the only controller in its package. Defining both is an
// error.
//
// Scan finds those functions with go/parser. Loader turns a scan into a
// controller whose actions answer 501 Not Implemented, which is enough to
// list and serve the route table before the controllers are compiled in.
// Generate writes autoroute_gen.go, which registers the real functions in
// autoroute.DefaultRegistry from an init function.
package source
