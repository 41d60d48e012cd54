// Package errors provides coded, actionable errors for the autoroute CLI.
//
// Every error code maps to a category, a short message and, where one
// exists, a hint:
//   - A1xx: configuration (missing or invalid autoroute.toml, bad env vars)
//   - A2xx: build (discovery, loading, route conflicts, code generation)
//   - A3xx: serve (listener, router backend, upload store, shutdown)
//
// Classify maps errors returned by pkg/autoroute and pkg/source onto codes,
// so the CLI can print one consistent report:
//
//	_, err := ar.Build(dir)
//	if err != nil {
//	    errors.PrintError(os.Stderr, errors.Classify(err, "A202"))
//	}
//
//	// ERROR A203: Route conflict
//	//
//	//   autoroute: route /sub-path derived from 2 controllers (...)
//	//
//	//   Two controller files that are not extension variants of each
//	//   other map to the same route.
//	//
//	//   Hint: Rename or remove one of the files
package errors
