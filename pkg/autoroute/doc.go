// Package autoroute builds HTTP route tables from a directory of controller
// files.
//
// Every controller file under the base directory becomes a route derived from
// its path, and every action the controller exposes is registered under the
// HTTP verb the ActionsMap assigns to it:
//
//	controllers/
//	├── index.go              → /
//	├── test.go               → /test, /test/:id
//	└── subPath/
//	    └── subTest.go        → /sub-path/sub-test, /sub-path/sub-test/:id
//
// With DefaultActions a controller exposing read answers GET on both its
// collection route and the "/:id" route; create answers POST on the collection
// route only. The root controller never gets an "/:id" route.
//
// # Building
//
//	ar := autoroute.New(routers.NewChi, autoroute.DefaultActions,
//	    autoroute.WithIgnore("**/*_test.go"),
//	    autoroute.WithOnRequest(func(ctx context.Context, ev autoroute.RequestEvent) error {
//	        slog.Info("request", "url", ev.OriginalURL, "action", ev.Action)
//	        return nil
//	    }),
//	)
//	r, err := ar.Build("./controllers", "user")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", r)
//
// Build discovers the files, keeps one file per controller when several
// extension variants exist, translates each into a route, rejects routes
// claimed by more than one controller, orders the routes from most to least
// specific and registers them on a fresh router.
//
// # Controllers
//
// A controller is anything implementing Controller. ControllerMap covers the
// common case:
//
//	autoroute.Register("users", autoroute.ControllerMap{
//	    "read": func(ctx context.Context, p autoroute.Params, m autoroute.Meta) (any, error) {
//	        return findUser(ctx, p["id"])
//	    },
//	})
//
// Controllers are obtained from their files through a Loader. The default
// loader serves ".go" files from DefaultRegistry, populated by generated code
// (see "autoroute gen"), and opens ".so" files as Go plugins.
package autoroute
