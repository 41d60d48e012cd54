package autoroute

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Autoroute builds routers of type R from controller directories. It is
// immutable after New and safe for concurrent use.
type Autoroute[R Router] struct {
	factory func() R
	actions ActionsMap
	scanner Scanner
	opts    options
}

// New returns an Autoroute creating routers with factory and binding actions
// with actions. An empty ActionsMap means DefaultActions.
func New[R Router](factory func() R, actions ActionsMap, opts ...Option) *Autoroute[R] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.errorHandler == nil {
		o.errorHandler = DefaultErrorHandler(o.logger)
	}
	if o.loader == nil {
		o.loader = DefaultLoader()
	}
	if o.uploadField == "" {
		o.uploadField = DefaultUploadField
	}
	if actions.Len() == 0 {
		actions = DefaultActions
	}

	return &Autoroute[R]{
		factory: factory,
		actions: actions,
		scanner: Scanner{Pattern: o.pattern, Ignore: o.ignore, Extensions: o.exts},
		opts:    o,
	}
}

// Actions returns the ActionsMap in use.
func (a *Autoroute[R]) Actions() ActionsMap { return a.actions }

// Extensions returns the recognized extensions, most preferred first.
func (a *Autoroute[R]) Extensions() []string {
	return append([]string(nil), a.opts.exts...)
}

// RouteFromPath returns the route of the controller file at filePath.
func (a *Autoroute[R]) RouteFromPath(basePath, filePath string) string {
	return routepath.FromFile(basePath, filePath, a.opts.exts)
}

// FindControllers returns the controller files under basePath, unordered.
func (a *Autoroute[R]) FindControllers(basePath string) ([]string, error) {
	return a.scanner.Find(basePath)
}

// Controllers discovers the controllers under basePath and returns one
// ControllerInfo per logical controller, most specific route first.
func (a *Autoroute[R]) Controllers(basePath string) ([]ControllerInfo, error) {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	files, err := a.FindControllers(base)
	if err != nil {
		return nil, err
	}

	unique := ResolveUnique(files, a.opts.exts)
	infos := make([]ControllerInfo, 0, len(unique))
	for _, p := range unique {
		infos = append(infos, ControllerInfo{
			Path:  p,
			Route: a.RouteFromPath(base, p),
			File:  NewControllerFile(base, p, a.opts.exts),
		})
	}

	if err := CheckConflicts(infos); err != nil {
		return nil, err
	}

	SortBySpecificity(infos)
	return infos, nil
}

// Build creates a router and registers every controller under basePath on
// it. metaList names the request fields passed to actions as meta.
//
// Build fails without returning a router if discovery, loading or conflict
// checking fails.
func (a *Autoroute[R]) Build(basePath string, metaList ...string) (R, error) {
	var zero R

	infos, err := a.Controllers(basePath)
	if err != nil {
		return zero, err
	}

	router := a.factory()
	total := 0
	for _, info := range infos {
		ctrl, err := a.opts.loader.Load(info.File)
		if err != nil {
			return zero, fmt.Errorf("%w: %s: %w", ErrLoad, info.Path, err)
		}
		n := a.registerController(router, info, ctrl, metaList)
		a.opts.logger.Debug("autoroute: controller registered",
			"route", info.Route, "file", info.File.Rel, "routes", n)
		total += n
	}

	if rr, ok := any(router).(registrationErrors); ok {
		if err := rr.Err(); err != nil {
			return zero, err
		}
	}

	a.opts.logger.Debug("autoroute: router built",
		"base", basePath, "controllers", len(infos), "routes", total)
	return router, nil
}

// registrationErrors is implemented by router backends whose underlying
// router rejects some patterns, e.g. by panicking on conflicting wildcards.
type registrationErrors interface {
	Err() error
}

// RegisterController registers the actions of controller on router under
// baseRoute and returns the number of routes added. Actions are visited in
// ActionsMap order; controller actions missing from the map are ignored.
func (a *Autoroute[R]) RegisterController(router Router, baseRoute string, controller Controller, metaList []string) int {
	return a.registerController(router, ControllerInfo{Route: baseRoute}, controller, metaList)
}

func (a *Autoroute[R]) registerController(router Router, info ControllerInfo, controller Controller, metaList []string) int {
	n := 0
	for _, av := range a.actions.entries {
		action, ok := controller.Action(av.Action)
		if !ok {
			continue
		}

		ar := ActionRoute{Route: info.Route, Action: av.Action, Verb: av.Verb, File: info.File}
		h := a.instrument(ar, a.newHandler(ar, action, metaList))

		for _, pattern := range Patterns(info.Route, av.Verb) {
			router.Handle(av.Verb.Method(), pattern, h)
			n++
		}
	}
	return n
}

// Patterns returns the patterns an action bound to verb is registered on:
// the base route, followed by the "/:id" route for singular verbs unless
// the base route is the root.
func Patterns(baseRoute string, verb Verb) []string {
	if verb.Singular() && !routepath.IsRoot(baseRoute) {
		return []string{baseRoute, routepath.WithID(baseRoute)}
	}
	return []string{baseRoute}
}

// Handler returns the request adapter for the named action of controller.
// If controller has no such action the handler answers 501.
func (a *Autoroute[R]) Handler(controller Controller, action string, metaList []string) http.Handler {
	verb, _ := a.actions.Verb(action)
	ar := ActionRoute{Action: action, Verb: verb}
	fn, ok := controller.Action(action)
	if !ok {
		fn = notImplemented(action)
	}
	return a.newHandler(ar, fn, metaList)
}

func (a *Autoroute[R]) newHandler(ar ActionRoute, action Action, metaList []string) *ActionHandler {
	return &ActionHandler{
		ActionRoute: ar,
		action:      action,
		metaList:    append([]string(nil), metaList...),
		opts:        &a.opts,
	}
}

func (a *Autoroute[R]) instrument(ar ActionRoute, h http.Handler) http.Handler {
	for i := len(a.opts.instruments) - 1; i >= 0; i-- {
		h = a.opts.instruments[i](ar, h)
	}
	return routeHandler{Handler: h, route: ar}
}
