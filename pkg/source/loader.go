package source

import (
	"context"
	"net/http"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

// Loader is an autoroute.Loader for source controllers that have not been
// compiled in. Every action it finds answers 501 Not Implemented.
type Loader struct {
	Actions autoroute.ActionsMap
}

// Load implements autoroute.Loader.
func (l Loader) Load(f autoroute.ControllerFile) (autoroute.Controller, error) {
	c, err := Scan(f, actionNames(l.Actions))
	if err != nil {
		return nil, err
	}

	controller := make(autoroute.ControllerMap, len(c.Actions))
	for _, a := range c.Actions {
		controller[a.Name] = stub(f.Rel, a.Func)
	}
	return controller, nil
}

func stub(rel, fn string) autoroute.Action {
	return func(context.Context, autoroute.Params, autoroute.Meta) (any, error) {
		return nil, autoroute.Errorf(http.StatusNotImplemented, "%s: %s is not compiled in; run autoroute gen", rel, fn)
	}
}

func actionNames(m autoroute.ActionsMap) []string {
	if m.Len() == 0 {
		m = autoroute.DefaultActions
	}
	entries := m.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Action
	}
	return names
}
