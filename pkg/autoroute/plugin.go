package autoroute

import (
	"fmt"
	"plugin"
)

// PluginSymbol is the symbol a controller plugin exports.
const PluginSymbol = "Controller"

// PluginLoader opens controller files built with -buildmode=plugin. The
// plugin must export a Controller variable, a pointer to one, or a func()
// returning one:
//
//	var Controller = autoroute.ControllerMap{"read": read}
type PluginLoader struct{}

// Load implements Loader.
func (PluginLoader) Load(f ControllerFile) (Controller, error) {
	p, err := plugin.Open(f.Path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, err
	}
	return controllerFromSymbol(sym)
}

func controllerFromSymbol(sym any) (Controller, error) {
	switch v := sym.(type) {
	case *ControllerMap:
		return *v, nil
	case *Controller:
		return *v, nil
	case func() Controller:
		return v(), nil
	case Controller:
		return v, nil
	}
	return nil, fmt.Errorf("autoroute: plugin symbol %s has type %T, want a Controller", PluginSymbol, sym)
}
