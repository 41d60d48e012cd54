package autoroute

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Loader turns a discovered controller file into a Controller.
type Loader interface {
	Load(f ControllerFile) (Controller, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(f ControllerFile) (Controller, error)

// Load implements Loader.
func (fn LoaderFunc) Load(f ControllerFile) (Controller, error) { return fn(f) }

// Registry holds controllers compiled into the binary, keyed by
// ControllerFile.Key, e.g. "users/index" for controllers/users/index.go.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]Controller
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

// DefaultRegistry is the registry populated by generated code.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry under key.
func Register(key string, c Controller) {
	DefaultRegistry.Register(key, c)
}

// Register adds c under key. It panics if key is already taken or c is nil.
func (r *Registry) Register(key string, c Controller) {
	if c == nil {
		panic("autoroute: Register controller is nil")
	}
	key = strings.TrimPrefix(key, "/")

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.controllers[key]; dup {
		panic("autoroute: Register called twice for controller " + key)
	}
	r.controllers[key] = c
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.controllers))
	for k := range r.controllers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load implements Loader.
func (r *Registry) Load(f ControllerFile) (Controller, error) {
	r.mu.RLock()
	c, ok := r.controllers[f.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, f.Key())
	}
	return c, nil
}

// ExtensionLoader dispatches to a Loader by file extension. Keys are matched
// without regard to case.
type ExtensionLoader map[string]Loader

// Load implements Loader.
func (l ExtensionLoader) Load(f ControllerFile) (Controller, error) {
	for ext, loader := range l {
		if strings.EqualFold(ext, f.Ext) {
			return loader.Load(f)
		}
	}
	return nil, fmt.Errorf("autoroute: no loader for %q files", f.Ext)
}

// DefaultLoader serves ".go" files from DefaultRegistry and opens ".so"
// files as plugins.
func DefaultLoader() Loader {
	return ExtensionLoader{
		".go": DefaultRegistry,
		".so": PluginLoader{},
	}
}
