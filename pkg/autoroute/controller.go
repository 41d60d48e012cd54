package autoroute

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"sort"

	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Params holds the merged query, body and path parameters of a request.
type Params map[string]any

// Meta holds the request fields a caller allow-listed for controllers.
type Meta map[string]any

// Action handles one request. It runs on the request goroutine and may block;
// ctx is cancelled when the client goes away.
type Action func(ctx context.Context, params Params, meta Meta) (any, error)

// Controller exposes actions by name.
type Controller interface {
	Action(name string) (Action, bool)
}

// ControllerMap is a Controller backed by a map.
type ControllerMap map[string]Action

// Action implements Controller.
func (m ControllerMap) Action(name string) (Action, bool) {
	a, ok := m[name]
	return a, ok && a != nil
}

// Names returns the action names in m, sorted.
func (m ControllerMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ControllerFile describes a discovered controller file.
type ControllerFile struct {
	// Path is the absolute path of the file.
	Path string `json:"path"`

	// Base is the directory controllers were discovered under.
	Base string `json:"base"`

	// Rel is Path relative to Base, slash separated.
	Rel string `json:"rel"`

	// Dir is the directory containing the file.
	Dir string `json:"dir"`

	// Name is the file name without its extension.
	Name string `json:"name"`

	// Ext is the recognized extension, spelled as in the extension list.
	Ext string `json:"ext"`
}

// NewControllerFile describes file, found under base, given the recognized
// extensions.
func NewControllerFile(base, file string, exts []string) ControllerFile {
	rel, err := filepath.Rel(base, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	ext := routepath.Ext(file, exts)
	name := filepath.Base(file)
	return ControllerFile{
		Path: file,
		Base: base,
		Rel:  filepath.ToSlash(rel),
		Dir:  filepath.Dir(file),
		Name: name[:len(name)-len(ext)],
		Ext:  ext,
	}
}

// Key identifies the logical controller: Rel without its extension.
// Extension variants of one controller share a key.
func (f ControllerFile) Key() string {
	dir := path.Dir(f.Rel)
	if dir == "." {
		return f.Name
	}
	return dir + "/" + f.Name
}

// ControllerInfo pairs a controller file with its route.
type ControllerInfo struct {
	Path  string         `json:"path"`
	Route string         `json:"route"`
	File  ControllerFile `json:"file"`
}

func notImplemented(name string) Action {
	return func(context.Context, Params, Meta) (any, error) {
		return nil, Errorf(http.StatusNotImplemented, "action %q is not implemented", name)
	}
}
