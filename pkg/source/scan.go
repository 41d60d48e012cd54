package source

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"unicode"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

// ErrAmbiguousAction is returned when a file defines both spellings of an
// action function.
var ErrAmbiguousAction = errors.New("source: ambiguous action function")

// Action binds an action name to the Go function implementing it.
type Action struct {
	Name string `json:"name"`
	Func string `json:"func"`
}

// Controller is the result of scanning one source controller.
type Controller struct {
	File    autoroute.ControllerFile `json:"file"`
	Package string                   `json:"package"`
	Actions []Action                 `json:"actions"`
}

// Func returns the Go function implementing action, if any.
func (c *Controller) Func(action string) (string, bool) {
	for _, a := range c.Actions {
		if a.Name == action {
			return a.Func, true
		}
	}
	return "", false
}

// Scan parses f and finds the functions implementing the given actions, in
// the order of actions.
func Scan(f autoroute.ControllerFile, actions []string) (*Controller, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, f.Path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	funcs := make(map[string]bool)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || !fn.Name.IsExported() {
			continue
		}
		if isActionSignature(fn.Type) {
			funcs[fn.Name.Name] = true
		}
	}

	c := &Controller{File: f, Package: file.Name.Name}
	prefix := Pascal(f.Name)
	for _, action := range actions {
		short := Pascal(action)
		long := prefix + short
		switch {
		case funcs[short] && funcs[long]:
			return nil, fmt.Errorf("%w: %s defines both %s and %s", ErrAmbiguousAction, f.Rel, short, long)
		case funcs[long]:
			c.Actions = append(c.Actions, Action{Name: action, Func: long})
		case funcs[short]:
			c.Actions = append(c.Actions, Action{Name: action, Func: short})
		}
	}
	return c, nil
}

// isActionSignature reports whether ft takes three parameters and returns
// two results, the shape of autoroute.Action. Types are not resolved; the
// compiler checks them once the generated registration is built.
func isActionSignature(ft *ast.FuncType) bool {
	if ft.TypeParams != nil && ft.TypeParams.NumFields() > 0 {
		return false
	}
	return ft.Params.NumFields() == 3 && ft.Results.NumFields() == 2
}

// Pascal converts a file or action name to an exported Go identifier:
// "sub_path" and "sub-path" become "SubPath", "SubPath" is unchanged.
func Pascal(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// ScanAll scans the ".go" controllers among infos. Other extensions are
// skipped.
func ScanAll(infos []autoroute.ControllerInfo, actions autoroute.ActionsMap) ([]*Controller, error) {
	names := actionNames(actions)
	var out []*Controller
	for _, info := range infos {
		if !strings.EqualFold(info.File.Ext, ".go") {
			continue
		}
		c, err := Scan(info.File, names)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
