package source

import (
	"bytes"
	"fmt"
	"go/format"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// GeneratedFile is the name of the file written by Generate.
const GeneratedFile = "autoroute_gen.go"

const autorouteImport = "github.com/vango-dev/autoroute/pkg/autoroute"

// Generator writes the registration file for a controllers directory.
type Generator struct {
	// Base is the controllers directory; the generated file belongs to its
	// package.
	Base string

	// Module encloses Base.
	Module Module
}

// NewGenerator returns a Generator for base inside module.
func NewGenerator(base string, module Module) *Generator {
	return &Generator{Base: base, Module: module}
}

type genImport struct {
	alias string
	path  string
}

type genEntry struct {
	key     string
	qual    string
	actions []Action
}

// Generate returns the formatted source of the registration file for
// controllers.
func (g *Generator) Generate(controllers []*Controller) ([]byte, error) {
	base, err := filepath.Abs(g.Base)
	if err != nil {
		return nil, err
	}

	pkgName, err := basePackage(base, controllers)
	if err != nil {
		return nil, err
	}

	imports := make(map[string]*genImport)
	aliases := map[string]bool{"autoroute": true}
	packages := make(map[string]string)
	funcs := make(map[string]string)
	var entries []genEntry

	for _, c := range controllers {
		dir := filepath.Clean(c.File.Dir)

		if prev, ok := packages[dir]; ok && prev != c.Package {
			return nil, fmt.Errorf("source: %s: package %s, want %s", c.File.Rel, c.Package, prev)
		}
		packages[dir] = c.Package

		for _, a := range c.Actions {
			id := dir + "." + a.Func
			if prev, ok := funcs[id]; ok {
				return nil, fmt.Errorf("source: %s and %s both define %s; prefix it with the controller name", prev, c.File.Rel, a.Func)
			}
			funcs[id] = c.File.Rel
		}

		entry := genEntry{key: c.File.Key(), actions: c.Actions}
		if dir != base {
			imp, ok := imports[dir]
			if !ok {
				path, err := g.Module.ImportPath(dir)
				if err != nil {
					return nil, err
				}
				imp = &genImport{alias: uniqueAlias(c.Package, aliases), path: path}
				imports[dir] = imp
			}
			entry.qual = imp.alias + "."
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	var code bytes.Buffer
	code.WriteString("// Code generated by autoroute gen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&code, "package %s\n\n", pkgName)

	code.WriteString("import (\n")
	fmt.Fprintf(&code, "\t%s\n", strconv.Quote(autorouteImport))
	if len(imports) > 0 {
		sorted := make([]*genImport, 0, len(imports))
		for _, imp := range imports {
			sorted = append(sorted, imp)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

		code.WriteString("\n")
		for _, imp := range sorted {
			fmt.Fprintf(&code, "\t%s %s\n", imp.alias, strconv.Quote(imp.path))
		}
	}
	code.WriteString(")\n\n")

	code.WriteString("func init() {\n")
	for _, e := range entries {
		fmt.Fprintf(&code, "\tautoroute.Register(%s, autoroute.ControllerMap{\n", strconv.Quote(e.key))
		for _, a := range e.actions {
			fmt.Fprintf(&code, "\t\t%s: %s%s,\n", strconv.Quote(a.Name), e.qual, a.Func)
		}
		code.WriteString("\t})\n")
	}
	code.WriteString("}\n")

	out, err := format.Source(code.Bytes())
	if err != nil {
		return nil, fmt.Errorf("source: format generated code: %w", err)
	}
	return out, nil
}

// basePackage returns the package name of the controllers directory itself.
func basePackage(base string, controllers []*Controller) (string, error) {
	name := ""
	for _, c := range controllers {
		if filepath.Clean(c.File.Dir) != base {
			continue
		}
		if name != "" && name != c.Package {
			return "", fmt.Errorf("source: %s: package %s, want %s", c.File.Rel, c.Package, name)
		}
		name = c.Package
	}
	if name != "" {
		return name, nil
	}
	return identifier(filepath.Base(base)), nil
}

func uniqueAlias(name string, taken map[string]bool) string {
	alias := name
	for i := 2; taken[alias]; i++ {
		alias = name + strconv.Itoa(i)
	}
	taken[alias] = true
	return alias
}

func identifier(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r == '_' || r >= '0' && r <= '9' && b.Len() > 0 {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "controllers"
	}
	return b.String()
}
