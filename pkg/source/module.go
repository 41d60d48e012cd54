package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoModule is returned when no go.mod encloses a directory.
var ErrNoModule = errors.New("source: go.mod not found")

// Module is the Go module enclosing a controllers directory.
type Module struct {
	Dir  string
	Path string
}

// FindModule walks up from dir to the nearest go.mod.
func FindModule(dir string) (Module, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, err
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			path, err := modulePath(data)
			if err != nil {
				return Module{}, fmt.Errorf("%s: %w", filepath.Join(dir, "go.mod"), err)
			}
			return Module{Dir: dir, Path: path}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Module{}, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Module{}, ErrNoModule
		}
		dir = parent
	}
}

// ImportPath returns the import path of the package in dir.
func (m Module) ImportPath(dir string) (string, error) {
	rel, err := filepath.Rel(m.Dir, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return m.Path, nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("source: %s is outside module %s", dir, m.Path)
	}
	return m.Path + "/" + rel, nil
}

func modulePath(gomod []byte) (string, error) {
	for _, line := range strings.Split(string(gomod), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			if i := strings.Index(rest, "//"); i >= 0 {
				rest = rest[:i]
			}
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	return "", errors.New("module declaration not found")
}
