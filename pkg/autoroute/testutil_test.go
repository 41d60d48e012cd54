package autoroute

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fullController exposes every default action plus a helper that is not an
// action.
func fullController() ControllerMap {
	c := ControllerMap{
		"helper": func(context.Context, Params, Meta) (any, error) { return "helper", nil },
	}
	for _, av := range DefaultActions.Entries() {
		name := av.Action
		c[name] = func(context.Context, Params, Meta) (any, error) { return name, nil }
	}
	return c
}

// writeTree creates empty files at the given slash-separated paths under a
// temp dir and returns the dir.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("package controllers\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func routeStrings(routes []Route) []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.Method + " " + r.Pattern
	}
	return out
}
