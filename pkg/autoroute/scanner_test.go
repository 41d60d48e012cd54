package autoroute

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"
)

func relPaths(t *testing.T, base string, files []string) []string {
	t.Helper()
	root, err := filepath.Abs(base)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	sort.Strings(out)
	return out
}

func TestScannerFindHonorsIgnore(t *testing.T) {
	dir := writeTree(t,
		"index.js",
		"test.js",
		"subPath/subTest.js",
		"subPath/subTest.spec.js",
	)

	s := &Scanner{Ignore: []string{"**/*.spec.js"}, Extensions: []string{".js"}}
	files, err := s.Find(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := relPaths(t, dir, files)
	want := []string{"index.js", "subPath/subTest.js", "test.js"}
	if len(got) != len(want) {
		t.Fatalf("Find = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Find[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScannerSkipsHiddenAndUnrecognized(t *testing.T) {
	dir := writeTree(t,
		"users.go",
		".hidden.go",
		".git/objects.go",
		"nested/.cache/x.go",
		"README.md",
		"lib.so",
	)

	s := &Scanner{Extensions: DefaultExtensions}
	files, err := s.Find(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := relPaths(t, dir, files)
	want := []string{"lib.so", "users.go"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Find = %v, want %v", got, want)
	}
}

func TestScannerPattern(t *testing.T) {
	dir := writeTree(t, "api/users.go", "api/v1/orders.go", "web/home.go")

	s := &Scanner{Pattern: "api/**/*.go", Extensions: DefaultExtensions}
	files, err := s.Find(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := relPaths(t, dir, files)
	if len(got) != 2 || got[0] != "api/users.go" || got[1] != "api/v1/orders.go" {
		t.Errorf("Find = %v", got)
	}
}

func TestScannerInvalidGlob(t *testing.T) {
	s := &Scanner{Ignore: []string{"[unclosed"}, Extensions: DefaultExtensions}
	if _, err := s.Find(t.TempDir()); err == nil {
		t.Fatal("expected error for invalid glob")
	}
}

func TestScannerMissingDir(t *testing.T) {
	s := &Scanner{Extensions: DefaultExtensions}
	_, err := s.Find(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrDiscovery) {
		t.Fatalf("got %v, want ErrDiscovery", err)
	}
}
