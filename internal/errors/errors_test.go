package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/source"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", "A101", "Configuration file not found", CategoryConfig},
		{"build error", "A203", "Route conflict", CategoryBuild},
		{"serve error", "A302", "Unknown router backend", CategoryServe},
		{"unknown error code", "A999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewCopiesSuggestion(t *testing.T) {
	if got := New("A205").Suggestion; !strings.Contains(got, "autoroute gen") {
		t.Errorf("Suggestion = %q", got)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown format %q", "yaml")
	if err.Message != `unknown format "yaml"` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != `unknown format "yaml"` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestError_Error(t *testing.T) {
	err := New("A203")
	if got := err.Error(); got != "A203: Route conflict" {
		t.Errorf("Error() = %q", got)
	}

	err.Wrap(fmt.Errorf("/users"))
	if got := err.Error(); got != "A203: Route conflict: /users" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "users.go")
	content := "package controllers\n\nfunc UsersRead(\n\nfunc x() {}\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("A202").WithLocation(tmpFile, 3, 16)
	if err.Location == nil || err.Location.Line != 3 || err.Location.Column != 16 {
		t.Fatalf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestError_WithLocationFromError(t *testing.T) {
	err := New("A202").WithLocationFromError(fmt.Errorf("users.go:4:2: expected ')'"))
	if err.Location == nil || err.Location.File != "users.go" || err.Location.Line != 4 || err.Location.Column != 2 {
		t.Errorf("Location = %+v", err.Location)
	}

	plain := New("A202").WithLocationFromError(fmt.Errorf("no location here"))
	if plain.Location != nil {
		t.Errorf("Location = %+v, want nil", plain.Location)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := autoroute.ErrRouteConflict
	outer := New("A203").Wrap(inner)
	if !stderrors.Is(outer, autoroute.ErrRouteConflict) {
		t.Error("errors.Is should see the wrapped sentinel")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "A301") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	e := New("A203")
	if FromError(fmt.Errorf("context: %w", e), "A301") != e {
		t.Error("FromError should return a wrapped *Error as-is")
	}

	std := stderrors.New("boom")
	result := FromError(std, "A301")
	if result.Code != "A301" || result.Wrapped != std {
		t.Errorf("FromError(std) = %+v", result)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"conflict", &autoroute.ConflictError{Route: "/a", Files: []string{"a.go", "A.go"}}, "A203"},
		{"ambiguous inside load", fmt.Errorf("%w: x.go: %w", autoroute.ErrLoad, source.ErrAmbiguousAction), "A206"},
		{"not registered", fmt.Errorf("%w: x.go: %w", autoroute.ErrLoad, autoroute.ErrNotRegistered), "A205"},
		{"load", fmt.Errorf("%w: x.go: bad plugin", autoroute.ErrLoad), "A202"},
		{"discovery", fmt.Errorf("%w: /nope", autoroute.ErrDiscovery), "A201"},
		{"bad glob", fmt.Errorf("%w: %w", autoroute.ErrDiscovery, doublestarErr()), "A204"},
		{"no module", source.ErrNoModule, "A207"},
		{"fallback", stderrors.New("other"), "A301"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err, "A301"); got.Code != tt.want {
				t.Errorf("Classify code = %q, want %q", got.Code, tt.want)
			}
		})
	}

	if Classify(nil, "A301") != nil {
		t.Error("Classify(nil) should return nil")
	}
}

func TestClassifyConflictDetail(t *testing.T) {
	err := &autoroute.MultiConflictError{Conflicts: []*autoroute.ConflictError{
		{Route: "/sub-path", Files: []string{"/c/SubPath.go", "/c/sub_path.go"}},
		{Route: "/users", Files: []string{"/c/_/users.go", "/c/users.go"}},
	}}

	e := Classify(err, "A202")
	if e.Code != "A203" {
		t.Fatalf("Code = %q, want A203", e.Code)
	}
	want := "route /sub-path is derived from 2 controllers\n" +
		"  /c/SubPath.go → /sub-path\n" +
		"  /c/sub_path.go → /sub-path\n" +
		"route /users is derived from 2 controllers\n" +
		"  /c/_/users.go → /users\n" +
		"  /c/users.go → /users"
	if e.Detail != want {
		t.Errorf("Detail =\n%s\nwant\n%s", e.Detail, want)
	}

	DisableColors()
	defer EnableColors()
	if out := e.Format(); !strings.Contains(out, "  /c/users.go → /users") {
		t.Errorf("Format lost the conflict listing:\n%s", out)
	}

	single := Classify(err.Conflicts[0], "A202")
	if !strings.HasPrefix(single.Detail, "route /sub-path is derived from 2 controllers") {
		t.Errorf("single conflict Detail = %q", single.Detail)
	}
}

func doublestarErr() error {
	s := autoroute.Scanner{Pattern: "[", Extensions: autoroute.DefaultExtensions}
	return s.Validate()
}

func TestClassifyLoadLocation(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "broken.go")
	if err := os.WriteFile(path, []byte("package controllers\n\nfunc (\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ar := autoroute.New(autoroute.NewTable, autoroute.DefaultActions, autoroute.WithLoader(source.Loader{}))
	_, err := ar.Build(base)
	if err == nil {
		t.Fatal("Build succeeded on invalid source")
	}

	e := Classify(err, "A301")
	if e.Code != "A202" {
		t.Fatalf("Code = %q, want A202", e.Code)
	}
	if e.Location == nil || e.Location.File != path {
		t.Errorf("Location = %+v, want file %s", e.Location, path)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"with column", &Location{File: "test.go", Line: 10, Column: 5}, "test.go:10:5"},
		{"without column", &Location{File: "test.go", Line: 10}, "test.go:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tmpFile := filepath.Join(t.TempDir(), "users.go")
	content := "package controllers\n\nfunc UsersRead(\n}\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("A202").
		WithLocation(tmpFile, 3, 16).
		WithSuggestion("Fix the syntax error").
		Wrap(stderrors.New("expected ')'"))

	formatted := err.Format()
	for _, want := range []string{"A202", "Controller could not be loaded", tmpFile, "expected ')'", "Hint: Fix the syntax error", "→"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("A203").WithLocation("test.go", 10, 5)
	want := "test.go:10:5: A203: Route conflict"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("A203").WithLocation("test.go", 10, 5).Wrap(stderrors.New("/users"))

	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("FormatJSON is not valid JSON: %v", e)
	}
	if got["code"] != "A203" || got["category"] != "build" || got["cause"] != "/users" {
		t.Errorf("FormatJSON = %v", got)
	}
	if _, ok := got["location"].(map[string]any); !ok {
		t.Errorf("location missing: %v", got)
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("build: %w", New("A203")))
	if !strings.Contains(buf.String(), "ERROR A203: Route conflict") {
		t.Errorf("PrintError(coded) = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("PrintError(plain) = %q", buf.String())
	}
}

func TestRegistryCodes(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, _ := GetTemplate(code)
		var want Category
		switch code[1] {
		case '1':
			want = CategoryConfig
		case '2':
			want = CategoryBuild
		case '3':
			want = CategoryServe
		}
		if tmpl.Category != want {
			t.Errorf("%s category = %q, want %q", code, tmpl.Category, want)
		}
		if tmpl.Message == "" {
			t.Errorf("%s has no message", code)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("A999", ErrorTemplate{Category: CategoryCLI, Message: "Custom test error"})
	defer delete(registry, "A999")

	if err := New("A999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}
	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}
	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
	if got := wrapText("first\n  second", 40); !reflect.DeepEqual(got, []string{"first", "  second"}) {
		t.Errorf("wrapText with line breaks: got %q", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
