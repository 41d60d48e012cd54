package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/internal/errors"
	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/source"
)

const actionSig = "(ctx context.Context, params autoroute.Params, meta autoroute.Meta) (any, error)"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func controllerSource(pkg string, funcs ...string) string {
	var b strings.Builder
	b.WriteString("package " + pkg + "\n\n")
	b.WriteString("import (\n\t\"context\"\n\n\t\"github.com/vango-dev/autoroute/pkg/autoroute\"\n)\n\n")
	for _, fn := range funcs {
		b.WriteString("func " + fn + actionSig + " { return nil, nil }\n\n")
	}
	return b.String()
}

// newProject writes a module with a config file and two controllers, and
// returns the config path.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/app\n\ngo 1.23\n")
	writeFile(t, filepath.Join(root, "controllers", "index.go"), controllerSource("controllers", "Read"))
	writeFile(t, filepath.Join(root, "controllers", "users.go"), controllerSource("controllers", "UsersRead", "UsersCreate"))

	path := filepath.Join(root, config.TOMLFileName)
	if err := config.New().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadProject(t *testing.T) {
	path := newProject(t)
	other := t.TempDir()
	t.Setenv("AUTOROUTE_SERVER_ADDR", ":9999")

	cfg, err := loadProject(&projectFlags{configPath: path, controllers: other, logLevel: "debug"})
	if err != nil {
		t.Fatalf("loadProject: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.ControllersPath() != other {
		t.Errorf("ControllersPath = %q, want %q", cfg.ControllersPath(), other)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadProjectInvalid(t *testing.T) {
	path := newProject(t)
	t.Setenv("AUTOROUTE_SERVER_ROUTER", "nope")

	_, err := loadProject(&projectFlags{configPath: path})
	if e := errors.FromError(err, ""); e == nil || e.Code != "A103" {
		t.Errorf("err = %v, want A103", err)
	}
}

func TestRoutesCommand(t *testing.T) {
	path := newProject(t)

	out, err := execute(t, "routes", "--config", path)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "METHOD") {
		t.Errorf("header = %q", lines[0])
	}
	if fields := strings.Fields(lines[2]); !reflect.DeepEqual(fields, []string{"GET", "/users/:id", "read", "users.go"}) {
		t.Errorf("row = %v", fields)
	}
}

func TestRoutesCommandJSON(t *testing.T) {
	path := newProject(t)

	out, err := execute(t, "routes", "--config", path, "--format", "json")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}

	var routes []autoroute.Route
	if err := json.Unmarshal([]byte(out), &routes); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	var got []string
	for _, r := range routes {
		got = append(got, r.Method+" "+r.Pattern)
	}
	want := []string{"GET /users", "GET /users/:id", "POST /users", "GET /"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("routes = %v, want %v", got, want)
	}
}

func TestWriteRoutesEmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeRoutes(&buf, nil, "json"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
	if err := writeRoutes(&buf, nil, "yaml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestGenCommand(t *testing.T) {
	path := newProject(t)
	generated := filepath.Join(filepath.Dir(path), "controllers", source.GeneratedFile)

	if _, err := execute(t, "gen", "--config", path, "--check"); err == nil {
		t.Error("--check passed before the file was generated")
	}

	if _, err := execute(t, "gen", "--config", path); err != nil {
		t.Fatalf("gen: %v", err)
	}
	code, err := os.ReadFile(generated)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"package controllers",
		`autoroute.Register("users", autoroute.ControllerMap{`,
		`"create": UsersCreate,`,
	} {
		if !strings.Contains(string(code), want) {
			t.Errorf("generated code missing %q:\n%s", want, code)
		}
	}

	if _, err := execute(t, "gen", "--config", path, "--check"); err != nil {
		t.Errorf("--check after gen: %v", err)
	}

	writeFile(t, filepath.Join(filepath.Dir(generated), "posts.go"), controllerSource("controllers", "PostsRead"))
	if _, err := execute(t, "gen", "--config", path, "--check"); err == nil {
		t.Error("--check passed with a new controller")
	}
}

// startGenWatch runs watchGen for the project at path until the test ends
// and returns the controllers directory and the generated file.
func startGenWatch(t *testing.T, path string) (string, string, func() error) {
	t.Helper()
	cfg, err := loadProject(&projectFlags{configPath: path})
	if err != nil {
		t.Fatal(err)
	}
	base := cfg.ControllersPath()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchGen(ctx, cfg, "", io.Discard) }()
	t.Cleanup(cancel)

	// Give the watcher time to take its initial snapshot.
	time.Sleep(100 * time.Millisecond)

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(time.Second):
			t.Error("watchGen did not return after cancel")
			return nil
		}
	}
	return base, filepath.Join(base, source.GeneratedFile), stop
}

func waitGenerated(t *testing.T, generated, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		code, _ := os.ReadFile(generated)
		if strings.Contains(string(code), want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("generated file never contained %q:\n%s", want, code)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestGenWatch(t *testing.T) {
	base, generated, stop := startGenWatch(t, newProject(t))

	writeFile(t, filepath.Join(base, "posts.go"), controllerSource("controllers", "PostsRead"))
	waitGenerated(t, generated, "PostsRead")

	if err := stop(); err != nil {
		t.Errorf("watchGen: %v", err)
	}
}

func TestGenWatchSurvivesBrokenController(t *testing.T) {
	base, generated, stop := startGenWatch(t, newProject(t))
	posts := filepath.Join(base, "posts.go")

	writeFile(t, posts, "package controllers\n\nfunc (\n")
	// Several polls pass with the broken file in place.
	time.Sleep(600 * time.Millisecond)
	if code, _ := os.ReadFile(generated); strings.Contains(string(code), "Posts") {
		t.Fatalf("generated file written from a broken controller:\n%s", code)
	}

	writeFile(t, posts, controllerSource("controllers", "PostsRead"))
	waitGenerated(t, generated, "PostsRead")

	if err := stop(); err != nil {
		t.Errorf("watchGen: %v", err)
	}
}

func TestGenWatchRejectsCheck(t *testing.T) {
	path := newProject(t)
	if _, err := execute(t, "gen", "--config", path, "--watch", "--check"); err == nil {
		t.Error("--watch --check should fail")
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "init", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Router != config.DefaultRouter {
		t.Errorf("Router = %q", cfg.Server.Router)
	}
	if fi, err := os.Stat(filepath.Join(dir, config.DefaultControllers)); err != nil || !fi.IsDir() {
		t.Errorf("controllers directory not created: %v", err)
	}

	if _, err := execute(t, "init", dir); err == nil {
		t.Error("init overwrote an existing config without --force")
	}
	if _, err := execute(t, "init", dir, "--force", "--format", "json"); err != nil {
		t.Errorf("init --force: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.JSONFileName)); err != nil {
		t.Errorf("json config not written: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func testApp(t *testing.T, mutate func(cfg *config.Config)) *app {
	t.Helper()
	cfg, err := config.LoadFile(newProject(t))
	if err != nil {
		t.Fatal(err)
	}
	mutate(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func TestServeHandler(t *testing.T) {
	for _, router := range []string{"chi", "mux", "httprouter", "gin", "servemux"} {
		t.Run(router, func(t *testing.T) {
			a := testApp(t, func(cfg *config.Config) {
				cfg.Server.Router = router
				cfg.Metrics.Enabled = true
			})
			if a.routes != 4 {
				t.Errorf("routes = %d, want 4", a.routes)
			}

			tests := []struct {
				method string
				path   string
				status int
			}{
				{http.MethodGet, "/users/42", http.StatusNotImplemented},
				{http.MethodPost, "/users", http.StatusNotImplemented},
				{http.MethodGet, "/", http.StatusNotImplemented},
				{http.MethodGet, "/missing", http.StatusNotFound},
				{http.MethodGet, "/metrics", http.StatusOK},
			}
			for _, tt := range tests {
				rec := httptest.NewRecorder()
				a.handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
				if rec.Code != tt.status {
					t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
				}
				if tt.path == "/metrics" && !strings.Contains(rec.Body.String(), "autoroute_requests_total") {
					t.Errorf("metrics missing request counter:\n%s", rec.Body.String())
				}
			}
		})
	}
}

func TestServeInspector(t *testing.T) {
	a := testApp(t, func(cfg *config.Config) {
		cfg.Inspect.Enabled = true
	})
	if a.hub == nil {
		t.Fatal("hub not created")
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.DefaultInspectPath, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("plain GET on inspector = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeDiskUploads(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, func(cfg *config.Config) {
		cfg.Upload.Store = "disk"
		cfg.Upload.Dir = dir
	})
	if a.uploads == nil {
		t.Fatal("upload store not created")
	}
}

func TestServeUnknownRouter(t *testing.T) {
	cfg := config.New()
	cfg.Server.Router = "nope"

	_, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	if e := errors.FromError(err, ""); e == nil || e.Code != "A302" {
		t.Errorf("err = %v, want A302", err)
	}
}
