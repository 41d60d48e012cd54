package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/vango-dev/autoroute/internal/errors"
	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/routers"
	"github.com/vango-dev/autoroute/pkg/source"
)

const (
	// TOMLFileName is the preferred configuration file name.
	TOMLFileName = "autoroute.toml"

	// JSONFileName is the alternative configuration file name.
	JSONFileName = "autoroute.json"

	// EnvPrefix prefixes environment overrides, e.g. AUTOROUTE_SERVER_ADDR.
	EnvPrefix = "AUTOROUTE"

	// DefaultControllers is the default controllers directory.
	DefaultControllers = "controllers"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":3000"

	// DefaultRouter is the default router backend.
	DefaultRouter = "chi"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = "15s"

	// DefaultMaxBodySize bounds request bodies.
	DefaultMaxBodySize = "10MB"

	// DefaultUploadDir is where the disk upload store keeps files.
	DefaultUploadDir = ".data/uploads"

	// DefaultMetricsPath serves Prometheus metrics.
	DefaultMetricsPath = "/metrics"

	// DefaultInspectPath serves the websocket inspector.
	DefaultInspectPath = "/_autoroute/inspect"
)

// DefaultIgnore keeps tests and generated registrations out of discovery.
var DefaultIgnore = []string{"**/*_test.go", "**/" + source.GeneratedFile}

// Config represents autoroute.toml or autoroute.json.
type Config struct {
	// Controllers configures discovery.
	Controllers ControllersConfig `json:"controllers" toml:"controllers"`

	// Actions lists "action=verb" pairs in registration order. Empty means
	// the default actions.
	Actions []string `json:"actions,omitempty" toml:"actions,omitempty"`

	// Meta lists the request fields passed to actions.
	Meta []string `json:"meta,omitempty" toml:"meta,omitempty"`

	// Server configures `autoroute serve`.
	Server ServerConfig `json:"server" toml:"server"`

	// Logging configures the slog handler.
	Logging LoggingConfig `json:"logging" toml:"logging"`

	// Upload configures request bodies and uploaded files.
	Upload UploadConfig `json:"upload" toml:"upload"`

	// Metrics configures Prometheus instrumentation.
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing" toml:"tracing"`

	// Inspect configures the websocket event stream.
	Inspect InspectConfig `json:"inspect" toml:"inspect"`

	configPath  string
	maxBodySize int64
}

// ControllersConfig contains discovery settings.
type ControllersConfig struct {
	// Dir is the controllers directory, relative to the config file.
	Dir string `json:"dir" toml:"dir"`

	// Pattern is the doublestar glob files must match.
	Pattern string `json:"pattern,omitempty" toml:"pattern,omitempty"`

	// Ignore lists globs for files that are never controllers.
	Ignore []string `json:"ignore,omitempty" toml:"ignore,omitempty"`

	// Extensions lists recognized extensions, most preferred first.
	Extensions []string `json:"extensions,omitempty" toml:"extensions,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string `json:"addr" toml:"addr"`
	Router          string `json:"router" toml:"router"`
	ShutdownTimeout string `json:"shutdownTimeout" toml:"shutdown_timeout" split_words:"true"`
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level" toml:"level"`

	// Format is text or json.
	Format string `json:"format" toml:"format"`
}

// UploadConfig contains body and upload settings.
type UploadConfig struct {
	// Field is the multipart field that carries files.
	Field string `json:"field" toml:"field"`

	// MaxBodySize is a human readable size, e.g. "10MB".
	MaxBodySize string `json:"maxBodySize" toml:"max_body_size" split_words:"true"`

	// Store is "", "disk" or "s3". Empty keeps files in the request.
	Store string `json:"store,omitempty" toml:"store,omitempty"`

	// Dir is the disk store directory.
	Dir string `json:"dir,omitempty" toml:"dir,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the S3 store.
	Bucket   string `json:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" toml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" toml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" toml:"enabled"`
	Path      string `json:"path" toml:"path"`
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" toml:"enabled"`
	TracerName string `json:"tracerName,omitempty" toml:"tracer_name,omitempty" split_words:"true"`
}

// InspectConfig contains inspector settings.
type InspectConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Path    string `json:"path" toml:"path"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Controllers: ControllersConfig{
			Dir:     DefaultControllers,
			Pattern: autoroute.DefaultPattern,
			Ignore:  slices.Clone(DefaultIgnore),
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			Router:          DefaultRouter,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Upload: UploadConfig{
			Field:       autoroute.DefaultUploadField,
			MaxBodySize: DefaultMaxBodySize,
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
		Inspect: InspectConfig{
			Path: DefaultInspectPath,
		},
	}
	c.maxBodySize, _ = units.FromHumanSize(DefaultMaxBodySize)
	return c
}

// Load reads autoroute.toml, or autoroute.json when there is no TOML file,
// from dir.
func Load(dir string) (*Config, error) {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("A101").
		WithDetail("No " + TOMLFileName + " or " + JSONFileName + " found in " + dir)
}

// LoadFile reads configuration from path. The format follows the
// extension: ".json" is JSON, anything else TOML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("A101").WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("A102").Wrap(err)
	}

	cfg := New()
	// Lists replace the defaults instead of merging into them.
	cfg.Controllers.Ignore = nil

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("A102").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overrides fields from AUTOROUTE_* environment variables, e.g.
// AUTOROUTE_SERVER_ADDR or AUTOROUTE_UPLOAD_MAX_BODY_SIZE. Lists are comma
// separated.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return errors.New("A104").Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as JSON for ".json" paths and
// TOML otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return errors.New("A102").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("A102").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file, or the empty
// string when the config was not loaded from a file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Controllers.Dir == "" {
		c.Controllers.Dir = DefaultControllers
	}
	if c.Controllers.Pattern == "" {
		c.Controllers.Pattern = autoroute.DefaultPattern
	}
	if c.Controllers.Ignore == nil {
		c.Controllers.Ignore = slices.Clone(DefaultIgnore)
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Router == "" {
		c.Server.Router = DefaultRouter
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Upload.Field == "" {
		c.Upload.Field = autoroute.DefaultUploadField
	}
	if c.Upload.MaxBodySize == "" {
		c.Upload.MaxBodySize = DefaultMaxBodySize
	}
	if c.Upload.Store == "disk" && c.Upload.Dir == "" {
		c.Upload.Dir = DefaultUploadDir
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Inspect.Path == "" {
		c.Inspect.Path = DefaultInspectPath
	}
}

// Validate checks the configuration and resolves derived values.
func (c *Config) Validate() error {
	scanner := autoroute.Scanner{
		Pattern:    c.Controllers.Pattern,
		Ignore:     c.Controllers.Ignore,
		Extensions: c.Controllers.Extensions,
	}
	if err := scanner.Validate(); err != nil {
		return errors.New("A103").WithDetail("controllers: " + err.Error())
	}
	for _, ext := range c.Controllers.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.New("A103").WithDetail(fmt.Sprintf("controllers.extensions: %q must start with a dot", ext))
		}
	}

	if _, err := c.ActionsMap(); err != nil {
		return errors.New("A103").WithDetail("actions: " + err.Error())
	}

	if !slices.Contains(routers.Names, c.Server.Router) {
		return errors.New("A103").
			WithDetail(fmt.Sprintf("server.router: unknown router %q", c.Server.Router)).
			WithSuggestion("Use one of: " + strings.Join(routers.Names, ", "))
	}
	if d, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil || d <= 0 {
		return errors.New("A103").
			WithDetail(fmt.Sprintf("server.shutdown_timeout: invalid duration %q", c.Server.ShutdownTimeout))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("A103").WithDetail(fmt.Sprintf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.New("A103").WithDetail(fmt.Sprintf("logging.format: unknown format %q", c.Logging.Format))
	}

	size, err := units.FromHumanSize(c.Upload.MaxBodySize)
	if err != nil || size <= 0 {
		return errors.New("A103").
			WithDetail(fmt.Sprintf("upload.max_body_size: invalid size %q", c.Upload.MaxBodySize)).
			WithSuggestion(`Use a human readable size such as "10MB"`)
	}
	c.maxBodySize = size

	switch c.Upload.Store {
	case "", "disk":
	case "s3":
		if c.Upload.Bucket == "" {
			return errors.New("A103").WithDetail("upload.bucket is required for the s3 store")
		}
	default:
		return errors.New("A103").WithDetail(fmt.Sprintf("upload.store: unknown store %q", c.Upload.Store))
	}

	for name, path := range map[string]string{"metrics.path": c.Metrics.Path, "inspect.path": c.Inspect.Path} {
		if !strings.HasPrefix(path, "/") {
			return errors.New("A103").WithDetail(fmt.Sprintf("%s: %q must start with /", name, path))
		}
	}

	return nil
}

// ActionsMap returns the configured actions, or the default actions when
// none are configured.
func (c *Config) ActionsMap() (autoroute.ActionsMap, error) {
	if len(c.Actions) == 0 {
		return autoroute.DefaultActions, nil
	}
	return autoroute.ParseActionsMap(c.Actions)
}

// ExtensionList returns the configured extensions, or the default ones.
func (c *Config) ExtensionList() []string {
	if len(c.Controllers.Extensions) == 0 {
		return autoroute.DefaultExtensions
	}
	return c.Controllers.Extensions
}

// MaxBodySizeBytes returns upload.max_body_size in bytes. It is resolved by
// Validate.
func (c *Config) MaxBodySizeBytes() int64 {
	return c.maxBodySize
}

// ShutdownTimeoutDuration returns server.shutdown_timeout.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// ControllersPath returns the absolute path to the controllers directory.
func (c *Config) ControllersPath() string {
	return c.resolve(c.Controllers.Dir)
}

// UploadPath returns the absolute path to the disk upload directory.
func (c *Config) UploadPath() string {
	if c.Upload.Dir == "" {
		return c.resolve(DefaultUploadDir)
	}
	return c.resolve(c.Upload.Dir)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if dir := c.Dir(); dir != "" {
		return filepath.Join(dir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the directory containing a
// config file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("A101").
				WithDetail("No " + TOMLFileName + " or " + JSONFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'autoroute init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the working directory or
// the nearest parent that has a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
