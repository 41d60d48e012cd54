package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/source"
)

// projectFlags are the persistent flags shared by every command.
type projectFlags struct {
	configPath  string
	controllers string
	logLevel    string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&f.configPath, "config", "c", "", "Config file (default: autoroute.toml or autoroute.json in the nearest parent)")
	flags.StringVarP(&f.controllers, "controllers", "d", "", "Controllers directory (overrides the config)")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// loadProject reads the config file, applies environment and flag
// overrides, and validates the result. Without a config file the defaults
// are used.
func loadProject(f *projectFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	default:
		wd, werr := os.Getwd()
		if werr != nil {
			return nil, werr
		}
		if root, rerr := config.FindProjectRoot(wd); rerr == nil {
			cfg, err = config.Load(root)
		} else {
			cfg = config.New()
		}
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if f.controllers != "" {
		abs, err := filepath.Abs(f.controllers)
		if err != nil {
			return nil, err
		}
		cfg.Controllers.Dir = abs
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.Logging.Level))

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// projectLoader loads ".go" controllers from source, answering 501 until
// they are compiled in, and ".so" controllers as plugins.
func projectLoader(actions autoroute.ActionsMap) autoroute.Loader {
	return autoroute.ExtensionLoader{
		".go": source.Loader{Actions: actions},
		".so": autoroute.PluginLoader{},
	}
}

// discoveryOptions returns the options every command shares.
func discoveryOptions(cfg *config.Config, logger *slog.Logger) []autoroute.Option {
	return []autoroute.Option{
		autoroute.WithPattern(cfg.Controllers.Pattern),
		autoroute.WithIgnore(cfg.Controllers.Ignore...),
		autoroute.WithExtensions(cfg.ExtensionList()...),
		autoroute.WithLogger(logger),
	}
}
