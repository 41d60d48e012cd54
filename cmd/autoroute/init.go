package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		force  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write autoroute.toml (or autoroute.json with --format=json) with the
default settings and create the controllers directory.

Examples:
  autoroute init
  autoroute init ./api --format=json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, format, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&format, "format", "toml", "Config format: toml or json")

	return cmd
}

func runInit(dir, format string, force bool) error {
	name := config.TOMLFileName
	switch format {
	case "toml":
	case "json":
		name = config.JSONFileName
	default:
		return errors.Newf(errors.CategoryCLI, "unknown format %q; use toml or json", format)
	}

	if config.Exists(dir) && !force {
		return errors.Newf(errors.CategoryCLI, "a config file already exists in %s", dir).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	path := filepath.Join(dir, name)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ControllersPath(), 0755); err != nil {
		return err
	}

	success("Created %s", path)
	info("Add controllers under %s", cfg.ControllersPath())
	return nil
}
