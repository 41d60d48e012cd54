package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/internal/errors"
	"github.com/vango-dev/autoroute/internal/watch"
	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/source"
)

func genCmd(pf *projectFlags) *cobra.Command {
	var (
		output string
		check  bool
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate controller registrations",
		Long: `Scan the Go source controllers and write autoroute_gen.go.

The generated file registers every controller in autoroute.DefaultRegistry
from an init function, so importing the controllers package is enough for
Build to find them:

  import _ "example.com/app/controllers"

With --check nothing is written; the command fails when the file on disk
is missing or out of date. With --watch the file is regenerated whenever a
controller is added, changed or removed.

Examples:
  autoroute gen
  autoroute gen --check
  autoroute gen --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(pf)
			if err != nil {
				return err
			}
			if !follow {
				return runGen(cfg, output, check)
			}
			if check {
				return errors.Newf(errors.CategoryCLI, "--watch and --check cannot be combined")
			}
			if err := runGen(cfg, output, false); err != nil {
				errors.PrintError(cmd.ErrOrStderr(), err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchGen(ctx, cfg, output, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <controllers>/autoroute_gen.go)")
	cmd.Flags().BoolVar(&check, "check", false, "Fail if the generated file is stale instead of writing it")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Regenerate when controllers change")

	return cmd
}

func runGen(cfg *config.Config, output string, check bool) error {
	base := cfg.ControllersPath()
	if output == "" {
		output = filepath.Join(base, source.GeneratedFile)
	}

	info("Scanning %s...", base)

	code, count, err := generate(cfg)
	if err != nil {
		return err
	}

	info("Found %d controllers", count)

	if check {
		current, err := os.ReadFile(output)
		if err != nil || !bytes.Equal(current, code) {
			return errors.Newf(errors.CategoryBuild, "%s is out of date", output).
				WithSuggestion("Run 'autoroute gen'")
		}
		success("%s is up to date", output)
		return nil
	}

	if err := os.WriteFile(output, code, 0644); err != nil {
		return err
	}

	success("Generated %s", output)
	return nil
}

// generate returns the registration file for cfg's controllers and the
// number of controllers it registers.
func generate(cfg *config.Config) ([]byte, int, error) {
	actions, err := cfg.ActionsMap()
	if err != nil {
		return nil, 0, errors.New("A208").Wrap(err)
	}

	base := cfg.ControllersPath()
	ar := autoroute.New(autoroute.NewTable, actions, discoveryOptions(cfg, newLogger(cfg, os.Stderr))...)
	infos, err := ar.Controllers(base)
	if err != nil {
		return nil, 0, errors.Classify(err, "A201")
	}

	controllers, err := source.ScanAll(infos, actions)
	if err != nil {
		return nil, 0, errors.Classify(err, "A202")
	}

	module, err := source.FindModule(base)
	if err != nil {
		return nil, 0, errors.Classify(err, "A207")
	}

	code, err := source.NewGenerator(base, module).Generate(controllers)
	if err != nil {
		return nil, 0, errors.Newf(errors.CategoryBuild, "generate registrations").Wrap(err)
	}
	return code, len(controllers), nil
}

// watchGen regenerates the registration file on every controller change
// until ctx is done. Generation errors are printed and do not stop the
// watch.
func watchGen(ctx context.Context, cfg *config.Config, output string, errOut io.Writer) error {
	w := watch.New(watch.Config{
		Dir: cfg.ControllersPath(),
		Scanner: autoroute.Scanner{
			Pattern:    cfg.Controllers.Pattern,
			Ignore:     cfg.Controllers.Ignore,
			Extensions: cfg.ExtensionList(),
		},
		Logger: newLogger(cfg, errOut),
	})
	w.OnChange(func(changes []watch.Change) {
		for _, c := range changes {
			info("%s %s", c.Op, c.Path)
		}
		if err := runGen(cfg, output, false); err != nil {
			warn("Regeneration failed; still watching")
			errors.PrintError(errOut, err)
		}
	})

	info("Watching %s (Ctrl+C to stop)", cfg.ControllersPath())
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return errors.Classify(err, "A201")
	}
	return nil
}
