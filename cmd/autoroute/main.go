package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	pf := &projectFlags{}

	rootCmd := &cobra.Command{
		Use:   "autoroute",
		Short: "File-based HTTP routes for Go controllers",
		Long: `autoroute derives an HTTP route table from a directory of controllers.

Every controller file becomes a route named after its path, and every
action it implements is registered under the verb of the actions map:

  controllers/index.go          →  /
  controllers/users.go          →  /users, /users/:id
  controllers/SubPath/Test.go   →  /sub-path/test`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf.register(rootCmd)

	rootCmd.AddCommand(
		initCmd(),
		routesCmd(pf),
		genCmd(pf),
		serveCmd(pf),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
