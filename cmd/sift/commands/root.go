// Package commands implements the CLI commands for sift.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/build"
)

// CLI represents the command line interface for sift.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	opts    app.Options
}

// Application represents the application logic interface.
type Application interface {
	Watch(ctx context.Context, opts app.Options) error
	Scan(ctx context.Context, opts app.Options) error
	Status(ctx context.Context, opts app.Options) (app.Status, error)
	Pause(ctx context.Context, opts app.Options) error
	Resume(ctx context.Context, opts app.Options) error
	Reset(ctx context.Context, opts app.Options) error
	ConfigureLogging(verbose, jsonOutput bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sift",
		Short:         "Incrementally scan session logs and emit every event exactly once",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Show debug output, including per-pass timings")
	flags.Bool("json", false, "Write log output as JSON")
	flags.StringVar(&c.opts.StateDir, "state-dir", "", "Directory holding the checkpoint and pause marker")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		c.app.ConfigureLogging(verbose, jsonOutput)
	}

	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newScanCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newPauseCmd())
	rootCmd.AddCommand(c.newResumeCmd())
	rootCmd.AddCommand(c.newResetCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
