package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
)

// addScanFlags registers the flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command, opts *app.Options) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.Roots, "root", "r", nil, "Directory to search for session files (repeatable)")
	flags.StringSliceVar(&opts.Include, "include", nil, "Glob matched against file names to scan (repeatable)")
	flags.StringSliceVar(&opts.Exclude, "exclude", nil, "Glob matched against file names to skip (repeatable)")
	flags.StringVarP(&opts.Output, "output", "o", "", `File events are appended to ("-" for stdout)`)
	flags.IntVar(&opts.MaxKeys, "max-keys", 0, "Remember at most this many delivered events (0 for no limit)")
	flags.BoolVar(&opts.ContinueOnError, "continue-on-error", false, "Keep scanning other files when one fails")
}

func (c *CLI) newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan once and emit the events written since the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Scan(cmd.Context(), c.opts)
		},
	}
	addScanFlags(cmd, &c.opts)
	return cmd
}
