package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan continuously, rescanning whenever a session file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Watch(cmd.Context(), c.opts)
		},
	}
	addScanFlags(cmd, &c.opts)
	cmd.Flags().DurationVarP(&c.opts.Interval, "interval", "i", 0, "Fallback rescan interval (default from config, 5s)")
	cmd.Flags().BoolVar(&c.opts.NoWatch, "no-watch", false, "Disable file change notifications and rely on the interval")
	return cmd
}
