package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause scanning, including in running watchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Pause(cmd.Context(), c.opts)
		},
	}
}

func (c *CLI) newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume scanning after a pause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Resume(cmd.Context(), c.opts)
		},
	}
}

func (c *CLI) newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget all progress so the next scan emits every event again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Reset(cmd.Context(), c.opts)
		},
	}
}
