package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/ui/output"
	"go.trai.ch/sift/internal/ui/style"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether scanning is paused and what has been checkpointed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.Status(cmd.Context(), c.opts)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatus(w io.Writer, st app.Status) {
	out := output.New(w)

	state := output.Paint(out, style.Dot+" active", string(style.Green))
	if st.Paused {
		state = output.Paint(out, style.Dot+" paused", string(style.Yellow))
	}

	_, _ = fmt.Fprintf(w, "scanning   %s\n", state)
	_, _ = fmt.Fprintf(w, "state dir  %s\n", st.StateDir)

	cp := st.Checkpoint
	if cp == nil {
		_, _ = fmt.Fprintf(w, "checkpoint %s\n", output.Paint(out, "none", string(style.Muted)))
		return
	}
	_, _ = fmt.Fprintf(w, "files      %d\n", len(cp.Cursors))
	_, _ = fmt.Fprintf(w, "keys       %d\n", len(cp.Keys))
	if !cp.SavedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "saved      %s\n", cp.SavedAt.Local().Format(time.RFC3339))
	}
}
