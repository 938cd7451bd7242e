package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

func newRunsCmd(factory service.ComponentFactory) *cobra.Command {
	var (
		playlistName string
		limit        int
	)
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Lists recent runs from the run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			ctx := cmd.Context()
			st, err := stateFrom(ctx)
			if err != nil {
				return err
			}
			journal, closeJournal, err := factory.OpenJournal(ctx, st.cfg.Database, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open run journal: %w", err)
			}
			defer closeJournal()

			runs, err := journal.RecentRuns(ctx, playlistName, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	runsCmd.Flags().StringVarP(&playlistName, "playlist", "p", "", "Only runs of this playlist")
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return runsCmd
}

func printRuns(w io.Writer, runs []playlist.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPLAYLIST\tTRANSACTION\tCYCLE\tSTATUS\tDURATION\tERROR")
	for _, r := range runs {
		pl := r.Playlist
		if pl == "" {
			pl = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), pl, r.Transaction, r.Cycle, r.Status,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}
