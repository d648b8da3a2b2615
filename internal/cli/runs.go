package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJournal == "" {
				return errors.New("no journal configured (use --journal or COOPSCHED_JOURNAL)")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := openJournal(ctx, flagJournal)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tPOLICY\tTASKS\tEVENTS\tSTARTED\tREASON")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
					r.ID, r.Policy, r.Tasks, r.Events, r.StartedAt.Local().Format(time.DateTime), r.Reason)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newEventsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "events <run-id>",
		Short: "Show the status events of a journaled run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJournal == "" {
				return errors.New("no journal configured (use --journal or COOPSCHED_JOURNAL)")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := openJournal(ctx, flagJournal)
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.GetRun(ctx, args[0]); err != nil {
				return err
			}
			events, err := st.ListEvents(ctx, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tEXEC TIME\tTICK\tEVENT\tSLOT\tTASK\tSTATE\tDETAIL")
			for _, ev := range events {
				if kind != "" && ev.Kind != kind {
					continue
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
					ev.Seq, ev.ExecTime, ev.Tick, ev.Kind, ev.Slot, ev.TaskID, ev.State, ev.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only show events of this kind (e.g. Switch, Suspend)")
	return cmd
}
