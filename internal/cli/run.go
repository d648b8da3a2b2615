package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"coopsched/internal/journal"
	"coopsched/internal/sched"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		csvPath     string
		selection   string
		realtime    bool
		capOverride uint64
		tail        int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until no task is eligible or the execution cap is reached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("selection") {
				if _, err := sched.ParsePolicy(selection); err != nil {
					return err
				}
				cfg.Selection = selection
			}
			if cmd.Flags().Changed("realtime") {
				cfg.Realtime = realtime
			}
			if cmd.Flags().Changed("execution-cap") {
				cfg.ExecutionCap = capOverride
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runMachine(ctx, cfg, csvPath, flagJournal, tail, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yml", "Path to the YAML config (defaults apply when missing)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write status events to this CSV file")
	cmd.Flags().StringVar(&selection, "selection", string(sched.PolicyMinimum), "Selection policy (minimum, legacy)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Use the wall-clock tick source instead of virtual time")
	cmd.Flags().Uint64Var(&capOverride, "execution-cap", 0, "Virtual execution time limit (0 disables)")
	cmd.Flags().IntVar(&tail, "tail", 0, "Print the last N status events after the run")

	return cmd
}

// runMachine wires sinks, runs the scheduler and prints a summary. The two
// normal ends of a run are not errors.
func runMachine(ctx context.Context, cfg sched.Config, csvPath, journalPath string, tail int, out io.Writer) error {
	var sinks []sched.Sink

	if csvPath != "" {
		csvSink, err := sched.CreateCSVSink(csvPath)
		if err != nil {
			return fmt.Errorf("csv log: %w", err)
		}
		defer csvSink.Close()
		sinks = append(sinks, csvSink)
	}

	var (
		store *journal.SQLiteStore
		runID string
	)
	if journalPath != "" {
		st, err := openJournal(ctx, journalPath)
		if err != nil {
			return err
		}
		defer st.Close()
		store = st

		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		runID = journal.NewRunID()
		run := &journal.Run{
			ID:        runID,
			Policy:    cfg.Selection,
			Tasks:     len(cfg.Tasks),
			Config:    string(raw),
			StartedAt: time.Now(),
		}
		if err := store.CreateRun(ctx, run); err != nil {
			return err
		}
		sinks = append(sinks, journal.NewSink(store, runID, logger))
		logger.Info("journal run created", "run_id", runID, "path", journalPath)
	}

	m, err := newMachine(cfg, logger, sinks...)
	if err != nil {
		return err
	}

	runErr := m.sched.Run(ctx)

	if store != nil {
		if err := store.FinishRun(context.Background(), runID, runErr.Error(), time.Now()); err != nil {
			logger.Error("finish journal run", "run_id", runID, "error", err)
		}
	}

	fmt.Fprintf(out, "%s\n", runErr)
	fmt.Fprintf(out, "exec_time=%d ticks=%d switches=%d selects=%d led_pulses=%d\n",
		m.sched.ExecutionTime(), m.sched.TickCount(),
		m.counter.Count(sched.StatusSwitch), m.counter.Count(sched.StatusSelect), m.led.Pulses())
	fmt.Fprintf(out, "scenario fired=%d pending=%d\n", len(m.scenario.Fired()), m.scenario.Pending())
	for _, ti := range m.sched.Snapshot() {
		fmt.Fprintf(out, "slot=%d task=%d priority=%d quota=%d state=%s\n",
			ti.Slot, ti.ID, ti.Priority, ti.RemainingQuota, ti.State)
	}
	if runID != "" {
		fmt.Fprintf(out, "run_id=%s\n", runID)
	}
	if tail > 0 {
		events := m.history.Events()
		if len(events) > tail {
			events = events[len(events)-tail:]
		}
		for _, ev := range events {
			fmt.Fprintf(out, "%07d [%-9s] slot=%d task=%d state=%s %s\n",
				ev.ExecTime, ev.Kind, ev.Slot, ev.TaskID, ev.State, ev.Detail)
		}
	}

	if errors.Is(runErr, sched.ErrNoActiveTasks) || errors.Is(runErr, sched.ErrExecutionCapReached) {
		return nil
	}
	return runErr
}

func openJournal(ctx context.Context, path string) (*journal.SQLiteStore, error) {
	st, err := journal.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return st, nil
}
