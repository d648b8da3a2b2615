package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"coopsched/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagJournal   string

	logger *slog.Logger
)

// defaultJournal returns the journal path, checking COOPSCHED_JOURNAL first.
// Empty disables the journal.
func defaultJournal() string {
	return os.Getenv("COOPSCHED_JOURNAL")
}

// NewRootCmd creates the root cobra command for the coopsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coopsched",
		Short: "coopsched: cooperative tick-driven task scheduler",
		Long:  "coopsched runs a fixed set of cooperative tasks that share one LED through a semaphore, driven by a tick interrupt and a virtual execution clock.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			level, err := logging.ParseLevel(flagLogLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(flagLogFormat)
			if err != nil {
				return err
			}
			logger = logging.New(cmd.ErrOrStderr(), level, format)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagJournal, "journal", defaultJournal(), "SQLite journal path (or COOPSCHED_JOURNAL env)")

	root.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newEventsCmd(),
	)

	return root
}
