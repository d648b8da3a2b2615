package cli

import (
	"fmt"
	"log/slog"

	"coopsched/internal/hal"
	"coopsched/internal/job"
	"coopsched/internal/logging"
	"coopsched/internal/sched"
)

// machine is one wired scheduler: tasks sharing the LED, the scenario script
// and the in-memory event sinks.
type machine struct {
	sched    *sched.Scheduler
	led      *hal.Pin
	scenario *sched.Scenario
	history  *sched.History
	counter  *sched.Counter
}

// newMachine builds the blink demo from cfg. Extra sinks receive every event.
func newMachine(cfg sched.Config, logger *slog.Logger, sinks ...sched.Sink) (*machine, error) {
	pinLog := logging.Component(logger, "hal")
	led := hal.NewPin("led", func(name string, level bool) {
		pinLog.Debug("gpio write", "pin", name, "level", level)
	})

	tasks := make([]*sched.Task, 0, len(cfg.Tasks))
	for _, tc := range cfg.Tasks {
		body := job.Blink{LED: led, Hold: cfg.Hold()}.Body()
		t, err := sched.NewTask(tc.ID, tc.Priority, body)
		if err != nil {
			return nil, fmt.Errorf("register task: %w", err)
		}
		tasks = append(tasks, t)
	}

	scenario, err := sched.ScenarioFromConfig(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	var clock sched.Clock = sched.NewVirtualClock()
	if cfg.Realtime {
		clock = sched.NewTickClock()
	}

	history := sched.NewHistory(cfg.History, false)
	counter := sched.NewCounter()
	all := sched.MultiSink{sched.NewLogSink(logger), history, counter}
	all = append(all, sinks...)

	s, err := sched.New(cfg, tasks,
		sched.WithClock(clock),
		sched.WithSink(all),
		sched.WithObserver(scenario),
		sched.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &machine{sched: s, led: led, scenario: scenario, history: history, counter: counter}, nil
}
