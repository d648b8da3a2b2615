package job

import (
	"time"

	"coopsched/internal/sched"
)

// SleepWork returns a body that holds the processor for d and then yields,
// without touching the actuator. It honours suspend and terminate the same
// way Blink does.
func SleepWork(d time.Duration) sched.Body {
	return func(tc *sched.TaskContext) error {
		for {
			switch tc.State() {
			case sched.StateSuspended:
				tc.Idle("suspended")
				return nil
			case sched.StateTerminated:
				tc.Idle("terminated")
				return nil
			}

			tc.Sleep(d)
			if err := tc.Yield(); err != nil {
				return err
			}
		}
	}
}
