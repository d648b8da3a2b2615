package job

import (
	"time"

	"coopsched/internal/hal"
	"coopsched/internal/sched"
)

// Blink toggles the shared LED while holding the scheduler's semaphore.
type Blink struct {
	LED  hal.LED
	Hold time.Duration // time spent in each level

	// Guard, if set, is told when the body enters and leaves the actuator.
	Guard *hal.Guard
	// YieldWhileHeld yields between the high and low phase without giving
	// the permit back, so other tasks contend for it.
	YieldWhileHeld bool
}

// Body returns the task entry point. A Running task acquires the permit,
// pulses the LED, releases and yields, forever. A suspended or terminated
// task waits the idle period and ends its segment so the scheduler can pick
// someone else.
func (b Blink) Body() sched.Body {
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

			sem := tc.Semaphore()
			if err := tc.Acquire(sem); err != nil {
				return err
			}
			err := b.pulse(tc)
			tc.Release(sem)
			if err != nil {
				return err
			}

			if err := tc.Yield(); err != nil {
				return err
			}
		}
	}
}

func (b Blink) pulse(tc *sched.TaskContext) error {
	if b.Guard != nil {
		b.Guard.Enter(tc.Slot())
		defer b.Guard.Exit(tc.Slot())
	}

	b.LED.High()
	tc.Sleep(b.Hold)
	if b.YieldWhileHeld {
		if err := tc.Yield(); err != nil {
			b.LED.Low()
			return err
		}
	}
	b.LED.Low()
	tc.Sleep(b.Hold)
	return nil
}
