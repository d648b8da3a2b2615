package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"coopsched/internal/hal"
	"coopsched/internal/job"
	"coopsched/internal/sched"
)

func newSingle(t *testing.T, limit uint64, body sched.Body) *sched.Scheduler {
	t.Helper()
	cfg := sched.DefaultConfig()
	cfg.ExecutionCap = limit

	task, err := sched.NewTask(1, 1, body)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	s, err := sched.New(cfg, []*sched.Task{task})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func run(t *testing.T, s *sched.Scheduler) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Run(ctx)
}

func TestBlink_PulsesOncePerSwitch(t *testing.T) {
	led := hal.NewPin("led", nil)
	guard := hal.NewGuard()
	s := newSingle(t, 5000, job.Blink{LED: led, Hold: time.Millisecond, Guard: guard}.Body())

	if err := run(t, s); !errors.Is(err, sched.ErrExecutionCapReached) {
		t.Fatalf("Run err = %v, want ErrExecutionCapReached", err)
	}
	if got := led.Pulses(); got != 5 {
		t.Errorf("pulses = %d, want 5", got)
	}
	if led.Level() {
		t.Error("led left high")
	}
	if got := s.Semaphore().Permits(); got != 1 {
		t.Errorf("permits = %d, want 1", got)
	}
	if v := guard.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

func TestBlink_SuspendedNeverTouchesLED(t *testing.T) {
	led := hal.NewPin("led", nil)
	s := newSingle(t, 0, job.Blink{LED: led, Hold: time.Millisecond}.Body())
	if err := s.Suspend(1); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	if err := run(t, s); !errors.Is(err, sched.ErrNoActiveTasks) {
		t.Fatalf("Run err = %v, want ErrNoActiveTasks", err)
	}
	if got := led.Pulses(); got != 0 {
		t.Errorf("pulses = %d, want 0", got)
	}
}

func TestSleepWork_TerminatedEndsRun(t *testing.T) {
	s := newSingle(t, 0, job.SleepWork(time.Millisecond))
	if err := s.Terminate(1); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	if err := run(t, s); !errors.Is(err, sched.ErrNoActiveTasks) {
		t.Fatalf("Run err = %v, want ErrNoActiveTasks", err)
	}
	if got := s.ExecutionTime(); got != 0 {
		t.Errorf("exec time = %d, want 0", got)
	}
}
