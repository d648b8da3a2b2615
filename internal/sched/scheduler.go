// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coopsched/internal/logging"
)

var (
	// ErrNoActiveTasks ends a run when a full scan finds no Running task.
	ErrNoActiveTasks = errors.New("no active tasks")
	// ErrExecutionCapReached ends a run when the virtual clock hits the cap.
	ErrExecutionCapReached = errors.New("execution time limit reached")
	// ErrStopped is returned to task bodies once the dispatch loop has exited.
	ErrStopped = errors.New("scheduler stopped")
	// ErrTickPeriod rejects a configuration whose tick period is not positive.
	ErrTickPeriod = errors.New("tick period must be positive")
)

// Scheduler owns the task registry, the shared semaphore and the virtual
// clocks. A single goroutine holds the baton at any time; the tick source is
// the only other writer and only touches quotas and the tick counter.
type Scheduler struct {
	mu            sync.Mutex // protects the scheduler state
	tasks         []*Task
	index         map[TaskID]int
	current       int
	tickCount     uint64
	executionTime uint64
	started       bool

	switchStep   uint64
	executionCap uint64 // 0 disables the cap
	tickPeriod   time.Duration
	policy       SelectionPolicy
	idle         time.Duration

	sem       *Semaphore
	clock     Clock
	sink      Sink
	observers []SwitchObserver
	logger    *slog.Logger

	report chan report
	done   chan struct{}
}

type report struct {
	slot     int
	returned bool // body returned rather than yielded
	err      error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the tick source. The default is a VirtualClock.
func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithSink sets where status events go.
func WithSink(sink Sink) Option { return func(s *Scheduler) { s.sink = sink } }

// WithObserver adds a switch observer, such as a Scenario.
func WithObserver(o SwitchObserver) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithLogger sets the logger for scheduler lifecycle messages.
func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// New creates a Scheduler over a fixed set of tasks. Slot order is the order
// given; slot 0 runs first.
func New(cfg Config, tasks []*Task, opts ...Option) (*Scheduler, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	policy, err := ParsePolicy(cfg.Selection)
	if err != nil {
		return nil, err
	}
	if cfg.TickPeriod() <= 0 {
		return nil, fmt.Errorf("tick_us %d: %w", cfg.TickUS, ErrTickPeriod)
	}

	s := &Scheduler{
		tasks:        tasks,
		index:        make(map[TaskID]int, len(tasks)),
		switchStep:   cfg.SwitchStep,
		executionCap: cfg.ExecutionCap,
		tickPeriod:   cfg.TickPeriod(),
		policy:       policy,
		idle:         cfg.Idle(),
		sem:          NewSemaphore(cfg.Permits),
		clock:        NewVirtualClock(),
		sink:         MultiSink{},
		logger:       logging.Discard(),
		report:       make(chan report),
		done:         make(chan struct{}),
	}
	for i, t := range tasks {
		if t == nil || t.Body == nil {
			return nil, fmt.Errorf("slot %d: task has no body", i)
		}
		if t.Priority == 0 {
			return nil, fmt.Errorf("task %d: %w", t.ID, ErrZeroPriority)
		}
		if _, dup := s.index[t.ID]; dup {
			return nil, fmt.Errorf("task %d: %w", t.ID, ErrDuplicateTask)
		}
		s.index[t.ID] = i
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Component(s.logger, "scheduler")
	return s, nil
}

// Semaphore returns the permit guarding the shared actuator.
func (s *Scheduler) Semaphore() *Semaphore { return s.sem }

// IdlePeriod is how long suspended and terminated tasks wait when dispatched.
func (s *Scheduler) IdlePeriod() time.Duration { return s.idle }

// Current returns the selected slot.
func (s *Scheduler) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TickCount returns the number of ticks handled.
func (s *Scheduler) TickCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCount
}

// ExecutionTime returns the virtual execution clock.
func (s *Scheduler) ExecutionTime() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executionTime
}

// Snapshot copies every slot's metadata.
func (s *Scheduler) Snapshot() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.info(i)
	}
	return out
}

// Tick is the periodic interrupt handler. It refreshes the quota of every
// slot other than the current one whose priority divides the tick count.
// It never switches tasks.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.tickCount++
	for i, t := range s.tasks {
		if i != s.current && s.tickCount%uint64(t.Priority) == 0 {
			t.RemainingQuota = 0
		}
	}
	ev := s.eventLocked(StatusTick, s.current, "")
	s.mu.Unlock()

	s.sink.Emit(ev)
}

// Switch is the plain cooperative switch: it moves to the next slot in
// circular order, refreshes that slot's quota to its priority, lets the
// observers see the virtual clock and then advances the clock by one step.
// It returns the new current slot.
func (s *Scheduler) Switch() int {
	s.mu.Lock()
	s.current = (s.current + 1) % len(s.tasks)
	t := s.tasks[s.current]
	t.RemainingQuota = t.Priority
	now := s.executionTime
	cur := s.current
	observers := s.observers
	ev := s.eventLocked(StatusSwitch, cur, "")
	s.mu.Unlock()

	s.sink.Emit(ev)
	for _, o := range observers {
		if err := o.OnSwitch(now, s); err != nil {
			s.logger.Warn("lifecycle command failed", "exec_time", now, "error", err)
		}
	}

	s.mu.Lock()
	s.executionTime += s.switchStep
	s.mu.Unlock()
	return cur
}

// SelectNext picks the next slot after the current task has finished a
// segment. A suspended current task hands over to the next Running slot in
// circular order; otherwise the selection policy picks by priority.
// ErrNoActiveTasks is returned when no Running slot qualifies.
func (s *Scheduler) SelectNext() (int, error) {
	s.mu.Lock()
	cur := s.current

	var (
		next int
		ok   bool
		mode string
	)
	switch {
	case s.tasks[cur].State == StateSuspended:
		next, ok = selectSuspended(s.tasks, cur)
		mode = "suspended"
	case s.policy == PolicyLegacy:
		next, ok = selectLegacy(s.tasks, cur)
		mode = string(PolicyLegacy)
	default:
		next, ok = selectMinimum(s.tasks, cur)
		mode = string(PolicyMinimum)
	}
	if !ok {
		s.mu.Unlock()
		return cur, ErrNoActiveTasks
	}

	s.current = next
	ev := s.eventLocked(StatusSelect, next, mode)
	s.mu.Unlock()

	s.sink.Emit(ev)
	return next, nil
}

// Suspend marks a task Suspended. Terminated tasks cannot be suspended.
func (s *Scheduler) Suspend(id TaskID) error { return s.transition(id, StateSuspended) }

// Resume marks a task Running again. Terminated tasks cannot be resumed.
func (s *Scheduler) Resume(id TaskID) error { return s.transition(id, StateRunning) }

// Terminate marks a task Terminated for good.
func (s *Scheduler) Terminate(id TaskID) error { return s.transition(id, StateTerminated) }

func (s *Scheduler) transition(id TaskID, to State) error {
	s.mu.Lock()
	slot, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %d: %w", id, ErrUnknownTask)
	}
	t := s.tasks[slot]
	if t.State == StateTerminated {
		s.mu.Unlock()
		if to == StateTerminated {
			return nil
		}
		return fmt.Errorf("task %d: %w", id, ErrTerminated)
	}
	t.State = to

	kind := StatusResume
	switch to {
	case StateSuspended:
		kind = StatusSuspend
	case StateTerminated:
		kind = StatusTerminate
	}
	ev := s.eventLocked(kind, slot, "")
	s.mu.Unlock()

	s.sink.Emit(ev)
	return nil
}

// Run drives the dispatch loop until no task is eligible, the execution cap
// is reached, a body fails or ctx is done. ErrNoActiveTasks and
// ErrExecutionCapReached are normal ends of a run. A Scheduler runs once.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i, t := range s.tasks {
		t.wake = make(chan struct{})
		wg.Add(1)
		go func(slot int, t *Task) {
			defer wg.Done()
			s.trampoline(slot, t)
		}(i, t)
	}

	s.logger.Info("scheduler started", "tasks", len(s.tasks), "policy", s.policy, "tick_period", s.tickPeriod)
	s.clock.Every(s.tickPeriod, s.Tick)

	err := s.loop(ctx)

	// unwind every parked task body
	s.clock.Stop()
	close(s.done)
	for _, t := range s.tasks {
		close(t.wake)
	}
	wg.Wait()

	s.mu.Lock()
	ev := s.eventLocked(StatusExit, s.current, err.Error())
	s.mu.Unlock()
	s.sink.Emit(ev)

	s.logger.Info("scheduler stopped", "reason", err, "exec_time", ev.ExecTime, "ticks", ev.Tick)
	return err
}

// loop runs the main dispatch loop: hand the baton to the current task, wait
// for it to come back, and pick the next task if the body segment completed.
func (s *Scheduler) loop(ctx context.Context) error {
	for {
		// 1) check shutdown
		if err := ctx.Err(); err != nil {
			return err
		}

		// 2) resume the current task
		s.mu.Lock()
		t := s.tasks[s.current]
		s.mu.Unlock()

		select {
		case t.wake <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		var r report
		select {
		case r = <-s.report:
		case <-ctx.Done():
			return ctx.Err()
		}

		// 3) a finished segment goes through the selector; a yield has
		//    already moved the current slot
		if r.returned {
			if r.err != nil {
				return fmt.Errorf("task %d: %w", s.tasks[r.slot].ID, r.err)
			}
			if _, err := s.SelectNext(); err != nil {
				return err
			}
			s.mu.Lock()
			s.executionTime++
			s.mu.Unlock()
		}

		// 4) overall run-time cap
		if s.executionCap > 0 && s.ExecutionTime() >= s.executionCap {
			return ErrExecutionCapReached
		}
	}
}

// trampoline is the goroutine behind one slot. Every wake-up at the top of
// the loop starts a fresh body segment.
func (s *Scheduler) trampoline(slot int, t *Task) {
	tc := &TaskContext{s: s, slot: slot, task: t}
	for range t.wake {
		err := t.Body(tc)
		if errors.Is(err, ErrStopped) {
			return
		}
		select {
		case s.report <- report{slot: slot, returned: true, err: err}:
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) eventLocked(kind StatusKind, slot int, detail string) StatusEvent {
	t := s.tasks[slot]
	return StatusEvent{
		Time:     time.Now(),
		Kind:     kind,
		Slot:     slot,
		TaskID:   t.ID,
		State:    t.State,
		Priority: t.Priority,
		ExecTime: s.executionTime,
		Tick:     s.tickCount,
		Detail:   detail,
	}
}
