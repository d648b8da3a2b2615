package sched

import "time"

// TaskContext is a task body's handle on the scheduler. It only exposes the
// body's own slot.
type TaskContext struct {
	s    *Scheduler
	slot int
	task *Task
}

// ID returns the task's identity.
func (tc *TaskContext) ID() TaskID { return tc.task.ID }

// Slot returns the task's registry slot.
func (tc *TaskContext) Slot() int { return tc.slot }

// State returns the task's lifecycle state.
func (tc *TaskContext) State() State {
	tc.s.mu.Lock()
	defer tc.s.mu.Unlock()
	return tc.task.State
}

// Semaphore returns the permit guarding the shared actuator.
func (tc *TaskContext) Semaphore() *Semaphore { return tc.s.sem }

// Yield performs a cooperative switch and parks the body until its slot is
// dispatched again. It returns ErrStopped once the run is over; the body
// must then return.
func (tc *TaskContext) Yield() error {
	s := tc.s
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	s.Switch()

	select {
	case s.report <- report{slot: tc.slot}:
	case <-s.done:
		return ErrStopped
	}
	if _, ok := <-tc.task.wake; !ok {
		return ErrStopped
	}
	return nil
}

// Acquire takes a permit from sem. While the permit is held elsewhere the
// task is flagged as waiting and keeps yielding.
func (tc *TaskContext) Acquire(sem *Semaphore) error {
	if !sem.TryAcquire() {
		tc.setWaiting(true)
		tc.emit(StatusContend, "")
		err := sem.Acquire(tc)
		tc.setWaiting(false)
		if err != nil {
			return err
		}
	}
	tc.emit(StatusAcquire, "")
	return nil
}

// Release returns a permit to sem.
func (tc *TaskContext) Release(sem *Semaphore) {
	sem.Release()
	tc.emit(StatusRelease, "")
}

// Sleep holds the task for d on the scheduler's clock. Ticks keep firing.
func (tc *TaskContext) Sleep(d time.Duration) {
	tc.s.clock.Sleep(d)
}

// Idle reports why the task is not doing work and waits the scheduler's idle
// period.
func (tc *TaskContext) Idle(reason string) {
	tc.emit(StatusIdle, reason)
	tc.s.clock.Sleep(tc.s.idle)
}

func (tc *TaskContext) setWaiting(w bool) {
	tc.s.mu.Lock()
	tc.task.Waiting = w
	tc.s.mu.Unlock()
}

func (tc *TaskContext) emit(kind StatusKind, detail string) {
	tc.s.mu.Lock()
	ev := tc.s.eventLocked(kind, tc.slot, detail)
	tc.s.mu.Unlock()
	tc.s.sink.Emit(ev)
}
