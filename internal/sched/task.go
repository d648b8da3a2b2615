package sched

import (
	"errors"
	"fmt"
)

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint32

// State is the lifecycle state of a task.
type State int

const (
	StateRunning State = iota
	StateSuspended
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Body is a task's cooperative entry point. It owns its loop and must call
// Yield on the context to let other tasks run. Returning ends the current
// dispatch segment; the body is invoked again the next time its slot is chosen.
type Body func(tc *TaskContext) error

var (
	ErrZeroPriority  = errors.New("priority must be at least 1")
	ErrDuplicateTask = errors.New("duplicate task id")
	ErrUnknownTask   = errors.New("unknown task")
	ErrTerminated    = errors.New("task is terminated")
	ErrNoTasks       = errors.New("no tasks registered")
)

// Task is one slot of the task control block registry.
type Task struct {
	ID             TaskID
	Priority       uint32 // >= 1, smaller runs first; also the tick refresh divisor
	RemainingQuota uint32 // 0 means refreshed and eligible
	State          State
	Waiting        bool // set while spinning on a contended semaphore, never read by selection
	Body           Body

	wake chan struct{}
}

// NewTask creates a Running task with a zero quota.
// Priority 0 is rejected here so tick accounting never divides by zero.
func NewTask(id TaskID, priority uint32, body Body) (*Task, error) {
	if priority == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrZeroPriority)
	}
	if body == nil {
		return nil, fmt.Errorf("task %d: nil body", id)
	}

	return &Task{
		ID:       id,
		Priority: priority,
		State:    StateRunning,
		Body:     body,
	}, nil
}

// TaskInfo is a copy of a task's scheduling metadata.
type TaskInfo struct {
	Slot           int
	ID             TaskID
	Priority       uint32
	RemainingQuota uint32
	State          State
	Waiting        bool
}

func (t *Task) info(slot int) TaskInfo {
	return TaskInfo{
		Slot:           slot,
		ID:             t.ID,
		Priority:       t.Priority,
		RemainingQuota: t.RemainingQuota,
		State:          t.State,
		Waiting:        t.Waiting,
	}
}
