// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusTick StatusKind = iota
	StatusSwitch
	StatusSelect
	StatusAcquire
	StatusContend
	StatusRelease
	StatusSuspend
	StatusResume
	StatusTerminate
	StatusIdle
	StatusExit
)

// StatusEvent is emitted on every tick and on key actions
type StatusEvent struct {
	Time     time.Time
	Kind     StatusKind
	Slot     int
	TaskID   TaskID
	State    State
	Priority uint32
	ExecTime uint64 // virtual clock when the event was raised
	Tick     uint64
	Detail   string
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusTick:
		return "Tick"
	case StatusSwitch:
		return "Switch"
	case StatusSelect:
		return "Select"
	case StatusAcquire:
		return "Acquire"
	case StatusContend:
		return "Contend"
	case StatusRelease:
		return "Release"
	case StatusSuspend:
		return "Suspend"
	case StatusResume:
		return "Resume"
	case StatusTerminate:
		return "Terminate"
	case StatusIdle:
		return "Idle"
	case StatusExit:
		return "Exit"
	default:
		return "Unknown"
	}
}
