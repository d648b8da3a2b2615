package sched

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// Action is a lifecycle command verb.
type Action string

const (
	ActionSuspend   Action = "suspend"
	ActionResume    Action = "resume"
	ActionTerminate Action = "terminate"
)

// ParseAction accepts suspend, resume or terminate in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSuspend, ActionResume, ActionTerminate:
		return a, nil
	default:
		return "", fmt.Errorf("unknown lifecycle command %q", s)
	}
}

// Command is a lifecycle command due at a virtual execution time.
type Command struct {
	At     uint64
	Action Action
	Task   TaskID
}

// Controller is the lifecycle control surface commands are applied to.
type Controller interface {
	Suspend(id TaskID) error
	Resume(id TaskID) error
	Terminate(id TaskID) error
}

// SwitchObserver is told the virtual execution time on every cooperative
// switch, before the clock advances.
type SwitchObserver interface {
	OnSwitch(now uint64, ctl Controller) error
}

// Scenario issues scripted lifecycle commands as virtual time passes.
// Pending commands sit in a red-black tree keyed by threshold; each fires once,
// in threshold order and then in the order it was added.
type Scenario struct {
	mu      sync.Mutex
	pending *redblacktree.Tree // uint64 -> []Command
	fired   []Command
}

// NewScenario builds a scenario from commands.
func NewScenario(cmds ...Command) *Scenario {
	s := &Scenario{pending: redblacktree.NewWith(utils.UInt64Comparator)}
	for _, c := range cmds {
		s.Add(c)
	}
	return s
}

// ScenarioFromConfig parses the configured script.
func ScenarioFromConfig(cfgs []CommandConfig) (*Scenario, error) {
	s := NewScenario()
	for i, c := range cfgs {
		a, err := ParseAction(c.Command)
		if err != nil {
			return nil, fmt.Errorf("scenario[%d]: %w", i, err)
		}
		s.Add(Command{At: c.At, Action: a, Task: c.Task})
	}
	return s, nil
}

// Add schedules a command.
func (s *Scenario) Add(c Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bucket []Command
	if v, ok := s.pending.Get(c.At); ok {
		bucket = v.([]Command)
	}
	s.pending.Put(c.At, append(bucket, c))
}

// Due removes and returns every pending command with a threshold at or
// below now.
func (s *Scenario) Due(now uint64) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Command
	for {
		node := s.pending.Left()
		if node == nil || node.Key.(uint64) > now {
			break
		}
		due = append(due, node.Value.([]Command)...)
		s.pending.Remove(node.Key)
	}
	s.fired = append(s.fired, due...)
	return due
}

// Pending returns the number of commands not yet fired.
func (s *Scenario) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.pending.Values() {
		n += len(v.([]Command))
	}
	return n
}

// Fired returns the commands issued so far, in firing order.
func (s *Scenario) Fired() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.fired...)
}

func (s *Scenario) OnSwitch(now uint64, ctl Controller) error {
	var errs []error
	for _, c := range s.Due(now) {
		if err := apply(ctl, c); err != nil {
			errs = append(errs, fmt.Errorf("%s task %d at %d: %w", c.Action, c.Task, c.At, err))
		}
	}
	return errors.Join(errs...)
}

func apply(ctl Controller, c Command) error {
	switch c.Action {
	case ActionSuspend:
		return ctl.Suspend(c.Task)
	case ActionResume:
		return ctl.Resume(c.Task)
	case ActionTerminate:
		return ctl.Terminate(c.Task)
	default:
		return fmt.Errorf("unknown lifecycle command %q", c.Action)
	}
}
