package sched

import (
	"errors"
	"testing"
)

type fakeController struct {
	calls []string
	fail  map[TaskID]error
}

func (c *fakeController) record(verb string, id TaskID) error {
	c.calls = append(c.calls, verb)
	return c.fail[id]
}

func (c *fakeController) Suspend(id TaskID) error   { return c.record("suspend", id) }
func (c *fakeController) Resume(id TaskID) error    { return c.record("resume", id) }
func (c *fakeController) Terminate(id TaskID) error { return c.record("terminate", id) }

func TestScenario_FiresOncePerThresholdInOrder(t *testing.T) {
	sc := NewScenario(
		Command{At: 90000, Action: ActionTerminate, Task: 1},
		Command{At: 30000, Action: ActionSuspend, Task: 1},
		Command{At: 60000, Action: ActionResume, Task: 1},
	)
	ctl := &fakeController{}

	for now := uint64(0); now <= 120000; now += 1000 {
		if err := sc.OnSwitch(now, ctl); err != nil {
			t.Fatalf("OnSwitch(%d): %v", now, err)
		}
	}

	want := []string{"suspend", "resume", "terminate"}
	if len(ctl.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", ctl.calls, want)
	}
	for i := range want {
		if ctl.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, ctl.calls[i], want[i])
		}
	}
	if sc.Pending() != 0 {
		t.Errorf("pending = %d, want 0", sc.Pending())
	}
}

func TestScenario_CatchesUpOnSkippedThresholds(t *testing.T) {
	sc := NewScenario(
		Command{At: 1000, Action: ActionSuspend, Task: 1},
		Command{At: 1000, Action: ActionResume, Task: 1},
		Command{At: 2500, Action: ActionTerminate, Task: 2},
	)

	if due := sc.Due(999); len(due) != 0 {
		t.Fatalf("due before threshold: %+v", due)
	}
	due := sc.Due(3001)
	if len(due) != 3 {
		t.Fatalf("due = %+v, want all three", due)
	}
	if due[0].Action != ActionSuspend || due[1].Action != ActionResume {
		t.Errorf("same-threshold commands out of insertion order: %+v", due)
	}
	if len(sc.Due(10000)) != 0 {
		t.Error("commands fired twice")
	}
	if len(sc.Fired()) != 3 {
		t.Errorf("fired = %d, want 3", len(sc.Fired()))
	}
}

func TestScenario_CommandErrorsAreJoined(t *testing.T) {
	sc := NewScenario(
		Command{At: 0, Action: ActionResume, Task: 1},
		Command{At: 0, Action: ActionSuspend, Task: 2},
	)
	ctl := &fakeController{fail: map[TaskID]error{1: ErrTerminated}}

	err := sc.OnSwitch(0, ctl)
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("err = %v, want ErrTerminated", err)
	}
	if len(ctl.calls) != 2 {
		t.Errorf("a failing command stopped the rest: %v", ctl.calls)
	}
}

func TestScenarioFromConfig(t *testing.T) {
	sc, err := ScenarioFromConfig([]CommandConfig{{At: 5, Command: " Suspend ", Task: 3}})
	if err != nil {
		t.Fatalf("ScenarioFromConfig: %v", err)
	}
	due := sc.Due(5)
	if len(due) != 1 || due[0].Action != ActionSuspend || due[0].Task != 3 {
		t.Errorf("due = %+v", due)
	}

	if _, err := ScenarioFromConfig([]CommandConfig{{Command: "restart"}}); err == nil {
		t.Error("expected error for unknown command")
	}
}
