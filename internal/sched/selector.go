package sched

import (
	"fmt"
	"math"
)

// SelectionPolicy decides how SelectNext picks among Running tasks when the
// current task is not suspended.
type SelectionPolicy string

const (
	// PolicyMinimum makes one full circular pass starting after the current
	// slot and ending on it, and picks the Running slot with the smallest
	// priority. Ties go to the slot met first.
	PolicyMinimum SelectionPolicy = "minimum"
	// PolicyLegacy picks the first Running slot after the current one whose
	// priority is below the running minimum seeded at MaxUint32. With more
	// than one slot the current one is never examined, so a lone Running
	// current task ends the run.
	PolicyLegacy SelectionPolicy = "legacy"
)

// ParsePolicy validates a policy name. Empty selects PolicyMinimum.
func ParsePolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(s) {
	case "", PolicyMinimum:
		return PolicyMinimum, nil
	case PolicyLegacy:
		return PolicyLegacy, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", s)
	}
}

// selectSuspended scans forward from cur+1 for the first Running slot.
func selectSuspended(tasks []*Task, cur int) (int, bool) {
	n := len(tasks)
	for next := (cur + 1) % n; next != cur; next = (next + 1) % n {
		if tasks[next].State == StateRunning {
			return next, true
		}
	}
	return cur, false
}

func selectMinimum(tasks []*Task, cur int) (int, bool) {
	n := len(tasks)
	best, found := cur, false
	minPriority := uint32(math.MaxUint32)
	for i := 1; i <= n; i++ {
		next := (cur + i) % n
		t := tasks[next]
		if t.State == StateRunning && (!found || t.Priority < minPriority) {
			best, minPriority, found = next, t.Priority, true
		}
	}
	return best, found
}

func selectLegacy(tasks []*Task, cur int) (int, bool) {
	n := len(tasks)
	minPriority := uint32(math.MaxUint32)
	next := (cur + 1) % n
	for {
		t := tasks[next]
		if t.State == StateRunning && t.Priority < minPriority {
			return next, true
		}
		next = (next + 1) % n
		if next == cur {
			return cur, false
		}
	}
}
