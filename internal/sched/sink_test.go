package sched

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func sampleEvent(kind StatusKind) StatusEvent {
	return StatusEvent{
		Time:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Kind:     kind,
		Slot:     1,
		TaskID:   2,
		State:    StateRunning,
		Priority: 2,
		ExecTime: 3000,
		Tick:     42,
	}
}

func TestCSVSink_WritesHeaderAndSkipsTicks(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)
	s.Emit(sampleEvent(StatusTick))
	s.Emit(sampleEvent(StatusSwitch))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][3] != "event" {
		t.Errorf("header = %v", rows[0])
	}
	row := rows[1]
	if row[1] != "42" || row[2] != "3000" || row[3] != "Switch" || row[5] != "2" || row[6] != "Running" {
		t.Errorf("row = %v", row)
	}
}

func TestHistory_KeepsMostRecent(t *testing.T) {
	h := NewHistory(3, false)
	for i := 0; i < 5; i++ {
		ev := sampleEvent(StatusSwitch)
		ev.ExecTime = uint64(i)
		h.Emit(ev)
	}
	h.Emit(sampleEvent(StatusTick))

	events := h.Events()
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.ExecTime != uint64(i+2) {
			t.Errorf("event %d exec_time = %d, want %d", i, ev.ExecTime, i+2)
		}
	}
	if h.Count(StatusTick) != 0 {
		t.Error("tick kept without withTicks")
	}
}

func TestLogSink_LevelsTicksAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := NewLogSink(logger)

	s.Emit(sampleEvent(StatusTick))
	s.Emit(sampleEvent(StatusSuspend))

	out := buf.String()
	if strings.Contains(out, "msg=Tick") {
		t.Errorf("tick logged at info: %s", out)
	}
	for _, want := range []string{"msg=Suspend", "task_id=2", "state=Running", "component=sched"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	a, b := NewHistory(10, true), NewHistory(10, true)
	MultiSink{a, nil, b}.Emit(sampleEvent(StatusRelease))
	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("lens = %d, %d", a.Len(), b.Len())
	}
}

func TestStatusKind_String(t *testing.T) {
	if StatusContend.String() != "Contend" || StatusKind(99).String() != "Unknown" {
		t.Error("unexpected kind names")
	}
	if StateTerminated.String() != "Terminated" || State(9).String() != "Unknown" {
		t.Error("unexpected state names")
	}
}

func TestCounter_TalliesByKind(t *testing.T) {
	c := NewCounter()
	c.Emit(sampleEvent(StatusSwitch))
	c.Emit(sampleEvent(StatusSwitch))
	c.Emit(sampleEvent(StatusTick))
	if c.Count(StatusSwitch) != 2 || c.Count(StatusTick) != 1 || c.Count(StatusExit) != 0 {
		t.Errorf("counts = %d/%d/%d", c.Count(StatusSwitch), c.Count(StatusTick), c.Count(StatusExit))
	}
}
