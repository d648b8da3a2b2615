package sched

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"coopsched/internal/logging"
)

// Sink receives status events. It is purely observational: nothing in the
// scheduler depends on what a sink does with an event.
type Sink interface {
	Emit(ev StatusEvent)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev StatusEvent)

func (f SinkFunc) Emit(ev StatusEvent) { f(ev) }

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ev StatusEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// LogSink writes events as structured log records.
// Tick events are logged at debug level since they dominate the stream.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.Component(logger, "sched")}
}

func (l *LogSink) Emit(ev StatusEvent) {
	level := slog.LevelInfo
	switch ev.Kind {
	case StatusTick:
		level = slog.LevelDebug
	case StatusContend, StatusIdle:
		level = slog.LevelDebug
	}
	if !l.logger.Enabled(context.Background(), level) {
		return
	}

	attrs := []slog.Attr{
		slog.Uint64("exec_time", ev.ExecTime),
		slog.Uint64("tick", ev.Tick),
	}
	if ev.Kind != StatusTick {
		attrs = append(attrs,
			slog.Int("slot", ev.Slot),
			slog.Uint64("task_id", uint64(ev.TaskID)),
			slog.String("state", ev.State.String()),
			slog.Uint64("priority", uint64(ev.Priority)),
		)
	}
	if ev.Detail != "" {
		attrs = append(attrs, slog.String("detail", ev.Detail))
	}
	l.logger.LogAttrs(context.Background(), level, ev.Kind.String(), attrs...)
}

// CSVSink appends one row per event. Tick events are skipped for brevity.
type CSVSink struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
}

var csvHeader = []string{"timestamp", "tick", "exec_time", "event", "slot", "task_id", "state", "priority", "detail"}

// NewCSVSink writes the header and returns a sink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	cw.Flush()
	return &CSVSink{w: cw}
}

// CreateCSVSink creates (or truncates) path and logs events to it.
func CreateCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

func (s *CSVSink) Emit(ev StatusEvent) {
	if ev.Kind == StatusTick {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Write([]string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatUint(ev.Tick, 10),
		strconv.FormatUint(ev.ExecTime, 10),
		ev.Kind.String(),
		strconv.Itoa(ev.Slot),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		ev.State.String(),
		strconv.FormatUint(uint64(ev.Priority), 10),
		ev.Detail,
	})
	s.w.Flush()
}

// Close flushes and closes the underlying file, if the sink owns one.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if s.closer != nil {
		return s.closer.Close()
	}
	return s.w.Error()
}

// Counter tallies events by kind.
type Counter struct {
	mu     sync.Mutex
	counts map[StatusKind]int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[StatusKind]int)}
}

func (c *Counter) Emit(ev StatusEvent) {
	c.mu.Lock()
	c.counts[ev.Kind]++
	c.mu.Unlock()
}

// Count returns how many events of kind were seen.
func (c *Counter) Count(kind StatusKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}
