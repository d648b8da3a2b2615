package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"run", "runs", "events"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunCmd_DefaultScenarioEndsAtCap(t *testing.T) {
	out, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "none.yml"), "--journal", "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "execution time limit reached") {
		t.Errorf("missing exit reason in output:\n%s", out)
	}
	if !strings.Contains(out, "slot=0 task=1 priority=3") || !strings.Contains(out, "state=Terminated") {
		t.Errorf("missing task summary in output:\n%s", out)
	}
}

func TestRunCmd_NoActiveTasksIsNotAnError(t *testing.T) {
	cfg := writeFile(t, "config.yml", `
scenario:
  - at: 0
    command: terminate
    task: 1
  - at: 0
    command: suspend
    task: 2
`)
	out, err := execute(t, "run", "--config", cfg, "--journal", "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "no active tasks") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunCmd_RejectsZeroPriority(t *testing.T) {
	cfg := writeFile(t, "config.yml", `
tasks:
  - id: 1
    priority: 0
`)
	if _, err := execute(t, "run", "--config", cfg, "--journal", ""); err == nil {
		t.Fatal("expected registration error")
	}
}

func TestRunCmd_RejectsUnknownSelection(t *testing.T) {
	if _, err := execute(t, "run", "--selection", "fastest", "--journal", ""); err == nil {
		t.Fatal("expected error for unknown selection")
	}
}

func TestRunCmd_CSVAndJournal(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.csv")
	dbPath := filepath.Join(dir, "journal.db")
	cfg := writeFile(t, "config.yml", "execution_cap: 20000\nscenario: []\n")

	out, err := execute(t, "run", "--config", cfg, "--csv", csvPath, "--journal", dbPath, "--selection", "legacy")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	m := regexp.MustCompile(`run_id=(run_\S+)`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", out)
	}
	runID := m[1]

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "timestamp,tick,exec_time,event") || !strings.Contains(string(data), ",Switch,") {
		t.Errorf("csv content:\n%s", data)
	}

	list, err := execute(t, "runs", "--journal", dbPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(list, runID) || !strings.Contains(list, "legacy") {
		t.Errorf("runs output:\n%s", list)
	}

	events, err := execute(t, "events", runID, "--journal", dbPath, "--kind", "Switch")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(events, "Switch") || strings.Contains(events, "Acquire") {
		t.Errorf("events output:\n%s", events)
	}

	if _, err := execute(t, "events", "run_missing", "--journal", dbPath); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestJournalCommands_RequireJournal(t *testing.T) {
	t.Setenv("COOPSCHED_JOURNAL", "")
	if _, err := execute(t, "runs", "--journal", ""); err == nil {
		t.Error("runs without journal should fail")
	}
	if _, err := execute(t, "events", "run_x", "--journal", ""); err == nil {
		t.Error("events without journal should fail")
	}
}

func TestRunCmd_InterruptedRunFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "none.yml"), "--journal", ""})

	err := root.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run err = %v, want context.Canceled", err)
	}
	if !strings.Contains(out.String(), "context canceled") {
		t.Errorf("missing exit reason in output:\n%s", out.String())
	}
}

func TestRootCmd_RejectsUnknownLogSettings(t *testing.T) {
	if _, err := execute(t, "--log-level", "verbose", "runs"); err == nil || !strings.Contains(err.Error(), "log level") {
		t.Errorf("log level: err = %v", err)
	}
	if _, err := execute(t, "--log-format", "xml", "runs"); err == nil || !strings.Contains(err.Error(), "log format") {
		t.Errorf("log format: err = %v", err)
	}
}
