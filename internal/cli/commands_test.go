package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/checklist/internal/migrate"
)

// writeConfig writes a config that keeps all state under a temp dir.
func writeConfig(t *testing.T, backend string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	dataPath := filepath.Join(dir, "checklist.db")
	if backend == "blob" {
		dataPath = filepath.Join(dir, "blob")
	}
	cfg := fmt.Sprintf(`storage:
  backend: %s
  path: %s
  flush_delay_ms: 0
  legacy_path: %s
notifications:
  enabled: false
`, backend, dataPath, filepath.Join(dir, "legacy"))

	cfgPath = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return cfgPath, dir
}

func execute(cfgPath string, args ...string) (string, error) {
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func run(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := execute(cfgPath, args...)
	if err != nil {
		t.Fatalf("checklist %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestTaskLifecycle(t *testing.T) {
	cfg, _ := writeConfig(t, "sqlite")

	taskID := strings.TrimSpace(run(t, cfg, "add", "Buy", "groceries", "--due", "2026-04-01 18:00"))
	if taskID == "" {
		t.Fatalf("add should print the new id")
	}
	subID := strings.TrimSpace(run(t, cfg, "subtask", "add", taskID, "Buy milk"))
	run(t, cfg, "subtask", "note", taskID, subID, "2% milk")
	run(t, cfg, "subtask", "toggle", taskID, subID)

	show := run(t, cfg, "show", taskID)
	for _, want := range []string{"Buy groceries", "[x]", "Buy milk (2% milk)", "100%"} {
		if !strings.Contains(show, want) {
			t.Fatalf("show output missing %q:\n%s", want, show)
		}
	}

	if list := run(t, cfg, "list"); !strings.Contains(list, "Buy groceries") {
		t.Fatalf("list should contain the task:\n%s", list)
	}

	run(t, cfg, "complete", taskID)
	if list := run(t, cfg, "list"); !strings.Contains(list, "no tasks") {
		t.Fatalf("completed task should leave the list:\n%s", list)
	}
	history := run(t, cfg, "history")
	if !strings.Contains(history, "Buy groceries") || !strings.Contains(history, taskID) {
		t.Fatalf("history should contain the completed task:\n%s", history)
	}

	restoredID := strings.TrimSpace(run(t, cfg, "restore", taskID))
	if restoredID == "" || restoredID == taskID {
		t.Fatalf("restore should print a new id, got %q", restoredID)
	}
	show = run(t, cfg, "show", restoredID)
	if !strings.Contains(show, "[ ]") || strings.Contains(show, "[x]") {
		t.Fatalf("restored subtasks should be unchecked:\n%s", show)
	}
	if history := run(t, cfg, "history"); !strings.Contains(history, "no completed tasks") {
		t.Fatalf("restore should remove the history entry:\n%s", history)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	cfg, _ := writeConfig(t, "sqlite")

	id := strings.TrimSpace(run(t, cfg, "add", "Temp", "--due", "2026-04-01"))
	run(t, cfg, "delete", id)
	run(t, cfg, "delete", id)
	run(t, cfg, "delete", "--history", "missing")
}

func TestBlobBackendPersistsAcrossRuns(t *testing.T) {
	cfg, dir := writeConfig(t, "blob")

	run(t, cfg, "add", "Passport", "--due", "2026-05-01")
	if _, err := os.Stat(filepath.Join(dir, "blob", "state")); err != nil {
		t.Fatalf("blob state should be written: %v", err)
	}
	if list := run(t, cfg, "list"); !strings.Contains(list, "Passport") {
		t.Fatalf("task should survive a restart:\n%s", list)
	}
}

func TestStartupMigratesLegacyData(t *testing.T) {
	cfg, dir := writeConfig(t, "sqlite")
	src := migrate.NewDiskvSource(filepath.Join(dir, "legacy"))
	legacy := `[{"id": 1712345678901, "title": "Groceries", "dueDate": "2026-04-01T18:00",
	  "subtasks": [{"id": 1712345679000, "text": "Buy milk", "completed": true}]}]`
	if err := src.Write(migrate.KeyTasks, []byte(legacy)); err != nil {
		t.Fatalf("seeding legacy data: %v", err)
	}

	list := run(t, cfg, "list")
	if !strings.Contains(list, "Groceries") || !strings.Contains(list, "1712345678901") {
		t.Fatalf("legacy task should be migrated on startup:\n%s", list)
	}
	if _, ok, _ := src.Read(migrate.KeyTasks); ok {
		t.Fatalf("legacy key should be erased after migration")
	}

	out := run(t, cfg, "migrate")
	if !strings.Contains(out, "no legacy data") {
		t.Fatalf("second migration should find nothing, got %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	cfg, _ := writeConfig(t, "sqlite")

	cases := map[string][]string{
		"missing due":     {"add", "No due"},
		"bad due":         {"add", "Bad", "--due", "someday"},
		"unknown task":    {"complete", "nope"},
		"edit no changes": {"edit", "nope"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(cfg, args...); err == nil {
				t.Fatalf("expected an error for %v", args)
			}
		})
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "nested", "config.yaml")

	run(t, cfg, "config", "init")
	data, err := os.ReadFile(cfg)
	if err != nil {
		t.Fatalf("config file should exist: %v", err)
	}
	if !strings.Contains(string(data), "flush_delay_ms") {
		t.Fatalf("config file missing storage settings:\n%s", data)
	}

	if out := run(t, cfg, "config"); !strings.Contains(out, "sqlite") {
		t.Fatalf("config should show the backend:\n%s", out)
	}
}
