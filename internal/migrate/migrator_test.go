package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/store"
	"github.com/nhle/checklist/tests/testutil"
)

const legacyTasksJSON = `[
  {"id": 1712345678901, "title": "Groceries", "dueDate": "2026-04-01T18:00", "note": "weekly",
   "subtasks": [
     {"id": 1712345679000, "text": "Buy milk", "note": "2% milk", "completed": true},
     {"id": 1712345679000.5123, "text": "Bread", "completed": false}
   ]},
  {"id": 1712345678901.42, "title": "Restored thing", "dueDate": "2026-05-01T09:00", "subtasks": []}
]`

const legacyHistoryJSON = `[
  {"id": 1700000000000, "title": "Taxes", "dueDate": "2026-03-15T12:00", "note": null,
   "completedDate": "2026-03-14T10:11:12.345Z",
   "subtasks": [{"id": 1700000000001, "text": "File", "completed": true}]}
]`

func seedLegacy(t *testing.T, tasks, history string) *DiskvSource {
	t.Helper()
	src := NewDiskvSource(filepath.Join(t.TempDir(), "legacy"))
	if tasks != "" {
		if err := src.Write(KeyTasks, []byte(tasks)); err != nil {
			t.Fatalf("seed tasks: %v", err)
		}
	}
	if history != "" {
		if err := src.Write(KeyHistory, []byte(history)); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
	return src
}

func hasKey(t *testing.T, src *DiskvSource, key string) bool {
	t.Helper()
	_, ok, err := src.Read(key)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return ok
}

func TestRunNoLegacyData(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	src := seedLegacy(t, "", "")

	res, err := New(src, repo).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != NoLegacyData {
		t.Fatalf("expected NoLegacyData, got %v", res.Status)
	}
}

func TestRunMigratesAndErasesLegacy(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	src := seedLegacy(t, legacyTasksJSON, legacyHistoryJSON)

	res, err := New(src, repo).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != Migrated || res.Tasks != 2 || res.History != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if hasKey(t, src, KeyTasks) || hasKey(t, src, KeyHistory) {
		t.Fatalf("legacy keys should be erased after a successful migration")
	}

	task, err := repo.GetTask(ctx, "1712345678901")
	if err != nil {
		t.Fatalf("get migrated task: %v", err)
	}
	if task.Title != "Groceries" || task.Note != "weekly" {
		t.Fatalf("unexpected task: %#v", task)
	}
	wantDue := time.Date(2026, 4, 1, 18, 0, 0, 0, time.Local)
	if !task.DueDate.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, task.DueDate)
	}
	if !task.CreatedAt.Equal(time.UnixMilli(1712345678901)) {
		t.Fatalf("creation time should come from the id, got %v", task.CreatedAt)
	}
	if len(task.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(task.Subtasks))
	}
	if task.Subtasks[0].Text != "Buy milk" || !task.Subtasks[0].Completed || task.Subtasks[0].Note != "2% milk" {
		t.Fatalf("unexpected first subtask: %#v", task.Subtasks[0])
	}
	if task.Subtasks[1].ID != "1712345679000.5123" || task.Subtasks[1].Note != "" {
		t.Fatalf("fractional subtask id or missing note mishandled: %#v", task.Subtasks[1])
	}

	if _, err := repo.GetTask(ctx, "1712345678901.42"); err != nil {
		t.Fatalf("fractional task id should survive: %v", err)
	}

	entry, err := repo.GetHistoryEntry(ctx, "1700000000000")
	if err != nil {
		t.Fatalf("get migrated history: %v", err)
	}
	wantCompleted := time.Date(2026, 3, 14, 10, 11, 12, 345000000, time.UTC)
	if !entry.CompletedAt.Equal(wantCompleted) || entry.Note != "" {
		t.Fatalf("unexpected history entry: %#v", entry)
	}
	if len(entry.Subtasks) != 1 || !entry.Subtasks[0].Completed {
		t.Fatalf("unexpected history subtasks: %#v", entry.Subtasks)
	}
}

func TestRunTwiceDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	src := seedLegacy(t, legacyTasksJSON, legacyHistoryJSON)
	m := New(src, repo)

	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Put the legacy keys back, as if erase had failed.
	if err := src.Write(KeyTasks, []byte(legacyTasksJSON)); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	res, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Status != SkippedTargetNotEmpty {
		t.Fatalf("expected skip on second run, got %v", res.Status)
	}
	if !hasKey(t, src, KeyTasks) {
		t.Fatalf("skipped run must keep legacy keys")
	}

	tasks, _ := repo.ListTasks(ctx)
	history, _ := repo.ListHistory(ctx)
	if len(tasks) != 2 || len(history) != 1 {
		t.Fatalf("expected 2 tasks and 1 history entry, got %d and %d", len(tasks), len(history))
	}
}

func TestRunSkipsNonEmptyTarget(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	if _, err := repo.AddTask(ctx, "existing", "2026-04-01"); err != nil {
		t.Fatalf("add: %v", err)
	}
	src := seedLegacy(t, legacyTasksJSON, "")

	res, err := New(src, repo).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != SkippedTargetNotEmpty {
		t.Fatalf("expected skip, got %v", res.Status)
	}
	tasks, _ := repo.ListTasks(ctx)
	if len(tasks) != 1 {
		t.Fatalf("target must be untouched, got %d tasks", len(tasks))
	}
}

func TestRunSkipsUnreadableTarget(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "state"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}
	s, err := store.Open(ctx, store.NewBlobBackend(dataDir, 0), store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	repo := repository.New(s)
	src := seedLegacy(t, legacyTasksJSON, legacyHistoryJSON)

	res, err := New(src, repo).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != SkippedTargetUnreadable {
		t.Fatalf("expected SkippedTargetUnreadable, got %v", res.Status)
	}
	if !repo.Empty(ctx) {
		t.Fatalf("nothing should be imported over unreadable data")
	}
	if !hasKey(t, src, KeyTasks) || !hasKey(t, src, KeyHistory) {
		t.Fatalf("legacy keys must be kept")
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, "state"))
	if err != nil || string(raw) != "not json" {
		t.Fatalf("saved state must be untouched: %q, %v", raw, err)
	}
}

func TestRunCorruptLegacyKeepsEverything(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct{ tasks, history string }{
		"bad json":           {tasks: `[{"id": 1, "title": `},
		"bad due date":       {tasks: `[{"id": 1, "title": "x", "dueDate": "whenever"}]`},
		"bad completed date": {history: `[{"id": 2, "title": "y", "dueDate": "2026-01-01T10:00", "completedDate": "yesterday"}]`},
		"missing id":         {tasks: `[{"title": "x", "dueDate": "2026-01-01T10:00"}]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo := testutil.NewTestRepository(t)
			src := seedLegacy(t, tc.tasks, tc.history)

			if _, err := New(src, repo).Run(ctx); err == nil {
				t.Fatalf("expected an error")
			}
			if !repo.Empty(ctx) {
				t.Fatalf("target must be untouched")
			}
			if tc.tasks != "" && !hasKey(t, src, KeyTasks) {
				t.Fatalf("legacy tasks must be kept")
			}
			if tc.history != "" && !hasKey(t, src, KeyHistory) {
				t.Fatalf("legacy history must be kept")
			}
		})
	}
}

func TestRunDeduplicatesCollidingIDs(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	src := seedLegacy(t, `[
	  {"id": 5, "title": "a", "dueDate": "2026-01-01T10:00", "subtasks": [{"id": 9, "text": "x"}]},
	  {"id": 5, "title": "b", "dueDate": "2026-01-02T10:00", "subtasks": [{"id": 9, "text": "y"}]}
	]`, "")

	res, err := New(src, repo).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Tasks != 2 {
		t.Fatalf("expected 2 tasks, got %d", res.Tasks)
	}
	second, err := repo.GetTask(ctx, "5-2")
	if err != nil {
		t.Fatalf("colliding id should be suffixed: %v", err)
	}
	if len(second.Subtasks) != 1 || second.Subtasks[0].ID != "9-2" {
		t.Fatalf("colliding subtask id should be suffixed: %#v", second.Subtasks)
	}
}

// flakyTarget fails Flush after a successful Import.
type flakyTarget struct {
	imported bool
}

func (f *flakyTarget) Empty(context.Context) bool { return !f.imported }
func (f *flakyTarget) LoadErr() error             { return nil }

func (f *flakyTarget) Import(context.Context, []model.Task, []model.HistoryEntry) error {
	f.imported = true
	return nil
}

func (f *flakyTarget) Flush(context.Context) error {
	return &model.StorageError{Op: "flush", Kind: model.StorageQuota}
}

func TestRunKeepsLegacyWhenFlushFails(t *testing.T) {
	src := seedLegacy(t, legacyTasksJSON, legacyHistoryJSON)

	_, err := New(src, &flakyTarget{}).Run(context.Background())
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !hasKey(t, src, KeyTasks) || !hasKey(t, src, KeyHistory) {
		t.Fatalf("legacy keys must be kept when the import is not durable")
	}
}
