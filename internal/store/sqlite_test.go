package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/checklist/internal/model"
)

func newSQLiteBackend(t *testing.T, path string) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("new sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleSnapshot(t *testing.T) Snapshot {
	t.Helper()
	due, err := time.Parse(time.RFC3339, "2026-03-01T09:30:00+02:00")
	if err != nil {
		t.Fatalf("parse due: %v", err)
	}
	created := time.Date(2026, 2, 1, 8, 0, 0, 123456789, time.UTC)

	return Snapshot{
		Tasks: []model.Task{
			{ID: "1712345678901.42", Title: "Groceries", DueDate: due, Note: "shop", CreatedAt: created},
		},
		Subtasks: []model.Subtask{
			{ID: "s1", TaskID: "1712345678901.42", Text: "Buy milk", Note: "2% milk", Completed: true},
			{ID: "s2", TaskID: "1712345678901.42", Text: "Bread", SortOrder: 1},
		},
		History: []model.HistoryEntry{
			{ID: "h1", Title: "Taxes", DueDate: due, CompletedAt: created},
		},
		HistorySubtasks: []model.HistorySubtask{
			{ID: "hs1", HistoryID: "h1", Text: "File", Completed: true},
		},
	}
}

func TestSQLiteMigrationsApplied(t *testing.T) {
	b := newSQLiteBackend(t, ":memory:")

	v, err := b.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), v)
	}
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checklist.db")
	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b = newSQLiteBackend(t, path)
	var rows int
	if err := b.db.Get(&rows, "SELECT COUNT(*) FROM schema_version"); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if rows != len(migrations) {
		t.Fatalf("expected %d version rows after reopen, got %d", len(migrations), rows)
	}
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t, ":memory:")
	want := sampleSnapshot(t)

	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got.Tasks) != 1 || len(got.Subtasks) != 2 || len(got.History) != 1 || len(got.HistorySubtasks) != 1 {
		t.Fatalf("unexpected snapshot sizes: %#v", got)
	}
	task := got.Tasks[0]
	if task.ID != "1712345678901.42" || task.Title != "Groceries" || task.Note != "shop" {
		t.Fatalf("unexpected task: %#v", task)
	}
	if !task.DueDate.Equal(want.Tasks[0].DueDate) || !task.CreatedAt.Equal(want.Tasks[0].CreatedAt) {
		t.Fatalf("timestamps changed: got due=%v created=%v", task.DueDate, task.CreatedAt)
	}
	if !got.Subtasks[0].Completed || got.Subtasks[0].Note != "2% milk" {
		t.Fatalf("unexpected subtask: %#v", got.Subtasks[0])
	}
	if !got.History[0].CompletedAt.Equal(want.History[0].CompletedAt) {
		t.Fatalf("completion time changed: %v", got.History[0].CompletedAt)
	}
}

func TestSQLiteSaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t, ":memory:")

	if err := b.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Save(ctx, Snapshot{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d records", got.Len())
	}
}

func TestSQLiteSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t, ":memory:")
	if err := b.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The orphan subtask violates the foreign key, so nothing may change.
	bad := Snapshot{Subtasks: []model.Subtask{{ID: "x", TaskID: "missing", Text: "x"}}}
	err := b.Save(ctx, bad)
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Tasks) != 1 || len(got.Subtasks) != 2 {
		t.Fatalf("failed save must leave prior rows intact, got %#v", got)
	}
}

func TestSQLiteCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t, ":memory:")
	if _, err := b.db.Exec(
		"INSERT INTO tasks (id, title, due_date, created_at) VALUES ('t', 'x', 'not a date', 'nope')",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := b.Load(ctx)
	var se *model.StorageError
	if !errors.As(err, &se) || se.Kind != model.StorageCorrupt {
		t.Fatalf("expected corrupt storage error, got %v", err)
	}
}

func TestStoreOverSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checklist.db")

	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s := openStore(t, b, time.Hour)
	putTaskWithSubtask(t, s, "t1", "s1")
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = openStore(t, newSQLiteBackend(t, path), 0)
	_ = s.View(func(tx *Tx) error {
		if _, ok := tx.Task("t1"); !ok {
			t.Fatalf("task should survive reopen")
		}
		if len(tx.Subtasks("t1")) != 1 {
			t.Fatalf("subtask should survive reopen")
		}
		return nil
	})
}

func TestStoreOverSQLiteKeepsUnreadableRowsBeforeOverwrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checklist.db")

	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s := openStore(t, b, 0)
	putTaskWithSubtask(t, s, "good1", "s1")
	putTaskWithSubtask(t, s, "good2", "s2")
	if _, err := b.db.Exec(
		"INSERT INTO tasks (id, title, due_date, created_at) VALUES ('bad', 'x', 'whenever', 'nope')",
	); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = openStore(t, newSQLiteBackend(t, path), 0)
	if s.LoadErr() == nil {
		t.Fatalf("expected LoadErr for the unreadable row")
	}
	putTaskWithSubtask(t, s, "new", "s3")
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close after write: %v", err)
	}

	kept := newSQLiteBackend(t, path+".corrupt")
	var ids []string
	if err := kept.db.Select(&ids, "SELECT id FROM tasks ORDER BY id"); err != nil {
		t.Fatalf("read preserved copy: %v", err)
	}
	if len(ids) != 3 || ids[0] != "bad" || ids[1] != "good1" || ids[2] != "good2" {
		t.Fatalf("preserved copy should hold every row from before the write, got %v", ids)
	}

	current := newSQLiteBackend(t, path)
	snap, err := current.Load(ctx)
	if err != nil {
		t.Fatalf("load rewritten db: %v", err)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].ID != "new" {
		t.Fatalf("unexpected rewritten tasks: %#v", snap.Tasks)
	}
}

func TestSQLitePreserveInMemoryIsNoop(t *testing.T) {
	if err := newSQLiteBackend(t, ":memory:").Preserve(context.Background()); err != nil {
		t.Fatalf("preserve: %v", err)
	}
}
