package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nhle/checklist/internal/model"
)

// SQLiteBackend persists snapshots in a local SQLite database.
type SQLiteBackend struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteBackend opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Pragmas and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	b := &SQLiteBackend{db: db, path: dbPath}
	if err := b.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return b, nil
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Preserve copies the database to "<path>.corrupt", or the first free
// "<path>.corrupt.N", so rows that failed to load survive the next Save.
// In-memory databases have nothing to preserve.
func (b *SQLiteBackend) Preserve(ctx context.Context) error {
	if b.path == "" || strings.Contains(b.path, ":memory:") {
		return nil
	}
	dst, err := freePath(b.path + ".corrupt")
	if err != nil {
		return err
	}
	// VACUUM INTO includes whatever is still in the WAL.
	if _, err := b.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return mapSQLiteError("copying database to "+dst, err)
	}
	log.Printf("store: copied unreadable database to %s", dst)
	return nil
}

// freePath returns base, or base with the smallest ".N" suffix that does
// not exist yet.
func freePath(base string) (string, error) {
	path := base
	for n := 2; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
		path = fmt.Sprintf("%s.%d", base, n)
	}
}

// SchemaVersion returns the highest applied migration version.
func (b *SQLiteBackend) SchemaVersion() (int, error) {
	var v int
	if err := b.db.Get(&v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order, each in its own transaction.
func (b *SQLiteBackend) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := b.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		if currentVersion, err = b.SchemaVersion(); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := b.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type taskRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	DueDate   string `db:"due_date"`
	Note      string `db:"note"`
	CreatedAt string `db:"created_at"`
}

type subtaskRow struct {
	ID        string `db:"id"`
	TaskID    string `db:"task_id"`
	Text      string `db:"text"`
	Note      string `db:"note"`
	Completed int    `db:"completed"`
	SortOrder int    `db:"sort_order"`
}

type historyRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	DueDate     string `db:"due_date"`
	Note        string `db:"note"`
	CompletedAt string `db:"completed_at"`
}

type historySubtaskRow struct {
	ID        string `db:"id"`
	HistoryID string `db:"history_id"`
	Text      string `db:"text"`
	Note      string `db:"note"`
	Completed int    `db:"completed"`
	SortOrder int    `db:"sort_order"`
}

// Load reads every row into a snapshot.
func (b *SQLiteBackend) Load(ctx context.Context) (Snapshot, error) {
	var (
		snap     Snapshot
		tasks    []taskRow
		subtasks []subtaskRow
		history  []historyRow
		hsubs    []historySubtaskRow
	)

	if err := b.db.SelectContext(ctx, &tasks,
		"SELECT id, title, due_date, note, created_at FROM tasks ORDER BY id"); err != nil {
		return Snapshot{}, mapSQLiteError("loading tasks", err)
	}
	if err := b.db.SelectContext(ctx, &subtasks,
		"SELECT id, task_id, text, note, completed, sort_order FROM subtasks ORDER BY id"); err != nil {
		return Snapshot{}, mapSQLiteError("loading subtasks", err)
	}
	if err := b.db.SelectContext(ctx, &history,
		"SELECT id, title, due_date, note, completed_at FROM history ORDER BY id"); err != nil {
		return Snapshot{}, mapSQLiteError("loading history", err)
	}
	if err := b.db.SelectContext(ctx, &hsubs,
		"SELECT id, history_id, text, note, completed, sort_order FROM history_subtasks ORDER BY id"); err != nil {
		return Snapshot{}, mapSQLiteError("loading history subtasks", err)
	}

	for _, r := range tasks {
		due, err := parseTime(r.DueDate)
		if err != nil {
			return Snapshot{}, corrupt("task "+r.ID, err)
		}
		created, err := parseTime(r.CreatedAt)
		if err != nil {
			return Snapshot{}, corrupt("task "+r.ID, err)
		}
		snap.Tasks = append(snap.Tasks, model.Task{
			ID: r.ID, Title: r.Title, DueDate: due, Note: r.Note, CreatedAt: created,
		})
	}
	for _, r := range subtasks {
		snap.Subtasks = append(snap.Subtasks, model.Subtask{
			ID: r.ID, TaskID: r.TaskID, Text: r.Text, Note: r.Note,
			Completed: r.Completed != 0, SortOrder: r.SortOrder,
		})
	}
	for _, r := range history {
		due, err := parseTime(r.DueDate)
		if err != nil {
			return Snapshot{}, corrupt("history entry "+r.ID, err)
		}
		completed, err := parseTime(r.CompletedAt)
		if err != nil {
			return Snapshot{}, corrupt("history entry "+r.ID, err)
		}
		snap.History = append(snap.History, model.HistoryEntry{
			ID: r.ID, Title: r.Title, DueDate: due, Note: r.Note, CompletedAt: completed,
		})
	}
	for _, r := range hsubs {
		snap.HistorySubtasks = append(snap.HistorySubtasks, model.HistorySubtask{
			ID: r.ID, HistoryID: r.HistoryID, Text: r.Text, Note: r.Note,
			Completed: r.Completed != 0, SortOrder: r.SortOrder,
		})
	}

	return snap, nil
}

// Save replaces the stored rows with snap in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, snap Snapshot) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapSQLiteError("beginning transaction", err)
	}
	defer tx.Rollback()

	// Children first so the cascade has nothing left to do.
	for _, table := range []string{"history_subtasks", "history", "subtasks", "tasks"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return mapSQLiteError("clearing "+table, err)
		}
	}

	taskRows := make([]taskRow, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		taskRows = append(taskRows, taskRow{
			ID: t.ID, Title: t.Title, DueDate: formatTime(t.DueDate),
			Note: t.Note, CreatedAt: formatTime(t.CreatedAt),
		})
	}
	if err := insertRows(ctx, tx, `
		INSERT INTO tasks (id, title, due_date, note, created_at)
		VALUES (:id, :title, :due_date, :note, :created_at)`, taskRows); err != nil {
		return mapSQLiteError("saving tasks", err)
	}

	subRows := make([]subtaskRow, 0, len(snap.Subtasks))
	for _, st := range snap.Subtasks {
		subRows = append(subRows, subtaskRow{
			ID: st.ID, TaskID: st.TaskID, Text: st.Text, Note: st.Note,
			Completed: boolToInt(st.Completed), SortOrder: st.SortOrder,
		})
	}
	if err := insertRows(ctx, tx, `
		INSERT INTO subtasks (id, task_id, text, note, completed, sort_order)
		VALUES (:id, :task_id, :text, :note, :completed, :sort_order)`, subRows); err != nil {
		return mapSQLiteError("saving subtasks", err)
	}

	histRows := make([]historyRow, 0, len(snap.History))
	for _, h := range snap.History {
		histRows = append(histRows, historyRow{
			ID: h.ID, Title: h.Title, DueDate: formatTime(h.DueDate),
			Note: h.Note, CompletedAt: formatTime(h.CompletedAt),
		})
	}
	if err := insertRows(ctx, tx, `
		INSERT INTO history (id, title, due_date, note, completed_at)
		VALUES (:id, :title, :due_date, :note, :completed_at)`, histRows); err != nil {
		return mapSQLiteError("saving history", err)
	}

	hsRows := make([]historySubtaskRow, 0, len(snap.HistorySubtasks))
	for _, hs := range snap.HistorySubtasks {
		hsRows = append(hsRows, historySubtaskRow{
			ID: hs.ID, HistoryID: hs.HistoryID, Text: hs.Text, Note: hs.Note,
			Completed: boolToInt(hs.Completed), SortOrder: hs.SortOrder,
		})
	}
	if err := insertRows(ctx, tx, `
		INSERT INTO history_subtasks (id, history_id, text, note, completed, sort_order)
		VALUES (:id, :history_id, :text, :note, :completed, :sort_order)`, hsRows); err != nil {
		return mapSQLiteError("saving history subtasks", err)
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteError("committing snapshot", err)
	}
	return nil
}

// insertRows executes a named insert once per row with a prepared statement.
func insertRows[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// mapSQLiteError wraps err as a StorageError, classifying a full database
// as a quota failure.
func mapSQLiteError(op string, err error) error {
	kind := model.StorageUnavailable
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		kind = model.StorageQuota
	}
	return &model.StorageError{Op: op, Kind: kind, Err: err}
}

func corrupt(what string, err error) error {
	return &model.StorageError{Op: "decoding " + what, Kind: model.StorageCorrupt, Err: err}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
