package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Timestamps are TEXT in RFC 3339 with nanoseconds so zone offsets survive
// a round trip.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	due_date   TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subtasks (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	completed  INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_subtasks_task_id ON subtasks(task_id);

CREATE TABLE IF NOT EXISTS history (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	due_date     TEXT NOT NULL,
	note         TEXT NOT NULL DEFAULT '',
	completed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history_subtasks (
	id         TEXT PRIMARY KEY,
	history_id TEXT NOT NULL REFERENCES history(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	completed  INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_history_subtasks_history_id ON history_subtasks(history_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_history_completed_at ON history(completed_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
