package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL UNIQUE,
	channel        TEXT NOT NULL DEFAULT 'whatsapp',
	timezone       TEXT NOT NULL DEFAULT 'America/Mexico_City',
	active         INTEGER NOT NULL DEFAULT 1,
	is_admin       INTEGER NOT NULL DEFAULT 0,
	last_digest_on TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	due_at       DATETIME,
	priority     TEXT NOT NULL DEFAULT 'medium'
	             CHECK (priority IN ('low', 'medium', 'high')),
	status       TEXT NOT NULL DEFAULT 'pending'
	             CHECK (status IN ('pending', 'done', 'overdue')),
	origin       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id    TEXT REFERENCES tasks(id) ON DELETE CASCADE,
	remind_at  DATETIME NOT NULL,
	channel    TEXT NOT NULL DEFAULT 'whatsapp',
	message    TEXT NOT NULL DEFAULT '',
	sent       INTEGER NOT NULL DEFAULT 0,
	sent_at    DATETIME,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(sent, remind_at);
CREATE INDEX IF NOT EXISTS idx_reminders_task ON reminders(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
