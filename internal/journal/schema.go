package journal

// Schema contains SQL schema definitions for the processing journal.
// Only identifiers and outcomes are stored, never message content.
const Schema = `
-- Runs table: one row per batch
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mailbox TEXT NOT NULL,
    criteria TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    fetched INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

-- Actions table: one row per step applied to a message
CREATE TABLE IF NOT EXISTS actions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL DEFAULT '',
    mailbox TEXT NOT NULL,
    message_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    folder TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_actions_run_id ON actions(run_id);
CREATE INDEX IF NOT EXISTS idx_actions_message ON actions(mailbox, message_id);
`
