package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action kinds
const (
	KindFetch    = "fetch"
	KindHandle   = "handle"
	KindMarkRead = "mark_read"
	KindMove     = "move"
)

// Action outcomes
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Run is one batch as recorded in the journal.
type Run struct {
	ID         string     `db:"id" json:"id"`
	Mailbox    string     `db:"mailbox" json:"mailbox"`
	Criteria   string     `db:"criteria" json:"criteria"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Fetched    int        `db:"fetched" json:"fetched"`
	Failed     int        `db:"failed" json:"failed"`
	Error      string     `db:"error" json:"error,omitempty"`
}

// Action is one step applied to one message. RunID is empty for actions
// issued outside a batch.
type Action struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id,omitempty"`
	Mailbox   string    `db:"mailbox" json:"mailbox"`
	MessageID string    `db:"message_id" json:"message_id"`
	Kind      string    `db:"kind" json:"kind"`
	Folder    string    `db:"folder" json:"folder,omitempty"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StartRun inserts a new run. run.ID must be set by the caller.
func (j *Journal) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, mailbox, criteria, started_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Mailbox, run.Criteria, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores the totals of a run. A nil runErr records success.
func (j *Journal) FinishRun(ctx context.Context, runID string, fetched, failed int, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	result, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, fetched = ?, failed = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC(), fetched, failed, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordAction appends an action to the journal
func (j *Journal) RecordAction(ctx context.Context, action Action) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO actions (run_id, mailbox, message_id, kind, folder, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.RunID, action.Mailbox, action.MessageID, action.Kind,
		action.Folder, action.Outcome, action.Error, action.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := []Run{}
	err := j.db.SelectContext(ctx, &runs, `
		SELECT id, mailbox, criteria, started_at, finished_at, fetched, failed, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ActionFilter contains search parameters for SearchActions
type ActionFilter struct {
	RunID     *string
	Mailbox   *string
	MessageID *string
	Kind      *string
	Outcome   *string
	Limit     int
}

// SearchActions returns actions matching every set field of filter, newest first
func (j *Journal) SearchActions(ctx context.Context, filter ActionFilter) ([]Action, error) {
	var conditions []string
	var args []interface{}

	// Build WHERE clause
	if filter.RunID != nil {
		conditions = append(conditions, "run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.Mailbox != nil {
		conditions = append(conditions, "mailbox = ?")
		args = append(args, *filter.Mailbox)
	}
	if filter.MessageID != nil {
		conditions = append(conditions, "message_id = ?")
		args = append(args, *filter.MessageID)
	}
	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, *filter.Kind)
	}
	if filter.Outcome != nil {
		conditions = append(conditions, "outcome = ?")
		args = append(args, *filter.Outcome)
	}

	query := `SELECT id, run_id, mailbox, message_id, kind, folder, outcome, error, created_at FROM actions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	actions := []Action{}
	if err := j.db.SelectContext(ctx, &actions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search actions: %w", err)
	}
	return actions, nil
}
