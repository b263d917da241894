package journal

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.StartRun(ctx, Run{ID: "run-1", Mailbox: "INBOX", Criteria: "UNSEEN", StartedAt: started}))
	require.NoError(t, j.StartRun(ctx, Run{ID: "run-2", Mailbox: "INBOX", Criteria: "ALL", StartedAt: started.Add(time.Hour)}))

	require.NoError(t, j.FinishRun(ctx, "run-1", 5, 1, nil))
	require.NoError(t, j.FinishRun(ctx, "run-2", 0, 0, errors.New("search failed")))

	runs, err := j.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "search failed", runs[0].Error)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 5, runs[1].Fetched)
	assert.Equal(t, 1, runs[1].Failed)
	assert.Empty(t, runs[1].Error)
	require.NotNil(t, runs[1].FinishedAt)
	assert.True(t, runs[1].StartedAt.Equal(started))
}

func TestStartRunRequiresID(t *testing.T) {
	j := newTestJournal(t)
	assert.Error(t, j.StartRun(context.Background(), Run{Mailbox: "INBOX"}))
}

func TestFinishUnknownRun(t *testing.T) {
	j := newTestJournal(t)
	err := j.FinishRun(context.Background(), "missing", 0, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSearchActions(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)

	actions := []Action{
		{RunID: "run-1", Mailbox: "INBOX", MessageID: "7", Kind: KindMarkRead, Outcome: OutcomeOK},
		{RunID: "run-1", Mailbox: "INBOX", MessageID: "7", Kind: KindMove, Folder: "Done", Outcome: OutcomeFailed, Error: "copy failed"},
		{RunID: "run-1", Mailbox: "INBOX", MessageID: "8", Kind: KindMarkRead, Outcome: OutcomeOK},
		{Mailbox: "INBOX", MessageID: "9", Kind: KindMarkRead, Outcome: OutcomeOK},
	}
	for _, a := range actions {
		require.NoError(t, j.RecordAction(ctx, a))
	}

	tests := []struct {
		name   string
		filter ActionFilter
		want   []string
	}{
		{name: "all newest first", filter: ActionFilter{}, want: []string{"9", "8", "7", "7"}},
		{name: "by run", filter: ActionFilter{RunID: strPtr("run-1")}, want: []string{"8", "7", "7"}},
		{name: "by message", filter: ActionFilter{MessageID: strPtr("7")}, want: []string{"7", "7"}},
		{name: "failures", filter: ActionFilter{Outcome: strPtr(OutcomeFailed)}, want: []string{"7"}},
		{name: "by kind and run", filter: ActionFilter{RunID: strPtr("run-1"), Kind: strPtr(KindMarkRead)}, want: []string{"8", "7"}},
		{name: "limit", filter: ActionFilter{Limit: 1}, want: []string{"9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.SearchActions(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.MessageID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	failed, err := j.SearchActions(ctx, ActionFilter{Outcome: strPtr(OutcomeFailed)})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Done", failed[0].Folder)
	assert.Equal(t, "copy failed", failed[0].Error)
	assert.False(t, failed[0].CreatedAt.IsZero())
}

func strPtr(s string) *string { return &s }
