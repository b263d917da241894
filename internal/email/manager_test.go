package email

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-assistant/internal/config"
	"github.com/brandon/mail-assistant/internal/journal"
	"github.com/brandon/mail-assistant/pkg/types"
)

type staticSettings struct {
	cfg *config.Config
}

func (s staticSettings) Current() *config.Config { return s.cfg }

type fakeJournal struct {
	mu       sync.Mutex
	runs     []journal.Run
	finished map[string]error
	totals   map[string][2]int
	actions  []journal.Action
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{finished: map[string]error{}, totals: map[string][2]int{}}
}

func (j *fakeJournal) StartRun(ctx context.Context, run journal.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, run)
	return nil
}

func (j *fakeJournal) FinishRun(ctx context.Context, runID string, fetched, failed int, runErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished[runID] = runErr
	j.totals[runID] = [2]int{fetched, failed}
	return nil
}

func (j *fakeJournal) RecordAction(ctx context.Context, action journal.Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, action)
	return nil
}

func (j *fakeJournal) kinds(id string) []string {
	var kinds []string
	for _, a := range j.actions {
		if a.MessageID == id {
			kinds = append(kinds, a.Kind+":"+a.Outcome)
		}
	}
	return kinds
}

func testConfig() *config.Config {
	return &config.Config{
		IMAP:       testIMAPConfig(),
		Mailbox:    "INBOX",
		Criteria:   "UNSEEN",
		FetchLimit: 10,
		MarkAsRead: true,
	}
}

func newTestManager(cfg *config.Config, fc *fakeClient, j Journal) *Manager {
	m := NewManager(staticSettings{cfg: cfg}, j, testLogger())
	m.connect = func(ctx context.Context, imapCfg config.IMAPConfig, logger *logrus.Logger) (*Session, error) {
		return connect(ctx, imapCfg, logger, fakeDial(fc))
	}
	return m
}

func TestProcess(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 3)
	cfg := testConfig()
	cfg.MoveToFolder = "Processed"
	j := newFakeJournal()
	m := newTestManager(cfg, fc, j)

	var seen []string
	report, err := m.Process(context.Background(), func(ctx context.Context, r types.EmailRecord) error {
		seen = append(seen, r.ID)
		if r.ID == "2" {
			return errors.New("summarizer unavailable")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "2", "1"}, seen)
	require.Len(t, report.Items, 3)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, []string{"UNSEEN"}, report.Criteria)
	assert.NotEmpty(t, report.RunID)
	assert.NotEmpty(t, report.Duration)

	assert.True(t, report.Items[0].Handled)
	assert.True(t, report.Items[0].MarkedRead)
	assert.Equal(t, "Processed", report.Items[0].MovedTo)

	assert.False(t, report.Items[1].Handled)
	assert.False(t, report.Items[1].MarkedRead)
	assert.Empty(t, report.Items[1].MovedTo)
	require.Len(t, report.Items[1].Errors, 1)
	assert.Contains(t, report.Items[1].Errors[0], "summarizer unavailable")

	// Only the failed message stays in INBOX, untouched.
	require.Len(t, fc.mailboxes["INBOX"], 1)
	left := fc.mailboxes["INBOX"][0]
	assert.Equal(t, uint32(2), left.uid)
	assert.Empty(t, left.flags)
	assert.Len(t, fc.mailboxes["Processed"], 2)
	assert.Equal(t, []string{"Processed"}, fc.creates)
	assert.Equal(t, 1, fc.logouts)

	require.Len(t, j.runs, 1)
	assert.Equal(t, report.RunID, j.runs[0].ID)
	assert.Nil(t, j.finished[report.RunID])
	assert.Equal(t, [2]int{3, 1}, j.totals[report.RunID])
	assert.Equal(t, []string{"fetch:ok", "handle:ok", "mark_read:ok", "move:ok"}, j.kinds("3"))
	assert.Equal(t, []string{"fetch:ok", "handle:failed"}, j.kinds("2"))
}

func TestProcessMutationFailuresDoNotStopBatch(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 2)
	fc.seenErr = errors.New("NO store")
	m := newTestManager(testConfig(), fc, nil)

	report, err := m.Process(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 2, report.Failed())
	for _, item := range report.Items {
		assert.True(t, item.Handled)
		assert.False(t, item.MarkedRead)
	}
}

func TestProcessRespectsMarkAsReadOff(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 1)
	cfg := testConfig()
	cfg.MarkAsRead = false
	m := newTestManager(cfg, fc, nil)

	report, err := m.Process(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.False(t, report.Items[0].MarkedRead)
	assert.Empty(t, fc.message("INBOX", 1).flags)
}

func TestProcessBatchFailures(t *testing.T) {
	t.Run("connection", func(t *testing.T) {
		fc := newFakeClient()
		fc.loginErr = errors.New("bad credentials")
		j := newFakeJournal()
		m := newTestManager(testConfig(), fc, j)

		report, err := m.Process(context.Background(), nil)
		assert.Nil(t, report)
		assert.True(t, IsConnectionError(err))
		require.Len(t, j.runs, 1)
		assert.Error(t, j.finished[j.runs[0].ID])
	})

	t.Run("mailbox", func(t *testing.T) {
		fc := newFakeClient()
		cfg := testConfig()
		cfg.Mailbox = "Missing"
		m := newTestManager(cfg, fc, nil)

		_, err := m.Process(context.Background(), nil)
		assert.Equal(t, MailboxUnavailable, FetchErrorKindOf(err))
		assert.Equal(t, 1, fc.logouts, "session must be closed on every exit path")
	})
}

func TestProcessCancelledBetweenItems(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 3)
	m := newTestManager(testConfig(), fc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := m.Process(ctx, func(ctx context.Context, r types.EmailRecord) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Len(t, report.Items, 1)
	assert.Equal(t, 1, fc.logouts)
}

func TestProcessUsesPolicySnapshot(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 5)
	cfg := testConfig()
	cfg.FetchLimit = 2
	m := newTestManager(cfg, fc, nil)

	report, err := m.Process(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "5", report.Items[0].Record.ID)
	assert.Equal(t, "4", report.Items[1].Record.ID)
}

func TestManagerFetchOverrides(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 4)
	fc.mailboxes["Archive"] = nil
	m := newTestManager(testConfig(), fc, nil)

	limit := 1
	records, err := m.Fetch(context.Background(), PolicyOverrides{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, recordIDs(records))

	mailbox := "Archive"
	records, err = m.Fetch(context.Background(), PolicyOverrides{Mailbox: &mailbox})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, fc.logouts)
}

func TestManagerSingleMutations(t *testing.T) {
	fc := newFakeClient()
	seedInbox(fc, 2)
	j := newFakeJournal()
	m := newTestManager(testConfig(), fc, j)
	ctx := context.Background()

	require.NoError(t, m.MarkAsRead(ctx, "", "1"))
	assert.Contains(t, fc.message("INBOX", 1).flags, `\Seen`)

	require.NoError(t, m.MoveToFolder(ctx, "INBOX", "2", "Later"))
	assert.Nil(t, fc.message("INBOX", 2))
	assert.Len(t, fc.mailboxes["Later"], 1)

	err := m.MarkAsRead(ctx, "Missing", "1")
	var mboxErr *MailboxError
	assert.ErrorAs(t, err, &mboxErr)

	assert.Equal(t, []string{"mark_read:ok"}, j.kinds("1"))
	assert.Equal(t, []string{"move:ok"}, j.kinds("2"))
	assert.Equal(t, "Later", j.actions[1].Folder)
	assert.Empty(t, j.actions[1].RunID)
}

func TestManagerListFolders(t *testing.T) {
	fc := newFakeClient()
	fc.mailboxes["Sent"] = nil
	m := newTestManager(testConfig(), fc, nil)

	folders, err := m.ListFolders(context.Background())
	require.NoError(t, err)
	assert.Len(t, folders, 2)
}
