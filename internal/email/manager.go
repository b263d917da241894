package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/config"
	"github.com/brandon/mail-assistant/internal/journal"
	"github.com/brandon/mail-assistant/pkg/types"
)

// Handler consumes one fetched record. Returning an error leaves the message
// untouched on the server.
type Handler func(ctx context.Context, record types.EmailRecord) error

// Settings supplies the current configuration snapshot.
type Settings interface {
	Current() *config.Config
}

// Journal records runs and per-message actions.
type Journal interface {
	StartRun(ctx context.Context, run journal.Run) error
	FinishRun(ctx context.Context, runID string, fetched, failed int, runErr error) error
	RecordAction(ctx context.Context, action journal.Action) error
}

type connectFunc func(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger) (*Session, error)

// Manager manages email operations. Every call opens its own session and closes
// it before returning, so a Manager may be shared between goroutines.
type Manager struct {
	settings Settings
	journal  Journal
	connect  connectFunc
	logger   *logrus.Logger
}

// NewManager creates a new email manager. j may be nil to disable the journal.
func NewManager(settings Settings, j Journal, logger *logrus.Logger) *Manager {
	return &Manager{
		settings: settings,
		journal:  j,
		connect:  Connect,
		logger:   logger,
	}
}

// PolicyOverrides replaces parts of the configured fetch policy for one call.
// Nil fields keep the configured value.
type PolicyOverrides struct {
	Mailbox   *string
	Criteria  *string
	SinceDays *int
	Limit     *int
}

func (o PolicyOverrides) apply(policy types.FetchPolicy) types.FetchPolicy {
	if o.Mailbox != nil {
		policy.Mailbox = *o.Mailbox
	}
	if o.Criteria != nil {
		policy.Criteria = *o.Criteria
	}
	if o.SinceDays != nil {
		policy.SinceDays = *o.SinceDays
	}
	if o.Limit != nil {
		policy.Limit = *o.Limit
	}
	return policy
}

// Process fetches the configured batch and hands each record to handle. After a
// record is handled successfully it is marked read and moved, as configured.
// Handler and mutation failures are reported per item and never stop the batch.
//
// If ctx is cancelled between items the partial report is returned with ctx.Err().
func (m *Manager) Process(ctx context.Context, handle Handler) (*types.BatchReport, error) {
	cfg := m.settings.Current()
	policy := cfg.Policy()
	started := time.Now()

	report := &types.BatchReport{
		RunID:     uuid.New().String(),
		Mailbox:   policy.Mailbox,
		Criteria:  BuildCriteria(policy, started),
		StartedAt: started.UTC(),
		Items:     []types.ItemReport{},
	}
	log := m.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"mailbox": policy.Mailbox,
	})
	m.startRun(ctx, report)

	runErr := m.processBatch(ctx, cfg, policy, report, handle, log)
	report.Duration = time.Since(started).Round(time.Millisecond).String()
	m.finishRun(report, runErr)

	if runErr != nil {
		log.WithError(runErr).Error("Batch aborted")
		if ctx.Err() != nil {
			return report, runErr
		}
		return nil, runErr
	}

	log.WithFields(logrus.Fields{
		"processed": len(report.Items),
		"failed":    report.Failed(),
		"duration":  report.Duration,
	}).Info("Batch completed")
	return report, nil
}

func (m *Manager) processBatch(ctx context.Context, cfg *config.Config, policy types.FetchPolicy,
	report *types.BatchReport, handle Handler, log *logrus.Entry) error {
	sess, err := m.connect(ctx, cfg.IMAP, m.logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	records, err := sess.Fetch(policy)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := types.ItemReport{Record: record}
		m.processItem(ctx, sess, cfg, report.RunID, &item, handle)
		if len(item.Errors) > 0 {
			log.WithFields(logrus.Fields{
				"id":     record.ID,
				"errors": item.Errors,
			}).Warn("Message processed with errors")
		}
		report.Items = append(report.Items, item)
	}
	return nil
}

func (m *Manager) processItem(ctx context.Context, sess *Session, cfg *config.Config, runID string,
	item *types.ItemReport, handle Handler) {
	id := item.Record.ID
	mailbox := sess.Mailbox()
	m.recordAction(ctx, runID, mailbox, id, journal.KindFetch, "", nil)

	if handle != nil {
		if err := handle(ctx, item.Record); err != nil {
			item.Errors = append(item.Errors, fmt.Sprintf("handler: %v", err))
			m.recordAction(ctx, runID, mailbox, id, journal.KindHandle, "", err)
			return
		}
		m.recordAction(ctx, runID, mailbox, id, journal.KindHandle, "", nil)
	}
	item.Handled = true

	if cfg.MarkAsRead {
		err := sess.MarkAsRead(id)
		if err != nil {
			item.Errors = append(item.Errors, err.Error())
		} else {
			item.MarkedRead = true
		}
		m.recordAction(ctx, runID, mailbox, id, journal.KindMarkRead, "", err)
	}

	if folder := strings.TrimSpace(cfg.MoveToFolder); folder != "" {
		err := sess.MoveToFolder(id, folder)
		if err != nil {
			item.Errors = append(item.Errors, err.Error())
		} else {
			item.MovedTo = folder
		}
		m.recordAction(ctx, runID, mailbox, id, journal.KindMove, folder, err)
	}
}

// Fetch runs a single fetch with the configured policy, adjusted by overrides.
func (m *Manager) Fetch(ctx context.Context, overrides PolicyOverrides) ([]types.EmailRecord, error) {
	cfg := m.settings.Current()
	policy := overrides.apply(cfg.Policy())

	sess, err := m.connect(ctx, cfg.IMAP, m.logger)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return sess.Fetch(policy)
}

// MarkAsRead marks one message in mailbox as read. An empty mailbox means the
// configured one.
func (m *Manager) MarkAsRead(ctx context.Context, mailbox, id string) error {
	return m.mutate(ctx, mailbox, id, journal.KindMarkRead, "", func(sess *Session) error {
		return sess.MarkAsRead(id)
	})
}

// MoveToFolder moves one message from mailbox to folder. An empty mailbox means
// the configured one.
func (m *Manager) MoveToFolder(ctx context.Context, mailbox, id, folder string) error {
	return m.mutate(ctx, mailbox, id, journal.KindMove, folder, func(sess *Session) error {
		return sess.MoveToFolder(id, folder)
	})
}

func (m *Manager) mutate(ctx context.Context, mailbox, id, kind, folder string, op func(*Session) error) error {
	cfg := m.settings.Current()
	if mailbox == "" {
		mailbox = cfg.Mailbox
	}

	sess, err := m.connect(ctx, cfg.IMAP, m.logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.SelectMailbox(mailbox); err != nil {
		return err
	}

	err = op(sess)
	m.recordAction(ctx, "", mailbox, id, kind, folder, err)
	return err
}

// ListFolders lists all mailboxes/folders
func (m *Manager) ListFolders(ctx context.Context) ([]types.Folder, error) {
	cfg := m.settings.Current()

	sess, err := m.connect(ctx, cfg.IMAP, m.logger)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return sess.ListFolders()
}

func (m *Manager) startRun(ctx context.Context, report *types.BatchReport) {
	if m.journal == nil {
		return
	}
	run := journal.Run{
		ID:        report.RunID,
		Mailbox:   report.Mailbox,
		Criteria:  strings.Join(report.Criteria, " "),
		StartedAt: report.StartedAt,
	}
	if err := m.journal.StartRun(ctx, run); err != nil {
		m.logger.WithError(err).WithField("run_id", report.RunID).Warn("Failed to journal run start")
	}
}

func (m *Manager) finishRun(report *types.BatchReport, runErr error) {
	if m.journal == nil {
		return
	}
	// The run context may already be cancelled; the outcome is still recorded.
	err := m.journal.FinishRun(context.Background(), report.RunID, len(report.Items), report.Failed(), runErr)
	if err != nil {
		m.logger.WithError(err).WithField("run_id", report.RunID).Warn("Failed to journal run result")
	}
}

func (m *Manager) recordAction(ctx context.Context, runID, mailbox, id, kind, folder string, opErr error) {
	if m.journal == nil {
		return
	}
	action := journal.Action{
		RunID:     runID,
		Mailbox:   mailbox,
		MessageID: id,
		Kind:      kind,
		Folder:    folder,
		Outcome:   journal.OutcomeOK,
	}
	if opErr != nil {
		action.Outcome = journal.OutcomeFailed
		action.Error = opErr.Error()
	}
	if err := m.journal.RecordAction(context.WithoutCancel(ctx), action); err != nil {
		m.logger.WithError(err).WithField("id", id).Warn("Failed to journal action")
	}
}
