package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/config"
	"github.com/brandon/mail-assistant/pkg/types"
)

// imapClient is the subset of *client.Client the engine drives.
type imapClient interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	List(ref, name string, ch chan *imap.MailboxInfo) error
	Create(name string) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	UidCopy(seqset *imap.SeqSet, dest string) error
	Expunge(ch chan uint32) error
}

var _ imapClient = (*client.Client)(nil)

// dialFunc opens an unauthenticated connection.
type dialFunc func(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger) (imapClient, error)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateMailboxSelected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateMailboxSelected:
		return "mailbox-selected"
	}
	return "disconnected"
}

// Session is one authenticated IMAP session. It is not safe for concurrent use:
// callers serialize fetch and mutation calls, and pair every Connect with one Close.
type Session struct {
	conn    imapClient
	addr    string
	state   SessionState
	mailbox string
	logger  *logrus.Logger
	now     func() time.Time
}

// Connect dials the server and logs in. On any failure the connection is torn down
// and a *ConnectionError is returned.
func Connect(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger) (*Session, error) {
	return connect(ctx, cfg, logger, dialIMAP)
}

func connect(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger, dial dialFunc) (*Session, error) {
	addr := cfg.Addr()

	conn, err := dial(ctx, cfg, logger)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	if err := conn.Login(cfg.Username, cfg.Password); err != nil {
		logger.WithError(err).WithField("addr", addr).Error("Failed to login to IMAP server")
		conn.Logout() //nolint:errcheck
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("login rejected: %w", err)}
	}

	logger.WithFields(logrus.Fields{
		"addr": addr,
		"user": cfg.Username,
	}).Info("Connected to IMAP server")

	return &Session{
		conn:   conn,
		addr:   addr,
		state:  StateConnected,
		logger: logger,
		now:    time.Now,
	}, nil
}

// dialIMAP opens the transport according to cfg.TLSMode.
func dialIMAP(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger) (imapClient, error) {
	addr := cfg.Addr()
	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}
	dialer := &contextDialer{ctx: ctx, dialer: &net.Dialer{Timeout: cfg.DialTimeout}}

	var (
		c   *client.Client
		err error
	)
	switch cfg.TLSMode {
	case config.TLSModeStartTLS, config.TLSModeNone:
		c, err = client.DialWithDialer(dialer, addr)
		if err != nil {
			return nil, err
		}
		if cfg.TLSMode == config.TLSModeStartTLS {
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Logout() //nolint:errcheck
				return nil, fmt.Errorf("starttls: %w", err)
			}
		}
	default:
		c, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
		if err != nil {
			return nil, err
		}
	}

	c.Timeout = cfg.CommandTimeout
	c.ErrorLog = logger.WithField("component", "imap")
	return c, nil
}

// contextDialer lets the caller's context bound connection establishment.
type contextDialer struct {
	ctx    context.Context
	dialer *net.Dialer
}

func (d *contextDialer) Dial(network, addr string) (net.Conn, error) {
	return d.dialer.DialContext(d.ctx, network, addr)
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	return s.state
}

// Mailbox returns the selected mailbox name, or "" when none is selected.
func (s *Session) Mailbox() string {
	return s.mailbox
}

// SelectMailbox selects name read-write. A failed SELECT leaves the session connected with no mailbox.
func (s *Session) SelectMailbox(name string) error {
	if s.state == StateDisconnected {
		return ErrNotConnected
	}

	status, err := s.conn.Select(name, false)
	if err != nil {
		s.state = StateConnected
		s.mailbox = ""
		return &MailboxError{Mailbox: name, Err: err}
	}

	s.state = StateMailboxSelected
	s.mailbox = name
	s.logger.WithFields(logrus.Fields{
		"mailbox":  name,
		"messages": status.Messages,
	}).Debug("Selected mailbox")
	return nil
}

// Close logs out. It is safe to call more than once and never returns an error;
// teardown failures are only logged.
func (s *Session) Close() {
	if s == nil || s.state == StateDisconnected {
		return
	}
	if err := s.conn.Logout(); err != nil {
		s.logger.WithError(err).WithField("addr", s.addr).Warn("IMAP logout failed")
	} else {
		s.logger.WithField("addr", s.addr).Debug("Disconnected from IMAP server")
	}
	s.state = StateDisconnected
	s.mailbox = ""
}

// ListFolders lists all mailboxes/folders
func (s *Session) ListFolders() ([]types.Folder, error) {
	infos, err := s.list("*")
	if err != nil {
		return nil, err
	}

	folders := make([]types.Folder, 0, len(infos))
	for _, m := range infos {
		folders = append(folders, types.Folder{
			Name:       m.Name,
			Delimiter:  m.Delimiter,
			Attributes: m.Attributes,
		})
	}
	return folders, nil
}

func (s *Session) list(pattern string) ([]*imap.MailboxInfo, error) {
	if s.state == StateDisconnected {
		return nil, ErrNotConnected
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.conn.List("", pattern, mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return infos, nil
}

func (s *Session) requireMailbox() error {
	switch s.state {
	case StateDisconnected:
		return ErrNotConnected
	case StateConnected:
		return ErrNoMailboxSelected
	}
	return nil
}

// parseUID converts a record identifier back into a UID.
func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return uint32(uid), nil
}

func uidSet(uid uint32) *imap.SeqSet {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	return seqSet
}
