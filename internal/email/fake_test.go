package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-assistant/internal/config"
)

var fixedNow = time.Date(2026, time.March, 17, 10, 30, 0, 0, time.UTC)

type fakeMessage struct {
	uid   uint32
	raw   []byte
	flags []string
}

func (m *fakeMessage) hasFlag(flag string) bool {
	return slices.Contains(m.flags, flag)
}

// fakeClient is an in-memory imapClient. Every mailbox keeps messages in
// ascending UID order, as a server would.
type fakeClient struct {
	mailboxes map[string][]*fakeMessage
	selected  string
	nextUID   uint32

	loginErr   error
	logoutErr  error
	selectErr  error
	listErr    error
	createErr  error
	searchErr  error
	copyErr    error
	seenErr    error
	deleteErr  error
	expungeErr error
	fetchErr   map[uint32]error

	creates    []string
	copies     int
	expunges   int
	logouts    int
	fetchItems []imap.FetchItem
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		mailboxes: map[string][]*fakeMessage{"INBOX": nil},
		nextUID:   1,
		fetchErr:  map[uint32]error{},
	}
}

// add appends a message to mailbox and returns its UID.
func (f *fakeClient) add(mailbox string, raw []byte, flags ...string) uint32 {
	uid := f.nextUID
	f.nextUID++
	f.mailboxes[mailbox] = append(f.mailboxes[mailbox], &fakeMessage{uid: uid, raw: raw, flags: flags})
	return uid
}

func (f *fakeClient) message(mailbox string, uid uint32) *fakeMessage {
	for _, m := range f.mailboxes[mailbox] {
		if m.uid == uid {
			return m
		}
	}
	return nil
}

func (f *fakeClient) Login(username, password string) error {
	return f.loginErr
}

func (f *fakeClient) Logout() error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	msgs, ok := f.mailboxes[name]
	if !ok {
		return nil, fmt.Errorf("no such mailbox %q", name)
	}
	f.selected = name
	status := imap.NewMailboxStatus(name, nil)
	status.Messages = uint32(len(msgs))
	return status, nil
}

// List ignores the pattern and returns every mailbox, like a lax server would.
func (f *fakeClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	defer close(ch)
	if f.listErr != nil {
		return f.listErr
	}
	names := make([]string, 0, len(f.mailboxes))
	for n := range f.mailboxes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		ch <- &imap.MailboxInfo{Name: n, Delimiter: "/"}
	}
	return nil
}

func (f *fakeClient) Create(name string) error {
	f.creates = append(f.creates, name)
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.mailboxes[name]; ok {
		return errors.New("mailbox already exists")
	}
	f.mailboxes[name] = nil
	return nil
}

func (f *fakeClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var uids []uint32
	for _, m := range f.mailboxes[f.selected] {
		if !matches(m, criteria) {
			continue
		}
		uids = append(uids, m.uid)
	}
	return uids, nil
}

func matches(m *fakeMessage, criteria *imap.SearchCriteria) bool {
	for _, flag := range criteria.WithFlags {
		if !m.hasFlag(flag) {
			return false
		}
	}
	for _, flag := range criteria.WithoutFlags {
		if m.hasFlag(flag) {
			return false
		}
	}
	return true
}

func (f *fakeClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	f.fetchItems = items
	for _, m := range f.mailboxes[f.selected] {
		if !seqset.Contains(m.uid) {
			continue
		}
		if err := f.fetchErr[m.uid]; err != nil {
			return err
		}
		msg := imap.NewMessage(0, items)
		msg.Uid = m.uid
		msg.Body = map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewReader(m.raw),
		}
		ch <- msg
	}
	return nil
}

func (f *fakeClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	if ch != nil {
		defer close(ch)
	}
	flags, _ := value.([]interface{})
	for _, v := range flags {
		flag, _ := v.(string)
		switch {
		case flag == imap.SeenFlag && f.seenErr != nil:
			return f.seenErr
		case flag == imap.DeletedFlag && f.deleteErr != nil:
			return f.deleteErr
		}
		for _, m := range f.mailboxes[f.selected] {
			if seqset.Contains(m.uid) && !m.hasFlag(flag) {
				m.flags = append(m.flags, flag)
			}
		}
	}
	return nil
}

func (f *fakeClient) UidCopy(seqset *imap.SeqSet, dest string) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	if _, ok := f.mailboxes[dest]; !ok {
		return fmt.Errorf("no such mailbox %q", dest)
	}
	for _, m := range f.mailboxes[f.selected] {
		if seqset.Contains(m.uid) {
			f.add(dest, m.raw)
			f.copies++
		}
	}
	return nil
}

func (f *fakeClient) Expunge(ch chan uint32) error {
	if ch != nil {
		defer close(ch)
	}
	if f.expungeErr != nil {
		return f.expungeErr
	}
	f.expunges++
	kept := f.mailboxes[f.selected][:0]
	for _, m := range f.mailboxes[f.selected] {
		if !m.hasFlag(imap.DeletedFlag) {
			kept = append(kept, m)
		}
	}
	f.mailboxes[f.selected] = kept
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testIMAPConfig() config.IMAPConfig {
	return config.IMAPConfig{
		Host:     "imap.example.com",
		Port:     993,
		Username: "user@example.com",
		Password: "secret",
		TLSMode:  config.TLSModeImplicit,
	}
}

func fakeDial(fc *fakeClient) dialFunc {
	return func(ctx context.Context, cfg config.IMAPConfig, logger *logrus.Logger) (imapClient, error) {
		return fc, nil
	}
}

// newTestSession returns a connected session backed by fc.
func newTestSession(t *testing.T, fc *fakeClient) *Session {
	t.Helper()
	s, err := connect(context.Background(), testIMAPConfig(), testLogger(), fakeDial(fc))
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s
}

// plainMessage builds a minimal single-part text/plain message.
func plainMessage(from, subject, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")
}

func stringLiteral(s string) imap.Literal {
	return bytes.NewReader([]byte(s))
}
