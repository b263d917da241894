package email

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/pkg/types"
)

// Fetch selects policy.Mailbox, searches it and returns decoded records newest first.
//
// Only a failed SELECT or SEARCH aborts the call. A message that cannot be fetched
// or decoded is logged and left out of the result.
func (s *Session) Fetch(policy types.FetchPolicy) ([]types.EmailRecord, error) {
	if s.state == StateDisconnected {
		return nil, ErrNotConnected
	}

	if err := s.SelectMailbox(policy.Mailbox); err != nil {
		return nil, &FetchError{Kind: MailboxUnavailable, Mailbox: policy.Mailbox, Err: err}
	}

	terms := BuildCriteria(policy, s.now())
	criteria, err := searchCriteria(terms)
	if err != nil {
		return nil, &FetchError{Kind: SearchFailed, Mailbox: policy.Mailbox, Err: err}
	}

	uids, err := s.conn.UidSearch(criteria)
	if err != nil {
		return nil, &FetchError{Kind: SearchFailed, Mailbox: policy.Mailbox, Err: err}
	}

	log := s.logger.WithFields(logrus.Fields{
		"mailbox":  policy.Mailbox,
		"criteria": terms,
	})
	log.WithField("matches", len(uids)).Debug("Search completed")

	records := []types.EmailRecord{}
	if len(uids) == 0 {
		return records, nil
	}

	uids = newest(uids, policy.Limit)
	for i := len(uids) - 1; i >= 0; i-- {
		uid := uids[i]
		raw, err := s.fetchRaw(uid)
		if err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Failed to fetch message, skipping")
			continue
		}
		record, err := decodeSafely(raw)
		if err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Failed to decode message, skipping")
			continue
		}
		records = append(records, record)
	}

	log.WithField("fetched", len(records)).Info("Fetched messages")
	return records, nil
}

// newest sorts uids ascending and keeps the last limit of them. limit <= 0 keeps all.
func newest(uids []uint32, limit int) []uint32 {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}

// fetchRaw downloads the full message without setting \Seen.
func (s *Session) fetchRaw(uid uint32) (RawMessage, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.conn.UidFetch(uidSet(uid), items, messages)
	}()

	var (
		content []byte
		readErr error
		found   bool
	)
	for msg := range messages {
		if found || (msg.Uid != 0 && msg.Uid != uid) {
			continue
		}
		found = true
		content, readErr = messageBody(msg, section)
	}

	if err := <-done; err != nil {
		return RawMessage{}, fmt.Errorf("failed to fetch message: %w", err)
	}
	if !found {
		return RawMessage{}, fmt.Errorf("message %d not returned by server", uid)
	}
	if readErr != nil {
		return RawMessage{}, readErr
	}

	return RawMessage{ID: strconv.FormatUint(uint64(uid), 10), Content: content}, nil
}

// messageBody reads the requested section, or any section the server sent back.
func messageBody(msg *imap.Message, section *imap.BodySectionName) ([]byte, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		for _, l := range msg.Body {
			if l != nil {
				literal = l
				break
			}
		}
	}
	if literal == nil {
		return nil, fmt.Errorf("message %d has no body", msg.Uid)
	}

	content, err := io.ReadAll(literal)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return content, nil
}

func decodeSafely(raw RawMessage) (record types.EmailRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return Decode(raw), nil
}
