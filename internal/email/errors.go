package email

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation is attempted on a closed session.
	ErrNotConnected = errors.New("imap session is not connected")
	// ErrNoMailboxSelected is returned when a mailbox operation runs before SelectMailbox.
	ErrNoMailboxSelected = errors.New("no mailbox selected")
	// ErrInvalidID is returned for identifiers that are not IMAP UIDs.
	ErrInvalidID = errors.New("invalid message identifier")
)

// ConnectionError reports a failure to reach or authenticate with the server.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to IMAP server %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MailboxError reports a mailbox that does not exist or cannot be selected.
type MailboxError struct {
	Mailbox string
	Err     error
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("failed to select mailbox %q: %v", e.Mailbox, e.Err)
}

func (e *MailboxError) Unwrap() error { return e.Err }

// FetchErrorKind classifies batch-level fetch failures.
type FetchErrorKind int

const (
	MailboxUnavailable FetchErrorKind = iota + 1
	SearchFailed
)

func (k FetchErrorKind) String() string {
	switch k {
	case MailboxUnavailable:
		return "mailbox unavailable"
	case SearchFailed:
		return "search failed"
	}
	return "unknown"
}

// FetchError aborts a whole fetch call.
type FetchError struct {
	Kind    FetchErrorKind
	Mailbox string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %q: %s: %v", e.Mailbox, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationErrorKind identifies the step of a mutation that failed.
type MutationErrorKind int

const (
	MarkReadFailed MutationErrorKind = iota + 1
	FolderCreateFailed
	CopyFailed
	DeleteFlagFailed
	ExpungeFailed
)

func (k MutationErrorKind) String() string {
	switch k {
	case MarkReadFailed:
		return "mark as read failed"
	case FolderCreateFailed:
		return "folder create failed"
	case CopyFailed:
		return "copy failed"
	case DeleteFlagFailed:
		return "delete flag failed"
	case ExpungeFailed:
		return "expunge failed"
	}
	return "unknown"
}

// MutationError reports a failed mark-read or move for one message.
type MutationError struct {
	Kind   MutationErrorKind
	ID     string
	Folder string
	Err    error
}

func (e *MutationError) Error() string {
	if e.Folder != "" {
		return fmt.Sprintf("message %s -> %q: %s: %v", e.ID, e.Folder, e.Kind, e.Err)
	}
	return fmt.Sprintf("message %s: %s: %v", e.ID, e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// FetchErrorKindOf returns the kind of the FetchError in err's chain, or 0.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return 0
}

// MutationErrorKindOf returns the kind of the MutationError in err's chain, or 0.
func MutationErrorKindOf(err error) MutationErrorKind {
	var mutErr *MutationError
	if errors.As(err, &mutErr) {
		return mutErr.Kind
	}
	return 0
}
