package email

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"
)

// MarkAsRead sets \Seen on the message in the selected mailbox.
func (s *Session) MarkAsRead(id string) error {
	if err := s.requireMailbox(); err != nil {
		return err
	}
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	if err := s.addFlag(uid, imap.SeenFlag); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"mailbox": s.mailbox,
			"uid":     uid,
		}).Error("Failed to mark message as read")
		return &MutationError{Kind: MarkReadFailed, ID: id, Err: err}
	}
	return nil
}

// MoveToFolder copies the message into folder, creating it if needed, then deletes
// and expunges the original. A failed step stops the sequence, so a failure can
// leave a duplicate in folder but never loses the message.
func (s *Session) MoveToFolder(id, folder string) error {
	if err := s.requireMailbox(); err != nil {
		return err
	}
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	log := s.logger.WithFields(logrus.Fields{
		"mailbox": s.mailbox,
		"uid":     uid,
		"folder":  folder,
	})

	if err := s.ensureFolder(folder); err != nil {
		log.WithError(err).Error("Failed to create destination folder")
		return &MutationError{Kind: FolderCreateFailed, ID: id, Folder: folder, Err: err}
	}

	if err := s.conn.UidCopy(uidSet(uid), folder); err != nil {
		log.WithError(err).Error("Failed to copy message")
		return &MutationError{Kind: CopyFailed, ID: id, Folder: folder, Err: err}
	}

	if err := s.addFlag(uid, imap.DeletedFlag); err != nil {
		log.WithError(err).Warn("Message copied but original was not removed")
		return &MutationError{Kind: DeleteFlagFailed, ID: id, Folder: folder, Err: err}
	}

	// Without UIDPLUS this removes every \Deleted message in the mailbox, not only uid.
	if err := s.conn.Expunge(nil); err != nil {
		log.WithError(err).Error("Failed to expunge mailbox")
		return &MutationError{Kind: ExpungeFailed, ID: id, Folder: folder, Err: err}
	}

	log.Info("Moved message")
	return nil
}

func (s *Session) addFlag(uid uint32, flag string) error {
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return s.conn.UidStore(uidSet(uid), item, []interface{}{flag}, nil)
}

// ensureFolder creates name unless a mailbox with exactly that name already exists.
func (s *Session) ensureFolder(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty folder name")
	}

	exists, err := s.folderExists(name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.conn.Create(name); err != nil {
		// Someone else may have created it between LIST and CREATE.
		if exists, listErr := s.folderExists(name); listErr == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}

	s.logger.WithField("folder", name).Info("Created folder")
	return nil
}

func (s *Session) folderExists(name string) (bool, error) {
	pattern := name
	if strings.ContainsAny(name, "*%") {
		pattern = "*"
	}

	infos, err := s.list(pattern)
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if sameMailbox(info.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// sameMailbox compares names exactly, except INBOX which is case-insensitive.
func sameMailbox(a, b string) bool {
	if strings.EqualFold(a, imap.InboxName) && strings.EqualFold(b, imap.InboxName) {
		return true
	}
	return a == b
}
