package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MarkAsReadTool sets \Seen on one message
type MarkAsReadTool struct {
	mailer Mailer
	logger *logrus.Logger
}

// NewMarkAsReadTool creates a new mark as read tool
func NewMarkAsReadTool(mailer Mailer, logger *logrus.Logger) *MarkAsReadTool {
	return &MarkAsReadTool{mailer: mailer, logger: logger}
}

// Name returns the tool name
func (t *MarkAsReadTool) Name() string {
	return "mark_as_read"
}

// Description returns the tool description
func (t *MarkAsReadTool) Description() string {
	return "Mark a message as read by the id returned from fetch_emails"
}

// InputSchema returns the JSON schema for tool inputs
func (t *MarkAsReadTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "string",
				"description": "Message id (from fetch_emails)",
			},
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Mailbox holding the message (default: configured IMAP_MAILBOX)",
			},
		},
		"required": []string{"id"},
	}
}

// Execute executes the tool
func (t *MarkAsReadTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, err
	}

	if err := t.mailer.MarkAsRead(ctx, stringParam(params, "mailbox"), id); err != nil {
		return nil, fmt.Errorf("failed to mark message as read: %w", err)
	}

	return map[string]interface{}{
		"success": true,
		"id":      id,
	}, nil
}

// MoveEmailTool moves one message to another folder, creating the folder if needed
type MoveEmailTool struct {
	mailer Mailer
	logger *logrus.Logger
}

// NewMoveEmailTool creates a new move email tool
func NewMoveEmailTool(mailer Mailer, logger *logrus.Logger) *MoveEmailTool {
	return &MoveEmailTool{mailer: mailer, logger: logger}
}

// Name returns the tool name
func (t *MoveEmailTool) Name() string {
	return "move_email"
}

// Description returns the tool description
func (t *MoveEmailTool) Description() string {
	return "Move a message to a folder, creating the folder if it does not exist"
}

// InputSchema returns the JSON schema for tool inputs
func (t *MoveEmailTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "string",
				"description": "Message id (from fetch_emails)",
			},
			"folder": map[string]interface{}{
				"type":        "string",
				"description": "Destination folder name",
			},
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Mailbox holding the message (default: configured IMAP_MAILBOX)",
			},
		},
		"required": []string{"id", "folder"},
	}
}

// Execute executes the tool
func (t *MoveEmailTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, err := idParam(params, "id")
	if err != nil {
		return nil, err
	}
	folder, err := requiredString(params, "folder")
	if err != nil {
		return nil, err
	}

	if err := t.mailer.MoveToFolder(ctx, stringParam(params, "mailbox"), id, folder); err != nil {
		return nil, fmt.Errorf("failed to move message: %w", err)
	}

	return map[string]interface{}{
		"success": true,
		"id":      id,
		"folder":  folder,
	}, nil
}
