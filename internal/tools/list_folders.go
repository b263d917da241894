package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ListFoldersTool lists available email folders
type ListFoldersTool struct {
	mailer Mailer
	logger *logrus.Logger
}

// NewListFoldersTool creates a new list folders tool
func NewListFoldersTool(mailer Mailer, logger *logrus.Logger) *ListFoldersTool {
	return &ListFoldersTool{
		mailer: mailer,
		logger: logger,
	}
}

// Name returns the tool name
func (t *ListFoldersTool) Name() string {
	return "list_folders"
}

// Description returns the tool description
func (t *ListFoldersTool) Description() string {
	return "List available mailboxes/folders on the configured IMAP server"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListFoldersTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ListFoldersTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	folders, err := t.mailer.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	t.logger.WithField("count", len(folders)).Debug("Listed folders")
	return folders, nil
}
