package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/email"
)

// ProcessEmailsTool runs one processing batch with the configured policy
type ProcessEmailsTool struct {
	mailer  Mailer
	handler email.Handler
	logger  *logrus.Logger
}

// NewProcessEmailsTool creates a new process emails tool. A nil handler accepts every record.
func NewProcessEmailsTool(mailer Mailer, handler email.Handler, logger *logrus.Logger) *ProcessEmailsTool {
	return &ProcessEmailsTool{
		mailer:  mailer,
		handler: handler,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *ProcessEmailsTool) Name() string {
	return "process_emails"
}

// Description returns the tool description
func (t *ProcessEmailsTool) Description() string {
	return "Fetch the configured batch, then mark each message read and move it as configured. Returns a per-message report."
}

// InputSchema returns the JSON schema for tool inputs
func (t *ProcessEmailsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ProcessEmailsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	report, err := t.mailer.Process(ctx, t.handler)
	if err != nil {
		return nil, fmt.Errorf("failed to process emails: %w", err)
	}
	return report, nil
}
