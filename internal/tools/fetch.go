package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/email"
)

// FetchEmailsTool fetches and decodes messages without changing them on the server
type FetchEmailsTool struct {
	mailer Mailer
	logger *logrus.Logger
}

// NewFetchEmailsTool creates a new fetch emails tool
func NewFetchEmailsTool(mailer Mailer, logger *logrus.Logger) *FetchEmailsTool {
	return &FetchEmailsTool{
		mailer: mailer,
		logger: logger,
	}
}

// Name returns the tool name
func (t *FetchEmailsTool) Name() string {
	return "fetch_emails"
}

// Description returns the tool description
func (t *FetchEmailsTool) Description() string {
	return "Fetch matching messages newest first as {id, from, subject, body}. Messages are not marked read."
}

// InputSchema returns the JSON schema for tool inputs
func (t *FetchEmailsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Mailbox to search (default: configured IMAP_MAILBOX)",
			},
			"criteria": map[string]interface{}{
				"type":        "string",
				"description": "Optional: IMAP search criterion, e.g. UNSEEN, ALL, FROM \"boss\"",
			},
			"since_days": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Only messages from the last N days (0 disables)",
				"minimum":     0,
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Keep only the newest N matches (0 means all)",
				"minimum":     0,
			},
		},
	}
}

// Execute executes the tool
func (t *FetchEmailsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	overrides := email.PolicyOverrides{}

	if mailbox := stringParam(params, "mailbox"); mailbox != "" {
		overrides.Mailbox = &mailbox
	}
	if criteria := stringParam(params, "criteria"); criteria != "" {
		overrides.Criteria = &criteria
	}

	sinceDays, err := intParam(params, "since_days")
	if err != nil {
		return nil, err
	}
	if sinceDays != nil && *sinceDays < 0 {
		return nil, fmt.Errorf("since_days must not be negative")
	}
	overrides.SinceDays = sinceDays

	limit, err := intParam(params, "limit")
	if err != nil {
		return nil, err
	}
	if limit != nil && *limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}
	overrides.Limit = limit

	records, err := t.mailer.Fetch(ctx, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	t.logger.WithField("count", len(records)).Debug("Fetched emails")
	return records, nil
}
