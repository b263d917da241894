package tools

import (
	"context"
	"fmt"

	"github.com/brandon/mail-assistant/internal/journal"
)

// ListRunsTool shows recent processing runs, or the actions of one run
type ListRunsTool struct {
	runs RunLog
}

// NewListRunsTool creates a new list runs tool
func NewListRunsTool(runs RunLog) *ListRunsTool {
	return &ListRunsTool{runs: runs}
}

// Name returns the tool name
func (t *ListRunsTool) Name() string {
	return "list_runs"
}

// Description returns the tool description
func (t *ListRunsTool) Description() string {
	return "List recent processing runs from the journal, or the per-message actions of one run"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListRunsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"run_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Show the actions recorded for this run",
			},
			"message_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Show the actions recorded for this message id",
			},
			"failed_only": map[string]interface{}{
				"type":        "boolean",
				"description": "Optional: Only failed actions",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Result limit (default: 20 runs or 100 actions)",
				"minimum":     1,
			},
		},
	}
}

// Execute executes the tool
func (t *ListRunsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	limit, err := intParam(params, "limit")
	if err != nil {
		return nil, err
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	runID := optionalString(params, "run_id")
	messageID := optionalString(params, "message_id")
	failedOnly, _ := params["failed_only"].(bool)

	if runID == nil && messageID == nil && !failedOnly {
		runs, err := t.runs.ListRuns(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		return runs, nil
	}

	filter := journal.ActionFilter{RunID: runID, MessageID: messageID, Limit: n}
	if failedOnly {
		outcome := journal.OutcomeFailed
		filter.Outcome = &outcome
	}
	actions, err := t.runs.SearchActions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search actions: %w", err)
	}
	return actions, nil
}
