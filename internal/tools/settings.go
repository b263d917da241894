package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// editableSettings are the keys save_config accepts.
var editableSettings = map[string]bool{
	"IMAP_SERVER":               true,
	"IMAP_PORT":                 true,
	"EMAIL_ADDRESS":             true,
	"EMAIL_PASSWORD":            true,
	"IMAP_TLS":                  true,
	"IMAP_INSECURE_SKIP_VERIFY": true,
	"IMAP_DIAL_TIMEOUT":         true,
	"IMAP_COMMAND_TIMEOUT":      true,
	"IMAP_MAILBOX":              true,
	"FETCH_CRITERIA":            true,
	"FETCH_LIMIT":               true,
	"FETCH_DAYS":                true,
	"MARK_AS_READ":              true,
	"MOVE_TO_FOLDER_ON_SUCCESS": true,
	"LOG_LEVEL":                 true,
}

const maskedPassword = "********"

// GetConfigTool returns the active settings with the password masked
type GetConfigTool struct {
	settings Settings
}

// NewGetConfigTool creates a new get config tool
func NewGetConfigTool(settings Settings) *GetConfigTool {
	return &GetConfigTool{settings: settings}
}

// Name returns the tool name
func (t *GetConfigTool) Name() string {
	return "get_config"
}

// Description returns the tool description
func (t *GetConfigTool) Description() string {
	return "Show the active mailbox settings (password masked)"
}

// InputSchema returns the JSON schema for tool inputs
func (t *GetConfigTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *GetConfigTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return t.settings.Current().Redacted(), nil
}

// SaveConfigTool writes settings to the config file and reloads them
type SaveConfigTool struct {
	settings Settings
	logger   *logrus.Logger
}

// NewSaveConfigTool creates a new save config tool
func NewSaveConfigTool(settings Settings, logger *logrus.Logger) *SaveConfigTool {
	return &SaveConfigTool{settings: settings, logger: logger}
}

// Name returns the tool name
func (t *SaveConfigTool) Name() string {
	return "save_config"
}

// Description returns the tool description
func (t *SaveConfigTool) Description() string {
	return "Update mailbox settings. Keys are environment names such as FETCH_LIMIT or MOVE_TO_FOLDER_ON_SUCCESS."
}

// InputSchema returns the JSON schema for tool inputs
func (t *SaveConfigTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"settings": map[string]interface{}{
				"type":        "object",
				"description": "Map of setting name to new value",
			},
		},
		"required": []string{"settings"},
	}
}

// Execute executes the tool
func (t *SaveConfigTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	raw, ok := params["settings"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("settings is required")
	}

	values := make(map[string]string, len(raw))
	var unknown []string
	for key, value := range raw {
		name := strings.ToUpper(strings.TrimSpace(key))
		if !editableSettings[name] {
			unknown = append(unknown, key)
			continue
		}
		s := fmt.Sprint(value)
		if name == "EMAIL_PASSWORD" && (s == "" || s == maskedPassword) {
			// The masked placeholder from get_config keeps the stored password.
			continue
		}
		values[name] = s
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown settings: %s", strings.Join(unknown, ", "))
	}

	if len(values) > 0 {
		if err := t.settings.Save(values); err != nil {
			return nil, fmt.Errorf("failed to save settings: %w", err)
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	t.logger.WithField("keys", keys).Info("Settings updated")

	return t.settings.Current().Redacted(), nil
}
