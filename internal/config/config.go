package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/brandon/mail-assistant/pkg/types"
)

// TLS modes for the IMAP connection
const (
	TLSModeImplicit = "tls"
	TLSModeStartTLS = "starttls"
	TLSModeNone     = "none"
)

// Config holds one immutable snapshot of the application configuration.
// Snapshots are never modified after Load returns; a reload builds a new one.
type Config struct {
	IMAP IMAPConfig

	// Fetch policy
	Mailbox    string
	Criteria   string
	FetchLimit int
	FetchDays  int

	// Post-processing actions
	MarkAsRead   bool
	MoveToFolder string

	JournalPath string
	LogLevel    string
}

// IMAPConfig holds the IMAP connection settings
type IMAPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
	DialTimeout        time.Duration
	CommandTimeout     time.Duration
}

// Addr returns host:port
func (c IMAPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Policy returns a copy of the fetch policy described by this snapshot.
func (c *Config) Policy() types.FetchPolicy {
	return types.FetchPolicy{
		Mailbox:   c.Mailbox,
		Criteria:  c.Criteria,
		SinceDays: c.FetchDays,
		Limit:     c.FetchLimit,
	}
}

var defaults = map[string]interface{}{
	"imap_server":               "imap.example.com",
	"imap_port":                 993,
	"imap_tls":                  TLSModeImplicit,
	"imap_insecure_skip_verify": "false",
	"imap_dial_timeout":         "30s",
	"imap_command_timeout":      "0s",
	"imap_mailbox":              "INBOX",
	"fetch_criteria":            "UNSEEN",
	"fetch_limit":               10,
	"fetch_days":                0,
	"mark_as_read":              "true",
	"move_to_folder_on_success": "",
	"journal_path":              "./data/journal.db",
	"log_level":                 "info",
}

// newViper returns a viper instance bound to the dotenv file at path and the process environment.
func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads configuration from the dotenv file at path (optional) and environment variables.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		IMAP: IMAPConfig{
			Host:               strings.TrimSpace(v.GetString("imap_server")),
			Port:               v.GetInt("imap_port"),
			Username:           v.GetString("email_address"),
			Password:           v.GetString("email_password"),
			TLSMode:            strings.ToLower(strings.TrimSpace(v.GetString("imap_tls"))),
			InsecureSkipVerify: parseBool(v.GetString("imap_insecure_skip_verify")),
			DialTimeout:        v.GetDuration("imap_dial_timeout"),
			CommandTimeout:     v.GetDuration("imap_command_timeout"),
		},
		Mailbox:      v.GetString("imap_mailbox"),
		Criteria:     strings.TrimSpace(v.GetString("fetch_criteria")),
		FetchLimit:   v.GetInt("fetch_limit"),
		FetchDays:    v.GetInt("fetch_days"),
		MarkAsRead:   parseBool(v.GetString("mark_as_read")),
		MoveToFolder: strings.TrimSpace(v.GetString("move_to_folder_on_success")),
		JournalPath:  v.GetString("journal_path"),
		LogLevel:     v.GetString("log_level"),
	}
}

// parseBool accepts the same spellings as the settings UI: true, 1, t, y, yes.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "t", "y", "yes":
		return true
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IMAP.Host == "" {
		return fmt.Errorf("IMAP_SERVER is required")
	}
	if c.IMAP.Username == "" || c.IMAP.Password == "" {
		return fmt.Errorf("EMAIL_ADDRESS and EMAIL_PASSWORD are required")
	}
	if c.IMAP.Port < 1 || c.IMAP.Port > 65535 {
		return fmt.Errorf("invalid IMAP_PORT: %d", c.IMAP.Port)
	}
	switch c.IMAP.TLSMode {
	case TLSModeImplicit, TLSModeStartTLS, TLSModeNone:
	default:
		return fmt.Errorf("invalid IMAP_TLS %q: must be tls, starttls or none", c.IMAP.TLSMode)
	}
	if c.Mailbox == "" {
		return fmt.Errorf("IMAP_MAILBOX is required")
	}
	if c.FetchLimit < 0 {
		return fmt.Errorf("FETCH_LIMIT must not be negative")
	}
	if c.FetchDays < 0 {
		return fmt.Errorf("FETCH_DAYS must not be negative")
	}
	return nil
}

// Redacted returns the settings as a flat map keyed by environment name, with the password masked.
func (c *Config) Redacted() map[string]interface{} {
	password := ""
	if c.IMAP.Password != "" {
		password = "********"
	}
	return map[string]interface{}{
		"IMAP_SERVER":               c.IMAP.Host,
		"IMAP_PORT":                 c.IMAP.Port,
		"EMAIL_ADDRESS":             c.IMAP.Username,
		"EMAIL_PASSWORD":            password,
		"IMAP_TLS":                  c.IMAP.TLSMode,
		"IMAP_MAILBOX":              c.Mailbox,
		"FETCH_CRITERIA":            c.Criteria,
		"FETCH_LIMIT":               c.FetchLimit,
		"FETCH_DAYS":                c.FetchDays,
		"MARK_AS_READ":              c.MarkAsRead,
		"MOVE_TO_FOLDER_ON_SUCCESS": c.MoveToFolder,
		"LOG_LEVEL":                 c.LogLevel,
	}
}
