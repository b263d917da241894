package types

import "time"

// EmailRecord is a decoded message as handed to downstream consumers.
// Every field is always present; missing data is an empty string.
type EmailRecord struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FetchPolicy describes which messages a fetch retrieves.
type FetchPolicy struct {
	Mailbox   string `json:"mailbox"`
	Criteria  string `json:"criteria"`   // e.g. "UNSEEN", "ALL"
	SinceDays int    `json:"since_days"` // 0 disables the date filter
	Limit     int    `json:"limit"`      // 0 means unbounded
}

// Folder represents an email folder/mailbox
type Folder struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
}

// ItemReport is the outcome of processing a single record in a batch.
type ItemReport struct {
	Record     EmailRecord `json:"record"`
	Handled    bool        `json:"handled"`
	MarkedRead bool        `json:"marked_read"`
	MovedTo    string      `json:"moved_to,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
}

// BatchReport summarizes one processing run.
type BatchReport struct {
	RunID     string       `json:"run_id"`
	Mailbox   string       `json:"mailbox"`
	Criteria  []string     `json:"criteria"`
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Items     []ItemReport `json:"items"`
}

// Failed returns the number of items that recorded at least one error.
func (r *BatchReport) Failed() int {
	n := 0
	for i := range r.Items {
		if len(r.Items[i].Errors) > 0 {
			n++
		}
	}
	return n
}
