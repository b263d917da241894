// Package report renders fetched records and batch results for the console.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"

	"github.com/brandon/mail-assistant/pkg/types"
)

const defaultSnippetLen = 200

var (
	htmlTag    = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|a)\b`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Snippet returns a single-line preview of body at most max runes long.
// HTML bodies are converted to text first.
func Snippet(body string, max int) string {
	if max <= 0 {
		max = defaultSnippetLen
	}
	if htmlTag.MatchString(body) {
		body = html2text.HTML2Text(body)
	}
	text := strings.TrimSpace(whitespace.ReplaceAllString(body, " "))
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// WriteRecords prints one block per record, in the order given.
func WriteRecords(w io.Writer, records []types.EmailRecord, snippetLen int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No messages.")
		return err
	}
	for i, r := range records {
		if err := writeRecord(w, i+1, r, snippetLen); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, n int, r types.EmailRecord, snippetLen int) error {
	subject := r.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	_, err := fmt.Fprintf(w, "%d. [%s] %s\n   From: %s\n   %s\n\n", n, r.ID, subject, r.From, Snippet(r.Body, snippetLen))
	return err
}

// WriteBatch prints a batch report: a summary line, then each item with its outcome.
func WriteBatch(w io.Writer, report *types.BatchReport, snippetLen int) error {
	_, err := fmt.Fprintf(w, "Run %s: %d message(s) from %s [%s] in %s, %d with errors\n\n",
		report.RunID, len(report.Items), report.Mailbox, strings.Join(report.Criteria, " "),
		report.Duration, report.Failed())
	if err != nil {
		return err
	}

	for i, item := range report.Items {
		if err := writeRecord(w, i+1, item.Record, snippetLen); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "   -> %s\n\n", outcome(item)); err != nil {
			return err
		}
	}
	return nil
}

func outcome(item types.ItemReport) string {
	var parts []string
	if item.MarkedRead {
		parts = append(parts, "marked read")
	}
	if item.MovedTo != "" {
		parts = append(parts, "moved to "+item.MovedTo)
	}
	if len(parts) == 0 && item.Handled {
		parts = append(parts, "handled")
	}
	parts = append(parts, item.Errors...)
	if len(parts) == 0 {
		return "skipped"
	}
	return strings.Join(parts, "; ")
}
