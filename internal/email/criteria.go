package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"

	"github.com/brandon/mail-assistant/pkg/types"
)

const defaultCriteria = "ALL"

// BuildCriteria turns a fetch policy into the ordered list of IMAP search terms.
// The base criterion always comes first; a SINCE term follows only when SinceDays > 0.
func BuildCriteria(policy types.FetchPolicy, now time.Time) []string {
	base := strings.TrimSpace(policy.Criteria)
	if base == "" {
		base = defaultCriteria
	}

	terms := []string{base}
	if policy.SinceDays > 0 {
		since := now.AddDate(0, 0, -policy.SinceDays)
		terms = append(terms, "SINCE "+since.Format(imap.DateLayout))
	}
	return terms
}

// searchCriteria parses search terms into go-imap criteria. Terms are ANDed.
func searchCriteria(terms []string) (*imap.SearchCriteria, error) {
	var fields []interface{}
	for _, term := range terms {
		tokens, err := tokenize(term)
		if err != nil {
			return nil, fmt.Errorf("invalid search term %q: %w", term, err)
		}
		fields = append(fields, tokens...)
	}

	criteria := imap.NewSearchCriteria()
	if err := criteria.ParseWithCharset(fields, nil); err != nil {
		return nil, fmt.Errorf("invalid search criteria %q: %w", strings.Join(terms, " "), err)
	}
	return criteria, nil
}

// tokenize splits a search term into atoms, quoted strings and parenthesized groups.
func tokenize(s string) ([]interface{}, error) {
	fields, rest, err := tokenizeList(s, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected %q", rest)
	}
	return fields, nil
}

func tokenizeList(s string, nested bool) ([]interface{}, string, error) {
	var fields []interface{}
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			if nested {
				return nil, "", fmt.Errorf("unbalanced parenthesis")
			}
			return fields, "", nil
		}

		switch s[0] {
		case '(':
			sub, rest, err := tokenizeList(s[1:], true)
			if err != nil {
				return nil, "", err
			}
			fields = append(fields, sub)
			s = rest
		case ')':
			if !nested {
				return nil, "", fmt.Errorf("unbalanced parenthesis")
			}
			return fields, s[1:], nil
		case '"':
			var b strings.Builder
			i := 1
			for ; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				b.WriteByte(s[i])
			}
			if i >= len(s) {
				return nil, "", fmt.Errorf("unterminated quoted string")
			}
			fields = append(fields, b.String())
			s = s[i+1:]
		default:
			end := strings.IndexAny(s, " \t()\"")
			if end < 0 {
				end = len(s)
			}
			fields = append(fields, s[:end])
			s = s[end:]
		}
	}
}
