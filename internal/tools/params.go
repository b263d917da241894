package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// stringParam returns a trimmed string argument, or "" when absent.
func stringParam(params map[string]interface{}, name string) string {
	s, _ := params[name].(string)
	return strings.TrimSpace(s)
}

// requiredString returns a non-empty string argument or an error naming it.
func requiredString(params map[string]interface{}, name string) (string, error) {
	s := stringParam(params, name)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// idParam accepts a message id as a string or a JSON number.
func idParam(params map[string]interface{}, name string) (string, error) {
	switch v := params[name].(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%s is required", name)
}

// intParam returns an optional integer argument given as a JSON number or numeric string.
func intParam(params map[string]interface{}, name string) (*int, error) {
	switch v := params[name].(type) {
	case nil:
		return nil, nil
	case float64:
		n := int(v)
		return &n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		return &n, nil
	}
	return nil, fmt.Errorf("invalid %s: expected a number", name)
}

func optionalString(params map[string]interface{}, name string) *string {
	if _, ok := params[name]; !ok {
		return nil
	}
	s := stringParam(params, name)
	return &s
}
