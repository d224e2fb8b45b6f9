package tool

import (
	"fmt"
	"strconv"
	"strings"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

// Args holds the decoded arguments of one tool call. JSON numbers arrive as
// float64; the accessors also tolerate numeric strings, since oracle output
// is not guaranteed to respect the schema types.
type Args map[string]any

// Float reads a numeric argument.
func (a Args) Float(name string) (float64, error) {
	v, ok := a[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %s: %w", name, errorskg.ErrInvalidInput)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("argument %s is not numeric: %w", name, errorskg.ErrInvalidInput)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %s has type %T: %w", name, v, errorskg.ErrInvalidInput)
	}
}

// Int reads an integer argument.
func (a Args) Int(name string) (int, error) {
	f, err := a.Float(name)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// String reads a string argument. A default applies when the key is absent.
func (a Args) String(name, fallback string) string {
	v, ok := a[name]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
