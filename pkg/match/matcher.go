// Package match selects sources by label using doublestar glob patterns.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against source labels:
//   - Include patterns: a label must match at least one (none means all)
//   - Exclude patterns: a label must not match any
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes   []string
	excludes   []string
	ignoreCase bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a label must match (at least one).
	// Optional: if empty, every label is included.
	Includes []string

	// Excludes are glob patterns a label must not match (any).
	Excludes []string

	// IgnoreCase matches labels and patterns case-insensitively.
	IgnoreCase bool
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher. Blank patterns are ignored.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes, cfg.IgnoreCase)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes, cfg.IgnoreCase)
	if err != nil {
		return nil, err
	}
	return &Matcher{includes: includes, excludes: excludes, ignoreCase: cfg.IgnoreCase}, nil
}

func compile(raw []string, ignoreCase bool) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ignoreCase {
			p = strings.ToLower(p)
		}
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether label passes the include and exclude patterns.
func (m *Matcher) Match(label string) bool {
	if m.ignoreCase {
		label = strings.ToLower(label)
	}

	if len(m.includes) > 0 {
		matched := false
		for _, inc := range m.includes {
			if matchPattern(inc, label) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, exc := range m.excludes {
		if matchPattern(exc, label) {
			return false
		}
	}
	return true
}

// MatchAll reports whether the matcher has no patterns at all.
func (m *Matcher) MatchAll() bool {
	return len(m.includes) == 0 && len(m.excludes) == 0
}

// IncludePatterns returns the compiled include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the compiled exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

// matchPattern matches a label against a doublestar pattern.
func matchPattern(pattern, label string) bool {
	matched, err := doublestar.Match(pattern, label)
	if err != nil {
		// Patterns are validated in New.
		return false
	}
	return matched
}
