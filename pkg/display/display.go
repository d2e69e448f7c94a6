// Package display holds the small formatting helpers shared by the CLI and
// the dashboard: defensive percent-decoding, relative timestamps and log
// ordering.
package display

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// SafeDecode percent-decodes s. Malformed escapes or a result that is not
// valid UTF-8 return s unchanged; it never fails.
func SafeDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil || !utf8.ValidString(decoded) {
		return s
	}
	return decoded
}

// TimeAgo renders t relative to now ("3 minutes ago"). A nil or zero time
// renders as the empty string.
func TimeAgo(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

// ReverseLogs returns the log lines newest first. The input is not
// modified.
func ReverseLogs(logs []string) []string {
	out := make([]string, len(logs))
	for i, line := range logs {
		out[len(logs)-1-i] = line
	}
	return out
}

// Tail returns the last n lines, newest first. n <= 0 returns all lines.
func Tail(logs []string, n int) []string {
	if n > 0 && len(logs) > n {
		logs = logs[len(logs)-n:]
	}
	return ReverseLogs(logs)
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Truncate shortens s to at most width runes, marking the cut with an
// ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
