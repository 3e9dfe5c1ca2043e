// Package text implements the codepoint-based truncation rules shared
// by reply posting and thread naming. Limits are defined in Unicode
// codepoints, not bytes, because that is how the platform counts them.
package text

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength is the message content limit in codepoints.
	MaxContentLength = 2000

	// MaxNameLength is the thread name limit in codepoints.
	MaxNameLength = 100
)

const ellipsis = "…"

// Truncate returns s unchanged when it fits within max codepoints.
// Otherwise it keeps the first max-1 codepoints and appends a single
// ellipsis, so the result counts exactly max codepoints and visibly
// marks the cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + ellipsis
}

// TruncateName cuts s to max codepoints. No ellipsis is appended, so
// a cut name is entirely the user's own text.
func TruncateName(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// DeriveThreadName builds a thread name from message content: the
// first non-empty line, trimmed, cut to the name limit. Content with
// no usable line yields "Thread".
func DeriveThreadName(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return TruncateName(line, MaxNameLength)
		}
	}
	return "Thread"
}
