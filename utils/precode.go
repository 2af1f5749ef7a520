package utils

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	fieldSeparator = ":"
	preCodeLength  = 7
	preCodeField   = 3
)

var nonDigits = regexp.MustCompile(`\D+`)

// SplitLines returns the non-blank lines of raw, trimmed.
func SplitLines(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
}

// StripNonDigits removes every character that is not 0-9.
func StripNonDigits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// LinePreCode reads the PRE code from the fourth colon-separated field of
// line. It reports false unless exactly seven digits remain after stripping.
func LinePreCode(line string) (string, bool) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) <= preCodeField {
		return "", false
	}
	digits := StripNonDigits(fields[preCodeField])
	if len(digits) != preCodeLength {
		return "", false
	}
	return digits, true
}

// ReconcilePreCode picks the PRE code for a line. The code parsed from the
// line wins; otherwise the extracted code is used if it cleans up to seven
// digits. Anything else yields nil.
func ReconcilePreCode(line string, extracted *string) *string {
	if code, ok := LinePreCode(line); ok {
		return &code
	}
	if extracted == nil {
		return nil
	}
	digits := StripNonDigits(*extracted)
	if len(digits) != preCodeLength {
		return nil
	}
	return &digits
}
