package util

import (
	"regexp"
	"strings"
)

var nonDialable = regexp.MustCompile(`[^\d+]+`)

// NormalizePhone strips formatting from user input and rewrites common UK
// forms into E.164 so report filters match what the events carried.
func NormalizePhone(raw string) string {
	s := nonDialable.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case strings.HasPrefix(s, "07") && len(s) == 11:
		s = "+44" + s[1:]
	case strings.HasPrefix(s, "44") && len(s) == 12:
		s = "+" + s
	}

	return s
}
