package business

import (
	"fmt"
	"strings"
)

// Slugify turns a display name into a URL username: lowercased, runs of
// anything non-alphanumeric collapsed into single dashes.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// CandidateUsername returns the n-th username candidate for a base slug:
// "base" for n=0, then "base-1", "base-2", ...
func CandidateUsername(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
