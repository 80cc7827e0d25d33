package identifier

import (
	"regexp"
	"strings"
)

// MainlandPrefix is the canonical prefix for mainland China mobile numbers
const MainlandPrefix = "+86-"

var mainlandShorthand = regexp.MustCompile(`^86([0-9]{11})$`)

// Normalize trims surrounding whitespace and rewrites the mainland mobile
// shorthand "86" + 11 digits into "+86-" + 11 digits.
// All other input is returned trimmed and otherwise unchanged.
func Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if m := mainlandShorthand.FindStringSubmatch(value); m != nil {
		return MainlandPrefix + m[1]
	}
	return value
}

// IsMainlandShorthand reports whether raw would be rewritten by Normalize
func IsMainlandShorthand(raw string) bool {
	return mainlandShorthand.MatchString(strings.TrimSpace(raw))
}

// DigitsOnly strips every non-digit character
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
