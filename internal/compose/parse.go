package compose

import "strings"

// ParseRecipient turns "alice at example dot com" into "alice@example.com".
// Text without a spoken " at " or " dot " is returned trimmed, so plain
// usernames survive untouched.
func ParseRecipient(text string) string {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, " at ") && !strings.Contains(lower, " dot ") {
		return strings.TrimSpace(text)
	}
	return SpokenAddress(text)
}

// SpokenAddress applies the at/dot substitution without checking whether the
// text looks like a spoken address.
func SpokenAddress(text string) string {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		switch w {
		case "at":
			words[i] = "@"
		case "dot":
			words[i] = "."
		}
	}
	return strings.Join(words, "")
}

func containsFold(text, keyword string) bool {
	return strings.Contains(strings.ToLower(text), keyword)
}
