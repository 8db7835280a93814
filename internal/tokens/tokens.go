// Package tokens provides approximate token accounting for context
// management. Estimates are character-based and intentionally coarse;
// they are used for savings accounting, not as a tokenizer contract.
package tokens

// CharsPerToken is the estimated characters per token.
const CharsPerToken = 4

// Estimate estimates token count from string content.
// Uses ceiling division by CharsPerToken.
func Estimate(s string) int64 {
	chars := int64(len([]rune(s)))
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// Truncate truncates s to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// Tail returns the last maxRunes runes of s.
func Tail(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[len(runes)-maxRunes:])
}

// FirstLine returns the first line of s, without the trailing newline.
func FirstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
