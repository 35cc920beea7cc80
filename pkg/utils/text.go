package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	spacePattern   = regexp.MustCompile(`\s+`)
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// StripHTML reduces an HTML message body to its collapsed plain text
func StripHTML(s string) string {
	text := tagPattern.ReplaceAllString(s, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlPattern.ReplaceAllString(s, "")
}

// ValidateAmount rejects negative and non-finite money amounts
func ValidateAmount(amount float64) error {
	if amount != amount || amount > 1e12 || amount < -1e12 {
		return fmt.Errorf("amount out of range: %v", amount)
	}
	if amount < 0 {
		return fmt.Errorf("amount must not be negative: %.2f", amount)
	}
	return nil
}

// EscapeHTML escapes user text before it is embedded in a message body
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
