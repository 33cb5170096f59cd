package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Message length limits
const (
	MaxMessageLength = 8000
	MinMessageLength = 1
)

// Dangerous patterns for XSS prevention
var (
	scriptTagRegex = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	onEventRegex   = regexp.MustCompile(`(?i)\s+on\w+\s*=`)
)

// SanitizeMessageContent cleans message content before it is stored.
// Returns the sanitized content, or false when the content is empty or too long.
func SanitizeMessageContent(content string) (string, bool) {
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", false
	}

	// Remove script tags and inline event handlers, then escape what remains
	content = scriptTagRegex.ReplaceAllString(content, "")
	content = onEventRegex.ReplaceAllString(content, " ")
	content = html.EscapeString(content)

	return strings.TrimSpace(content), true
}
