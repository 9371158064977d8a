package gate

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength    = 50
	maxMessageLength = 300
)

var namePattern = regexp.MustCompile(`^[a-zA-Z .,'-]+$`)

// ValidateName checks a guest name against the accepted character set
// and length limit.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name contains unsupported characters")
	}
	return nil
}

// SanitizeMessage trims, truncates, and HTML-escapes free-form guest
// text before it travels to external channels.
func SanitizeMessage(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		runes := []rune(message)
		message = string(runes[:maxMessageLength])
	}
	return html.EscapeString(message)
}
