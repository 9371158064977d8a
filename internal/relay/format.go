package relay

import (
	"strings"
	"time"
)

// timeLayout mirrors the id-ID locale rendering used in notifications.
const timeLayout = "02/01/2006, 15.04.05"

var telegramEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!", "\\", "\\\\",
)

var discordEscaper = strings.NewReplacer(
	"*", "\\*", "_", "\\_", "~", "\\~",
	"`", "\\`", "|", "\\|", "\\", "\\\\",
)

// EscapeTelegramMarkdown escapes the characters MarkdownV2 reserves.
func EscapeTelegramMarkdown(text string) string {
	if text == "" {
		return ""
	}
	return telegramEscaper.Replace(text)
}

// EscapeDiscordMarkdown escapes Discord inline formatting characters.
func EscapeDiscordMarkdown(text string) string {
	if text == "" {
		return ""
	}
	return discordEscaper.Replace(text)
}

// orDash substitutes the "-" placeholder for empty values.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timeLayout)
}
