package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramTarget posts events to a Telegram chat through the Bot API.
// Visit events go to the tracking bot and chat when configured so that
// page-open noise stays out of the main channel.
type TelegramTarget struct {
	BotToken    string
	ChatID      string
	TrackToken  string
	TrackChatID string
	BaseURL     string
	Client      *http.Client
	Clock       func() time.Time
}

// Name implements Target.
func (t *TelegramTarget) Name() string { return "telegram" }

// Configured reports whether the main bot credentials are present.
func (t *TelegramTarget) Configured() bool {
	return t != nil && t.BotToken != "" && t.ChatID != ""
}

// Send formats and delivers one event.
func (t *TelegramTarget) Send(ctx context.Context, event Event) error {
	if t == nil {
		return errors.New("telegram target is not configured")
	}

	token, chatID := t.BotToken, t.ChatID
	if event.Kind() == KindVisit {
		if t.TrackToken != "" && t.TrackChatID != "" {
			token, chatID = t.TrackToken, t.TrackChatID
		}
	}
	if token == "" || chatID == "" {
		return errors.New("telegram credentials are not configured")
	}

	text, parseMode := t.render(event)

	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.baseURL(), "/"), token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram response decode: %w", err)
	}
	if !result.OK {
		if result.Description == "" {
			result.Description = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("telegram api: %s", result.Description)
	}
	return nil
}

// render produces the message text and parse mode for an event. RSVP
// and guestbook entries use MarkdownV2 formatting, visits stay plain.
func (t *TelegramTarget) render(event Event) (string, string) {
	switch ev := event.(type) {
	case RSVP:
		message := EscapeTelegramMarkdown(orDash(ev.Message))
		if strings.TrimSpace(ev.Message) == "" {
			message = EscapeTelegramMarkdown("(Tidak ada pesan)")
		}
		guests := "-"
		if ev.Guests > 0 {
			guests = strconv.Itoa(ev.Guests)
		}
		lines := []string{
			"*RSVP Baru*",
			fmt.Sprintf("*Nama:* `%s`", EscapeTelegramMarkdown(ev.Name)),
			fmt.Sprintf("*Kehadiran:* `%s`", EscapeTelegramMarkdown(ev.AttendanceLabel())),
			fmt.Sprintf("*Jumlah Tamu:* `%s`", EscapeTelegramMarkdown(guests)),
			fmt.Sprintf("*Preferensi Makanan:* `%s`", EscapeTelegramMarkdown(orDash(ev.FoodPreference))),
			fmt.Sprintf("*Pesan:* %s", message),
			fmt.Sprintf("*Waktu:* `%s`", EscapeTelegramMarkdown(formatTime(t.now()))),
		}
		return strings.Join(lines, "\n"), "MarkdownV2"

	case Guestbook:
		message := EscapeTelegramMarkdown(ev.Message)
		if strings.TrimSpace(ev.Message) == "" {
			message = EscapeTelegramMarkdown("(Tidak ada pesan)")
		}
		lines := []string{
			"*Pesan Buku Tamu Baru*",
			fmt.Sprintf("*Nama:* `%s`", EscapeTelegramMarkdown(ev.Name)),
			fmt.Sprintf("*Pesan:* %s", message),
			fmt.Sprintf("*Waktu:* `%s`", EscapeTelegramMarkdown(formatTime(t.now()))),
		}
		return strings.Join(lines, "\n"), "MarkdownV2"

	case Visit:
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = t.now()
		}
		lines := []string{
			"Undangan dibuka:",
			"Guest: " + orDash(ev.GuestLabel),
			"IP: " + orDash(ev.IP),
			"Lokasi: " + orDash(ev.Location),
			"Browser: " + orDash(ev.Browser),
			"OS: " + orDash(ev.OS),
			"Device: " + orDash(ev.Device),
			"User Agent: " + orDash(ev.UserAgent),
			"Waktu: " + ts.Format(time.RFC3339),
			"Session ID: " + orDash(ev.SessionID),
			"Referrer: " + orDash(ev.Referrer),
		}
		if ev.Bot {
			lines = append(lines, "Bot: "+orDash(ev.BotName))
		}
		return strings.Join(lines, "\n"), ""

	default:
		return "Pesan tidak diketahui sumbernya.", ""
	}
}

func (t *TelegramTarget) baseURL() string {
	if t.BaseURL != "" {
		return t.BaseURL
	}
	return defaultTelegramBaseURL
}

func (t *TelegramTarget) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}
