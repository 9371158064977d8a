package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Embed colors for the different event kinds.
const (
	colorAttending    = 0x00FF00
	colorNotAttending = 0xFF0000
	colorGuestbook    = 0x00FFFF
	colorVisit        = 0x7289DA
)

// DiscordTarget posts events to a Discord channel webhook as embeds.
type DiscordTarget struct {
	WebhookURL string
	Client     *http.Client
	Clock      func() time.Time
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
	Footer struct {
		Text string `json:"text"`
	} `json:"footer"`
}

// Name implements Target.
func (d *DiscordTarget) Name() string { return "discord" }

// Configured reports whether a webhook URL is present.
func (d *DiscordTarget) Configured() bool {
	return d != nil && d.WebhookURL != ""
}

// Send formats and delivers one event.
func (d *DiscordTarget) Send(ctx context.Context, event Event) error {
	if d == nil || d.WebhookURL == "" {
		return errors.New("discord webhook is not configured")
	}

	body, err := json.Marshal(d.payload(event))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord api: status %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (d *DiscordTarget) payload(event Event) map[string]any {
	switch ev := event.(type) {
	case RSVP:
		color := colorNotAttending
		if ev.Attending {
			color = colorAttending
		}
		message := EscapeDiscordMarkdown(ev.Message)
		if strings.TrimSpace(message) == "" {
			message = "(Tidak ada pesan)"
		}
		guests := "-"
		if ev.Guests > 0 {
			guests = strconv.Itoa(ev.Guests)
		}
		embed := discordEmbed{
			Title: "RSVP Baru",
			Color: color,
			Fields: []discordField{
				{Name: "Nama", Value: "`" + ev.Name + "`", Inline: true},
				{Name: "Kehadiran", Value: "`" + ev.AttendanceLabel() + "`", Inline: true},
				{Name: "Jumlah Tamu", Value: "`" + guests + "`", Inline: true},
				{Name: "Preferensi Makanan", Value: "`" + orDash(ev.FoodPreference) + "`", Inline: true},
				{Name: "Pesan", Value: message},
				{Name: "Waktu", Value: "`" + formatTime(d.now()) + "`"},
			},
		}
		embed.Footer.Text = "Wedding Invitation RSVP"
		return map[string]any{"embeds": []discordEmbed{embed}}

	case Guestbook:
		message := EscapeDiscordMarkdown(ev.Message)
		if strings.TrimSpace(message) == "" {
			message = "(Tidak ada pesan)"
		}
		embed := discordEmbed{
			Title: "Pesan Buku Tamu Baru",
			Color: colorGuestbook,
			Fields: []discordField{
				{Name: "Nama", Value: "`" + ev.Name + "`", Inline: true},
				{Name: "Pesan", Value: message},
				{Name: "Waktu", Value: "`" + formatTime(d.now()) + "`"},
			},
		}
		embed.Footer.Text = "Wedding Invitation Guestbook"
		return map[string]any{"embeds": []discordEmbed{embed}}

	case Visit:
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = d.now()
		}
		embed := discordEmbed{
			Title: "Undangan Dibuka",
			Color: colorVisit,
			Fields: []discordField{
				{Name: "Guest", Value: orDash(ev.GuestLabel), Inline: true},
				{Name: "IP", Value: orDash(ev.IP), Inline: true},
				{Name: "Lokasi", Value: orDash(ev.Location), Inline: true},
				{Name: "Browser", Value: orDash(ev.Browser), Inline: true},
				{Name: "OS", Value: orDash(ev.OS), Inline: true},
				{Name: "Device", Value: orDash(ev.Device), Inline: true},
				{Name: "Waktu", Value: ts.Format(time.RFC3339)},
				{Name: "Session ID", Value: orDash(ev.SessionID)},
				{Name: "Referrer", Value: orDash(ev.Referrer)},
			},
		}
		embed.Footer.Text = "Wedding Invitation Tracker"
		return map[string]any{"embeds": []discordEmbed{embed}}

	default:
		return map[string]any{"content": "Pesan tidak diketahui sumbernya."}
	}
}

func (d *DiscordTarget) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}
