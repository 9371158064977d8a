package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type discordPayload struct {
	Embeds []struct {
		Title  string `json:"title"`
		Color  int    `json:"color"`
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
		Footer struct {
			Text string `json:"text"`
		} `json:"footer"`
	} `json:"embeds"`
	Content string `json:"content"`
}

func discordServer(t *testing.T, status int, captured *[]discordPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload discordPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		*captured = append(*captured, payload)
		w.WriteHeader(status)
	}))
}

func TestDiscordRSVPColors(t *testing.T) {
	var captured []discordPayload
	srv := discordServer(t, http.StatusNoContent, &captured)
	defer srv.Close()

	target := &DiscordTarget{WebhookURL: srv.URL, Clock: fixedRelayClock()}

	require.NoError(t, target.Send(context.Background(), RSVP{Name: "Budi", Attending: true, Guests: 3}))
	require.NoError(t, target.Send(context.Background(), RSVP{Name: "Wati", Attending: false}))

	require.Len(t, captured, 2)
	require.Equal(t, 0x00FF00, captured[0].Embeds[0].Color)
	require.Equal(t, 0xFF0000, captured[1].Embeds[0].Color)
	require.Equal(t, "RSVP Baru", captured[0].Embeds[0].Title)
	require.Equal(t, "Wedding Invitation RSVP", captured[0].Embeds[0].Footer.Text)

	fields := map[string]string{}
	for _, f := range captured[0].Embeds[0].Fields {
		fields[f.Name] = f.Value
	}
	require.Equal(t, "`Budi`", fields["Nama"])
	require.Equal(t, "`Hadir`", fields["Kehadiran"])
	require.Equal(t, "`3`", fields["Jumlah Tamu"])
	require.Equal(t, "`-`", fields["Preferensi Makanan"])
	require.Equal(t, "(Tidak ada pesan)", fields["Pesan"])
}

func TestDiscordGuestbookEmbed(t *testing.T) {
	var captured []discordPayload
	srv := discordServer(t, http.StatusOK, &captured)
	defer srv.Close()

	target := &DiscordTarget{WebhookURL: srv.URL, Clock: fixedRelayClock()}
	require.NoError(t, target.Send(context.Background(), Guestbook{Name: "Sari", Message: "Selamat *menempuh* hidup baru"}))

	embed := captured[0].Embeds[0]
	require.Equal(t, "Pesan Buku Tamu Baru", embed.Title)
	require.Equal(t, 0x00FFFF, embed.Color)
	require.Equal(t, "Wedding Invitation Guestbook", embed.Footer.Text)

	var message string
	for _, f := range embed.Fields {
		if f.Name == "Pesan" {
			message = f.Value
		}
	}
	require.Equal(t, `Selamat \*menempuh\* hidup baru`, message)
}

func TestDiscordErrorStatus(t *testing.T) {
	var captured []discordPayload
	srv := discordServer(t, http.StatusTooManyRequests, &captured)
	defer srv.Close()

	target := &DiscordTarget{WebhookURL: srv.URL}
	err := target.Send(context.Background(), Guestbook{Name: "Sari"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestDiscordUnconfigured(t *testing.T) {
	var target *DiscordTarget
	require.False(t, target.Configured())
	require.Error(t, target.Send(context.Background(), Guestbook{Name: "x"}))
}
