package handlers

import (
	"net/http"
	"strings"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/relay"
)

// telegramRequest uses the Indonesian field names the original frontend
// submits for the direct Telegram endpoint.
type telegramRequest struct {
	Type              string `json:"type"`
	Nama              string `json:"nama"`
	Kehadiran         string `json:"kehadiran"`
	JumlahTamu        any    `json:"jumlahTamu"`
	PreferensiMakanan string `json:"preferensiMakanan"`
	Pesan             string `json:"pesan"`
}

// TelegramHandler relays a submission to Telegram only.
func (a *API) TelegramHandler(w http.ResponseWriter, r *http.Request) {
	ip := gate.ClientIP(r)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointTelegram, ip, gate.SessionID(r, "")); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req telegramRequest
	if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	event, envelope := eventFromTyped(req.Type, req.Nama, req.Pesan, req.Kehadiran, req.JumlahTamu, req.PreferensiMakanan)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	results := a.Relay.DeliverTo(r.Context(), event, "telegram")
	if !results.Succeeded() {
		respondWithError(w, r, errors.NewRelayFailedError("Failed to send message to Telegram."))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// eventFromTyped builds a relay event from the type tag shared by the
// Telegram and Discord passthrough endpoints.
func eventFromTyped(kind, name, message, attendance string, guests any, foodPreference string) (relay.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewInvalidInputError("Nama tidak boleh kosong")
	}
	message = gate.SanitizeMessage(message)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case relay.KindGuestbook:
		return relay.Guestbook{Name: name, Message: message}, nil
	case relay.KindRSVP, "":
		return relay.RSVP{
			Name:           name,
			Attending:      attending(attendance),
			Guests:         guestCount(guests),
			FoodPreference: strings.TrimSpace(foodPreference),
			Message:        message,
		}, nil
	default:
		return nil, errors.NewInvalidInputError("unknown message type")
	}
}
