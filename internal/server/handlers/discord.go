package handlers

import (
	"net/http"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/gate"
)

type discordRequest struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	Message        string `json:"message"`
	Attendance     string `json:"attendance"`
	Guests         any    `json:"guests"`
	FoodPreference string `json:"foodPreference"`
}

// DiscordHandler relays a submission to Discord only. Unlike the
// original webhook passthrough, the payload must be one of the known
// event shapes so the endpoint cannot be abused as an open proxy.
func (a *API) DiscordHandler(w http.ResponseWriter, r *http.Request) {
	ip := gate.ClientIP(r)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointDiscord, ip, gate.SessionID(r, "")); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req discordRequest
	if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	event, err := eventFromTyped(req.Type, req.Name, req.Message, req.Attendance, req.Guests, req.FoodPreference)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	results := a.Relay.DeliverTo(r.Context(), event, "discord")
	if !results.Succeeded() {
		respondWithError(w, r, errors.NewRelayFailedError("Failed to send to Discord"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
