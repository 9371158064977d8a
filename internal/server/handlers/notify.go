package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/relay"
)

type notifyRequest struct {
	Name           string `json:"name"`
	Message        string `json:"message"`
	Attendance     any    `json:"attendance"`
	Guests         any    `json:"guests"`
	FoodPreference string `json:"foodPreference"`
	Token          string `json:"token"`
	Type           string `json:"type"`
	Platform       string `json:"platform"`
}

type notifyResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Results relayResults `json:"results"`
}

type relayResults map[string]relayResult

type relayResult struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

func toRelayResults(results relay.Results) relayResults {
	out := make(relayResults, len(results))
	for name, res := range results {
		rr := relayResult{Sent: res.Sent}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		out[name] = rr
	}
	return out
}

// NotifyHandler accepts an RSVP or guestbook submission, verifies the
// captcha token, then fans the event out to the configured channels.
func (a *API) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	ip := gate.ClientIP(r)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointNotify, ip, gate.SessionID(r, "")); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req notifyRequest
	if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, r, errors.NewInvalidInputError("Nama tidak boleh kosong"))
		return
	}
	if envelope := gate.RequireName(req.Name); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	if envelope := a.Gate.VerifyCaptcha(r.Context(), req.Token, ip); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	message := gate.SanitizeMessage(req.Message)

	var event relay.Event
	if strings.EqualFold(req.Type, "guestbook") {
		event = relay.Guestbook{Name: req.Name, Message: message}
	} else {
		event = relay.RSVP{
			Name:           req.Name,
			Attending:      attending(req.Attendance),
			Guests:         guestCount(req.Guests),
			FoodPreference: strings.TrimSpace(req.FoodPreference),
			Message:        message,
		}
	}

	platform := req.Platform
	if platform == "" {
		platform = "all"
	}
	results := a.Relay.DeliverTo(r.Context(), event, platform)

	if !results.Succeeded() {
		envelope := errors.NewRelayFailedError(
			fmt.Sprintf("Failed to send notification: %v", results.Err()))
		respondWithError(w, r, envelope)
		return
	}

	sent := results.SentTo()
	respondJSON(w, http.StatusOK, notifyResponse{
		Success: true,
		Message: fmt.Sprintf("Notification sent to %d platform(s): %s", len(sent), strings.Join(sent, ", ")),
		Results: toRelayResults(results),
	})
}
