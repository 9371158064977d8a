package handlers

import (
	"net/http"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/gate"
)

type chatRequest struct {
	Message  string `json:"message"`
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler proxies a guest question to the AI upstream.
func (a *API) ChatHandler(w http.ResponseWriter, r *http.Request) {
	ip := gate.ClientIP(r)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointChat, ip, gate.SessionID(r, "")); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req chatRequest
	if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	// Older clients send the question as "prompt".
	message := req.Message
	if message == "" {
		message = req.Prompt
	}
	if message == "" {
		respondWithError(w, r, errors.NewInvalidInputError("Message is required"))
		return
	}

	if !a.Chat.Configured() {
		respondWithError(w, r, errors.NewConfigInvalidError("chat upstream is not configured"))
		return
	}

	reply, err := a.Chat.Reply(r.Context(), message, req.Language)
	if err != nil {
		respondWithError(w, r, errors.WrapUpstream(r.Context(), err, "Failed to process your request"))
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
