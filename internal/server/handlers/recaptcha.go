package handlers

import (
	"net/http"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/gate"
)

type recaptchaRequest struct {
	Token string `json:"token"`
}

// RecaptchaHandler verifies a captcha token without any side effects,
// letting the frontend pre-validate before the real submission.
func (a *API) RecaptchaHandler(w http.ResponseWriter, r *http.Request) {
	ip := gate.ClientIP(r)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointRecaptcha, ip, gate.SessionID(r, "")); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	var req recaptchaRequest
	if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	if envelope := a.Gate.VerifyCaptcha(r.Context(), req.Token, ip); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
