package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/observability"
	"github.com/vowgate/vowgate/internal/relay"
)

type visitRequest struct {
	Guest     string `json:"guest"`
	UserAgent string `json:"userAgent"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
	Path      string `json:"path"`
}

type visitResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
}

// VisitHandler records an invitation page open. The once-per-window
// throttle keeps repeat opens from the same caller quiet, and delivery
// never blocks the page: a relay failure still acknowledges the visit.
func (a *API) VisitHandler(w http.ResponseWriter, r *http.Request) {
	if envelope := a.Gate.RequireSecret(r); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	// GET opens carry no body, only headers and query parameters.
	var req visitRequest
	if r.Method != http.MethodGet {
		if envelope := a.Gate.DecodeBody(w, r, &req); envelope != nil {
			respondWithError(w, r, envelope)
			return
		}
	} else {
		req.SessionID = r.URL.Query().Get("sessionId")
		req.Path = r.URL.Query().Get("path")
	}

	ip := gate.ClientIP(r)
	session := gate.SessionID(r, req.SessionID)
	if envelope := a.Gate.Admit(r.Context(), config.EndpointVisit, ip, session); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	info := a.Enricher.Enrich(userAgent, ip)
	event := relay.Visit{
		GuestLabel: strings.TrimSpace(req.Guest),
		UserAgent:  userAgent,
		Timestamp:  timestamp,
		SessionID:  session,
		IP:         ip,
		Referrer:   r.Referer(),
		Browser:    info.Browser,
		OS:         info.OS,
		Device:     info.Device,
		Location:   info.Location,
		Bot:        info.Bot,
		BotName:    info.BotName,
		Path:       strings.TrimSpace(req.Path),
	}

	if a.FireAndForgetVisits {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			results := a.Relay.Deliver(ctx, event)
			if !results.Succeeded() && observability.ServerLogger != nil {
				observability.ServerLogger.Warn("visit delivery failed",
					zap.String("session_id", session),
					zap.Error(results.Err()),
				)
			}
		}()
		respondJSON(w, http.StatusOK, visitResponse{Success: true})
		return
	}

	results := a.Relay.Deliver(r.Context(), event)
	if !results.Succeeded() {
		// Tracking must never block the invitation from loading.
		warning := "visit recorded but not delivered"
		if err := results.Err(); err != nil {
			warning = err.Error()
		}
		respondJSON(w, http.StatusOK, visitResponse{Success: false, Warning: warning})
		return
	}
	respondJSON(w, http.StatusOK, visitResponse{Success: true})
}
