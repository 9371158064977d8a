// Package handlers implements the HTTP endpoints: the guest-facing API
// plus health and version surfaces.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vowgate/vowgate/internal/aichat"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/relay"
	"github.com/vowgate/vowgate/internal/track"
)

// API bundles the dependencies the guest-facing endpoints share. Every
// handler runs the same admission pipeline before doing any work:
// throttle check, body decode, field validation, then the outbound call.
type API struct {
	Gate     *gate.Gate
	Relay    *relay.Relay
	Chat     *aichat.Client
	Enricher *track.Enricher

	// FireAndForgetVisits acknowledges visit tracking before delivery
	// completes so a slow Telegram call never delays page load.
	FireAndForgetVisits bool
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// attending interprets the attendance field, which clients send either
// as a boolean or as the "Hadir" / "Tidak Hadir" label.
func attending(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "Hadir")
	default:
		return false
	}
}

// guestCount interprets the guest count field, which clients send as a
// number or a numeric string.
func guestCount(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
