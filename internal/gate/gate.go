// Package gate is the admission pipeline every handler runs before any
// outbound call: origin and secret checks, body decoding, throttling,
// and captcha verification. A request that fails any step never reaches
// a relay or the chat upstream.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"

	fulerrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/vowgate/vowgate/internal/captcha"
	"github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/observability"
	"github.com/vowgate/vowgate/internal/throttle"
)

// SessionHeader carries the client-generated session id.
const SessionHeader = "X-Session-ID"

// APIKeyHeader carries the shared secret for protected endpoints.
const APIKeyHeader = "X-API-Key"

const defaultMaxBodyBytes = 64 * 1024

// Gate bundles the admission checks.
type Gate struct {
	Throttle *throttle.Throttle
	Captcha  *captcha.Verifier

	// APIKey guards the tracking endpoints when set.
	APIKey string

	// ExposeCaptchaCodes surfaces upstream verification error codes to
	// clients. Keep it off in production.
	ExposeCaptchaCodes bool

	MaxBodyBytes int64
}

// ClientIP extracts the originating address, preferring the first
// X-Forwarded-For hop over the socket peer.
func ClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if candidate != "" {
			return candidate
		}
	}

	hostPort := strings.TrimSpace(r.RemoteAddr)
	if hostPort == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(hostPort); err == nil {
		return addr.Addr().String()
	}
	if addr, err := netip.ParseAddr(hostPort); err == nil {
		return addr.String()
	}
	return hostPort
}

// SessionID returns the caller's session id, preferring an explicit
// body value over the session header.
func SessionID(r *http.Request, bodySession string) string {
	if s := strings.TrimSpace(bodySession); s != "" {
		return s
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// Admit consults the throttle for the endpoint. A nil return means the
// request may proceed. Store failures admit the request and are logged;
// the throttle is best effort and must never take the service down.
func (g *Gate) Admit(ctx context.Context, endpoint, ip, session string) *fulerrors.ErrorEnvelope {
	if g == nil || g.Throttle == nil {
		return nil
	}
	decision, err := g.Throttle.Allow(ctx, endpoint, ip, session)
	if err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("throttle store unavailable, admitting request",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}
	if decision.Allowed {
		return nil
	}

	envelope := errors.NewRateLimitedError("Terlalu banyak permintaan, coba lagi nanti")
	envelope, _ = envelope.WithContext(map[string]interface{}{
		"endpoint":            endpoint,
		"retry_after_seconds": int(decision.RetryAfter.Seconds()),
	})
	return envelope
}

// RequireSecret enforces the shared API key when one is configured.
func (g *Gate) RequireSecret(r *http.Request) *fulerrors.ErrorEnvelope {
	if g == nil || g.APIKey == "" {
		return nil
	}
	if r.Header.Get(APIKeyHeader) != g.APIKey {
		return errors.NewForbiddenError("invalid or missing API key")
	}
	return nil
}

// DecodeBody reads a bounded JSON body into dst.
func (g *Gate) DecodeBody(w http.ResponseWriter, r *http.Request, dst any) *fulerrors.ErrorEnvelope {
	limit := int64(defaultMaxBodyBytes)
	if g != nil && g.MaxBodyBytes > 0 {
		limit = g.MaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewInvalidInputError("request body is required")
		}
		return errors.WrapInvalidInput(r.Context(), err, "request body is not valid JSON")
	}
	return nil
}

// VerifyCaptcha checks the client token. Upstream error codes reach the
// envelope context only when ExposeCaptchaCodes is on.
func (g *Gate) VerifyCaptcha(ctx context.Context, token, ip string) *fulerrors.ErrorEnvelope {
	if g == nil || !g.Captcha.Enabled() {
		return errors.NewConfigInvalidError("captcha verification is not configured")
	}

	result, err := g.Captcha.Verify(ctx, token, ip)
	if err != nil {
		return errors.WrapUpstream(ctx, err, "captcha verification could not be completed")
	}
	if result.Success {
		return nil
	}

	envelope := errors.NewCaptchaFailedError("Verifikasi reCAPTCHA gagal")
	if g.ExposeCaptchaCodes && len(result.ErrorCodes) > 0 {
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"error_codes": result.ErrorCodes,
		})
	}
	return envelope
}

// RequireName validates the guest name field shared by the RSVP and
// guestbook payloads.
func RequireName(name string) *fulerrors.ErrorEnvelope {
	if err := ValidateName(name); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("Nama tidak valid: %v", err))
	}
	return nil
}
