// Package captcha verifies reCAPTCHA tokens against the Google
// siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.google.com/recaptcha/api/siteverify"

// Result carries the upstream verification verdict. ErrorCodes are the
// raw upstream failure codes and should only be surfaced to clients in
// non-production environments.
type Result struct {
	Success    bool
	Score      float64
	Action     string
	Hostname   string
	ErrorCodes []string
}

// Verifier talks to the siteverify endpoint.
type Verifier struct {
	Secret  string
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

// New builds a verifier with the given secret.
func New(secret, baseURL string, timeout time.Duration) *Verifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{Secret: secret, BaseURL: baseURL, Timeout: timeout}
}

// Enabled reports whether a secret is configured. When disabled the
// caller should treat verification as not required rather than failed.
func (v *Verifier) Enabled() bool {
	return v != nil && strings.TrimSpace(v.Secret) != ""
}

// Verify submits the client token and optional remote IP.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	if v == nil || strings.TrimSpace(v.Secret) == "" {
		return nil, errors.New("captcha verifier is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return &Result{Success: false, ErrorCodes: []string{"missing-input-response"}}, nil
	}

	form := url.Values{}
	form.Set("secret", v.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: v.timeout()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha verify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("captcha verify read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captcha verify status %d", resp.StatusCode)
	}

	var payload struct {
		Success    bool     `json:"success"`
		Score      float64  `json:"score"`
		Action     string   `json:"action"`
		Hostname   string   `json:"hostname"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("captcha verify decode: %w", err)
	}

	return &Result{
		Success:    payload.Success,
		Score:      payload.Score,
		Action:     payload.Action,
		Hostname:   payload.Hostname,
		ErrorCodes: payload.ErrorCodes,
	}, nil
}

func (v *Verifier) baseURL() string {
	if v.BaseURL != "" {
		return v.BaseURL
	}
	return defaultBaseURL
}

func (v *Verifier) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return 10 * time.Second
}
