package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vowgate/vowgate/internal/aichat"
	"github.com/vowgate/vowgate/internal/captcha"
	"github.com/vowgate/vowgate/internal/config"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/relay"
	"github.com/vowgate/vowgate/internal/server/handlers"
	"github.com/vowgate/vowgate/internal/throttle"
	"github.com/vowgate/vowgate/internal/track"
)

type stubTarget struct {
	name   string
	err    error
	events []relay.Event
}

func (s *stubTarget) Name() string { return s.name }

func (s *stubTarget) Send(_ context.Context, event relay.Event) error {
	s.events = append(s.events, event)
	return s.err
}

type testEnv struct {
	server   *Server
	telegram *stubTarget
	discord  *stubTarget
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	captchaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("response") == "good-token" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	t.Cleanup(captchaSrv.Close)

	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Halo, ada yang bisa saya bantu?"}]}}]}`))
	}))
	t.Cleanup(chatSrv.Close)

	tg := &stubTarget{name: "telegram"}
	dc := &stubTarget{name: "discord"}

	chatClient, err := aichat.NewClient("test-key", "", chatSrv.URL, 5*time.Second)
	require.NoError(t, err)

	enricher, err := track.NewEnricher("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = enricher.Close() })

	g := &gate.Gate{
		Throttle:           throttle.New(throttle.NewMemoryStore(), cfg.Throttle.Policies()),
		Captcha:            captcha.New("secret", captchaSrv.URL, time.Second),
		APIKey:             cfg.Track.APIKey,
		ExposeCaptchaCodes: cfg.Captcha.ExposeErrorCodes,
	}

	api := &handlers.API{
		Gate:     g,
		Relay:    relay.New(time.Second, tg, dc),
		Chat:     chatClient,
		Enricher: enricher,
		// Deliver synchronously so tests can assert on stub targets.
		FireAndForgetVisits: false,
	}

	srv := New(Deps{
		Config: cfg,
		API:    api,
		Health: handlers.NewHealthManager("test"),
	})

	return &testEnv{server: srv, telegram: tg, discord: dc}
}

func (e *testEnv) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.RemoteAddr = "203.0.113.10:54321"
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, w))

	w = env.do(http.MethodGet, "/api/chat", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, w))
}

func TestOptionsShortCircuits(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		// One request per window proves preflights never consume quota.
		cfg.Throttle.Endpoints[config.EndpointChat] = config.PolicyConfig{
			Window: time.Minute, MaxRequests: 1, KeyStrategy: "ip",
		}
	})

	for i := 0; i < 5; i++ {
		w := env.do(http.MethodOptions, "/api/chat", "", map[string]string{
			"Origin": "http://localhost:3000",
		})
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		// Browsers resend the session header only when preflight allows it.
		require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")
	}

	w := env.do(http.MethodPost, "/api/chat", `{"message":"Halo"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/chat", `{"message":"Jam berapa acaranya?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Halo, ada yang bisa saya bantu?", resp.Reply)

	// Missing message
	w = env.do(http.MethodPost, "/api/chat", `{"language":"id"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_INPUT", decodeError(t, w))

	// Malformed body
	w = env.do(http.MethodPost, "/api/chat", `{broken`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatThrottled(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Throttle.Endpoints[config.EndpointChat] = config.PolicyConfig{
			Window: time.Minute, MaxRequests: 2, KeyStrategy: "ip",
		}
	})

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/chat", `{"message":"Halo"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(http.MethodPost, "/api/chat", `{"message":"Halo"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "RATE_LIMITED", decodeError(t, w))
}

func TestNotifyRSVPFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"name":"Budi Santoso","attendance":true,"guests":2,"foodPreference":"Vegetarian","message":"Sampai jumpa","token":"good-token","type":"rsvp"}`
	w := env.do(http.MethodPost, "/api/notify", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Results map[string]struct {
			Sent bool `json:"sent"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.Results["telegram"].Sent)
	require.True(t, resp.Results["discord"].Sent)

	require.Len(t, env.telegram.events, 1)
	rsvp, ok := env.telegram.events[0].(relay.RSVP)
	require.True(t, ok)
	require.Equal(t, "Budi Santoso", rsvp.Name)
	require.True(t, rsvp.Attending)
	require.Equal(t, 2, rsvp.Guests)
}

func TestNotifyCaptchaRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"name":"Budi","token":"bad-token"}`
	w := env.do(http.MethodPost, "/api/notify", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "CAPTCHA_FAILED", decodeError(t, w))
	require.Empty(t, env.telegram.events)
	require.Empty(t, env.discord.events)
}

func TestNotifyMissingName(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/notify", `{"token":"good-token"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_INPUT", decodeError(t, w))
}

func TestNotifyPartialFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.discord.err = errors.New("webhook down")

	body := `{"name":"Budi","token":"good-token","type":"guestbook","message":"Selamat"}`
	w := env.do(http.MethodPost, "/api/notify", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Results map[string]struct {
			Sent  bool   `json:"sent"`
			Error string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.False(t, resp.Results["discord"].Sent)
	require.Contains(t, resp.Results["discord"].Error, "webhook down")
}

func TestNotifyAllTargetsFail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.telegram.err = errors.New("token revoked")
	env.discord.err = errors.New("webhook down")

	body := `{"name":"Budi","token":"good-token"}`
	w := env.do(http.MethodPost, "/api/notify", body, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "RELAY_FAILED", decodeError(t, w))
}

func TestTelegramEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"type":"rsvp","nama":"Wati","kehadiran":"Hadir","jumlahTamu":"3","pesan":"Sampai jumpa"}`
	w := env.do(http.MethodPost, "/api/telegram", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.telegram.events, 1)
	require.Empty(t, env.discord.events)
	rsvp := env.telegram.events[0].(relay.RSVP)
	require.True(t, rsvp.Attending)
	require.Equal(t, 3, rsvp.Guests)
}

func TestDiscordEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"type":"guestbook","name":"Sari","message":"Selamat!"}`
	w := env.do(http.MethodPost, "/api/discord", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.discord.events, 1)
	require.Empty(t, env.telegram.events)
	gb := env.discord.events[0].(relay.Guestbook)
	require.Equal(t, "Sari", gb.Name)
}

func TestVisitFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"guest":"Keluarga Besar","sessionId":"sess-1"}`
	w := env.do(http.MethodPost, "/api/visit", body, map[string]string{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
		"Referer":    "https://wedding.example.com/",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.telegram.events, 1)
	visit := env.telegram.events[0].(relay.Visit)
	require.Equal(t, "Keluarga Besar", visit.GuestLabel)
	require.Equal(t, "sess-1", visit.SessionID)
	require.Equal(t, "203.0.113.10", visit.IP)
	require.Contains(t, visit.Browser, "Firefox")

	// Second visit in the same window is throttled (1/hour).
	w = env.do(http.MethodPost, "/api/visit", body, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "RATE_LIMITED", decodeError(t, w))
}

func TestVisitGETUsesQueryParams(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/visit?sessionId=sess-9&path=/undangan", "", map[string]string{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.telegram.events, 1)
	visit := env.telegram.events[0].(relay.Visit)
	require.Equal(t, "sess-9", visit.SessionID)
	require.Equal(t, "/undangan", visit.Path)
	require.Contains(t, visit.Browser, "Firefox")
}

func TestVisitRequiresSecretWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Track.APIKey = "track-secret"
	})

	body := `{"guest":"Tamu"}`
	w := env.do(http.MethodPost, "/api/visit", body, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", decodeError(t, w))

	w = env.do(http.MethodPost, "/api/visit", body, map[string]string{"X-API-Key": "track-secret"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestVisitFailedDeliveryStillAcks(t *testing.T) {
	env := newTestEnv(t, nil)
	env.telegram.err = errors.New("token revoked")
	env.discord.err = errors.New("webhook down")

	w := env.do(http.MethodPost, "/api/visit", `{"guest":"Tamu"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Warning string `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Warning)
}

func TestRecaptchaEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/recaptcha", `{"token":"good-token"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/recaptcha", `{"token":"bad-token"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "CAPTCHA_FAILED", decodeError(t, w))
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var version struct {
		App struct {
			Name string `json:"name"`
		} `json:"app"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	require.Equal(t, "vowgate", version.App.Name)
}

func TestStrictCORSRejectsUnknownOrigin(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.CORS.Strict = true
	})

	w := env.do(http.MethodPost, "/api/chat", `{"message":"Halo"}`, map[string]string{
		"Origin": "https://evil.example.com",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}
