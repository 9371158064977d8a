package config

import (
	"time"
)

// Config is the complete service configuration. Defaults reproduce the
// limits and window constants the production site runs with; everything is
// overridable from a YAML file or VOWGATE_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
	Track    TrackConfig    `mapstructure:"track"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CORSConfig contains the origin allow-list policy.
type CORSConfig struct {
	// AllowedOrigins lists site origins permitted to call the API; the
	// first entry is the default echoed to unknown callers.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Strict rejects mismatched origins with 403 instead of substituting
	// the default origin.
	Strict bool `mapstructure:"strict"`
}

// ThrottleConfig contains admission control configuration.
type ThrottleConfig struct {
	// RedisAddr switches the throttle to a shared Redis store when set.
	// Leave empty for the process-local in-memory store.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// SweepInterval controls how often expired in-memory entries are
	// garbage collected.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// Endpoints maps endpoint names (chat, notify, telegram, discord,
	// visit, recaptcha) to their window policies.
	Endpoints map[string]PolicyConfig `mapstructure:"endpoints"`
}

// PolicyConfig describes one endpoint's throttle window.
type PolicyConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
	KeyStrategy string        `mapstructure:"key_strategy"`
}

// RelayConfig contains notification target configuration.
type RelayConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`

	// Timeout bounds each outbound delivery call.
	Timeout time.Duration `mapstructure:"timeout"`

	// FireAndForgetVisits keeps the visit endpoint answering 200 even when
	// every target fails, so tracking never blocks the invitation UI.
	FireAndForgetVisits bool `mapstructure:"fire_and_forget_visits"`
}

// TelegramConfig contains bot credentials. The track pair, when set, routes
// visit events to a dedicated analytics bot/channel.
type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	ChatID        string `mapstructure:"chat_id"`
	TrackBotToken string `mapstructure:"track_bot_token"`
	TrackChatID   string `mapstructure:"track_chat_id"`
	BaseURL       string `mapstructure:"base_url"`
}

// DiscordConfig contains the webhook target.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// ChatConfig contains the Gemini proxy configuration.
type ChatConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PromptDir string        `mapstructure:"prompt_dir"`
}

// CaptchaConfig contains the reCAPTCHA verifier configuration.
type CaptchaConfig struct {
	Secret  string        `mapstructure:"secret"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// ExposeErrorCodes returns upstream verification codes to clients.
	// Meant for staging; leave off in production.
	ExposeErrorCodes bool `mapstructure:"expose_error_codes"`
}

// TrackConfig contains visit tracking configuration.
type TrackConfig struct {
	// APIKey is the shared secret required in X-API-Key on the visit
	// endpoint; empty disables the check.
	APIKey string `mapstructure:"api_key"`

	// GeoIPDB points at a local MaxMind mmdb for location enrichment;
	// empty disables geo lookups.
	GeoIPDB string `mapstructure:"geoip_db"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}
