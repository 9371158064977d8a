// Package config provides centralized configuration management. Defaults
// are layered under an optional YAML file and VOWGATE_* environment
// variables via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/vowgate/vowgate/internal/throttle"
)

const envPrefix = "VOWGATE"

// Endpoint names used as throttle policy keys and log fields.
const (
	EndpointChat      = "chat"
	EndpointNotify    = "notify"
	EndpointTelegram  = "telegram"
	EndpointDiscord   = "discord"
	EndpointVisit     = "visit"
	EndpointRecaptcha = "recaptcha"
)

// setDefaults registers the full default tree. The per-endpoint throttle
// constants reproduce the limits the production functions shipped with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.strict", false)

	v.SetDefault("throttle.redis_addr", "")
	v.SetDefault("throttle.redis_password", "")
	v.SetDefault("throttle.redis_db", 0)
	v.SetDefault("throttle.sweep_interval", 5*time.Minute)

	v.SetDefault("throttle.endpoints.chat.window", time.Minute)
	v.SetDefault("throttle.endpoints.chat.max_requests", 10)
	v.SetDefault("throttle.endpoints.chat.key_strategy", "ip")

	v.SetDefault("throttle.endpoints.notify.window", 10*time.Minute)
	v.SetDefault("throttle.endpoints.notify.max_requests", 5)
	v.SetDefault("throttle.endpoints.notify.key_strategy", "ip")

	v.SetDefault("throttle.endpoints.telegram.window", time.Minute)
	v.SetDefault("throttle.endpoints.telegram.max_requests", 5)
	v.SetDefault("throttle.endpoints.telegram.key_strategy", "ip")

	v.SetDefault("throttle.endpoints.discord.window", time.Minute)
	v.SetDefault("throttle.endpoints.discord.max_requests", 5)
	v.SetDefault("throttle.endpoints.discord.key_strategy", "ip")

	v.SetDefault("throttle.endpoints.visit.window", time.Hour)
	v.SetDefault("throttle.endpoints.visit.max_requests", 1)
	v.SetDefault("throttle.endpoints.visit.key_strategy", "ip_session")

	v.SetDefault("throttle.endpoints.recaptcha.window", time.Minute)
	v.SetDefault("throttle.endpoints.recaptcha.max_requests", 10)
	v.SetDefault("throttle.endpoints.recaptcha.key_strategy", "ip")

	v.SetDefault("relay.timeout", 10*time.Second)
	v.SetDefault("relay.fire_and_forget_visits", true)
	v.SetDefault("relay.telegram.base_url", "https://api.telegram.org")

	v.SetDefault("chat.model", "gemini-1.5-flash")
	v.SetDefault("chat.base_url", "https://generativelanguage.googleapis.com/v1")
	v.SetDefault("chat.timeout", 25*time.Second)

	v.SetDefault("captcha.base_url", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("captcha.timeout", 10*time.Second)
	v.SetDefault("captcha.expose_error_codes", false)

	v.SetDefault("logging.level", "info")
}

// Load reads configuration from defaults, an optional file, and the
// environment. An empty path checks the default location and skips it
// silently when absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets arrive through the environment in deployments; bind them
	// explicitly so they resolve without a config file entry.
	for _, key := range []string{
		"relay.telegram.bot_token",
		"relay.telegram.chat_id",
		"relay.telegram.track_bot_token",
		"relay.telegram.track_chat_id",
		"relay.discord.webhook_url",
		"chat.api_key",
		"captcha.secret",
		"track.api_key",
		"throttle.redis_addr",
	} {
		_ = v.BindEnv(key)
	}

	if path == "" {
		path = DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// Durations and origin lists arrive as strings from the environment
	// and are converted by the decode hooks.
	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfigPath resolves the conventional config file location.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vowgate", "config.yaml")
}

// Validate rejects unusable configuration with actionable messages.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins must list at least one origin")
	}
	for name, pc := range c.Throttle.Endpoints {
		if err := pc.Policy().Validate(); err != nil {
			return fmt.Errorf("throttle.endpoints.%s: %w", name, err)
		}
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	return nil
}

// Policy converts the config shape into a throttle policy.
func (p PolicyConfig) Policy() throttle.Policy {
	return throttle.Policy{
		Window:      p.Window,
		MaxRequests: p.MaxRequests,
		KeyStrategy: throttle.KeyStrategy(p.KeyStrategy),
	}
}

// Policies converts all configured endpoint policies.
func (t ThrottleConfig) Policies() map[string]throttle.Policy {
	out := make(map[string]throttle.Policy, len(t.Endpoints))
	for name, pc := range t.Endpoints {
		out[name] = pc.Policy()
	}
	return out
}
