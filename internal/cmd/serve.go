package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vowgate/vowgate/internal/aichat"
	"github.com/vowgate/vowgate/internal/captcha"
	"github.com/vowgate/vowgate/internal/config"
	errwrap "github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/gate"
	"github.com/vowgate/vowgate/internal/observability"
	"github.com/vowgate/vowgate/internal/relay"
	"github.com/vowgate/vowgate/internal/server"
	"github.com/vowgate/vowgate/internal/server/handlers"
	"github.com/vowgate/vowgate/internal/throttle"
	"github.com/vowgate/vowgate/internal/track"
)

var (
	serverPort int
	serverHost string
)

// redisHealthChecker reports whether the shared throttle store answers.
type redisHealthChecker struct {
	store *throttle.RedisStore
}

func (c redisHealthChecker) CheckHealth(ctx context.Context) error {
	return c.store.Ping(ctx)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration is invalid")
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		observability.InitServerLogger("vowgate", cfg.Logging.Level)

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", "vowgate"),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))

		// Throttle store: shared Redis when configured, otherwise a
		// process-local map swept in the background.
		var store throttle.Store
		var redisStore *throttle.RedisStore
		var memStore *throttle.MemoryStore
		if cfg.Throttle.RedisAddr != "" {
			redisStore, err = throttle.NewRedisStore(cfg.Throttle.RedisAddr, cfg.Throttle.RedisPassword, cfg.Throttle.RedisDB)
			if err != nil {
				return errwrap.WrapConfigInvalid(cmd.Context(), err, "redis throttle store unavailable")
			}
			store = redisStore
			observability.ServerLogger.Info("Using Redis throttle store",
				zap.String("addr", cfg.Throttle.RedisAddr))
		} else {
			memStore = throttle.NewMemoryStore()
			store = memStore
			observability.ServerLogger.Info("Using in-memory throttle store")
		}

		// Notification targets
		relayClient := &http.Client{Timeout: cfg.Relay.Timeout}
		var targets []relay.Target
		telegramTarget := &relay.TelegramTarget{
			BotToken:    cfg.Relay.Telegram.BotToken,
			ChatID:      cfg.Relay.Telegram.ChatID,
			TrackToken:  cfg.Relay.Telegram.TrackBotToken,
			TrackChatID: cfg.Relay.Telegram.TrackChatID,
			BaseURL:     cfg.Relay.Telegram.BaseURL,
			Client:      relayClient,
		}
		if telegramTarget.Configured() {
			targets = append(targets, telegramTarget)
		}
		discordTarget := &relay.DiscordTarget{
			WebhookURL: cfg.Relay.Discord.WebhookURL,
			Client:     relayClient,
		}
		if discordTarget.Configured() {
			targets = append(targets, discordTarget)
		}
		if len(targets) == 0 {
			observability.ServerLogger.Warn("No notification targets configured; relay endpoints will fail")
		}

		// Chat upstream
		chatClient, err := aichat.NewClient(cfg.Chat.APIKey, cfg.Chat.Model, cfg.Chat.BaseURL, cfg.Chat.Timeout)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "chat prompts failed to load")
		}
		if cfg.Chat.PromptDir != "" {
			prompts, err := aichat.LoadPromptsFromDir(cfg.Chat.PromptDir)
			if err != nil {
				return errwrap.WrapConfigInvalid(cmd.Context(), err, "chat prompt directory failed to load")
			}
			chatClient.Prompts = prompts
		}
		if !chatClient.Configured() {
			observability.ServerLogger.Warn("Chat API key not configured; chat endpoint will fail")
		}

		enricher, err := track.NewEnricher(cfg.Track.GeoIPDB)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "geoip database failed to open")
		}

		g := &gate.Gate{
			Throttle:           throttle.New(store, cfg.Throttle.Policies()),
			Captcha:            captcha.New(cfg.Captcha.Secret, cfg.Captcha.BaseURL, cfg.Captcha.Timeout),
			APIKey:             cfg.Track.APIKey,
			ExposeCaptchaCodes: cfg.Captcha.ExposeErrorCodes,
		}

		api := &handlers.API{
			Gate:                g,
			Relay:               relay.New(cfg.Relay.Timeout, targets...),
			Chat:                chatClient,
			Enricher:            enricher,
			FireAndForgetVisits: cfg.Relay.FireAndForgetVisits,
		}

		hm := handlers.NewHealthManager(versionInfo.Version)
		if redisStore != nil {
			hm.RegisterChecker("throttle_store", redisHealthChecker{store: redisStore})
		}
		hm.RegisterChecker("relay_targets", handlers.HealthCheckFunc(func(ctx context.Context) error {
			if len(targets) == 0 {
				return errwrap.NewConfigInvalidError("no notification targets configured")
			}
			return nil
		}))

		srv := server.New(server.Deps{Config: cfg, API: api, Health: hm})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Background sweep keeps the in-memory store from growing
		// without bound between windows.
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		if memStore != nil && cfg.Throttle.SweepInterval > 0 {
			go func() {
				ticker := time.NewTicker(cfg.Throttle.SweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-sweepCtx.Done():
						return
					case <-ticker.C:
						removed := memStore.Sweep(maxPolicyWindow(cfg))
						if removed > 0 {
							observability.ServerLogger.Debug("Swept expired throttle entries",
								zap.Int("removed", removed))
						}
					}
				}
			}()
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Release stores and trackers
		signals.OnShutdown(func(ctx context.Context) error {
			stopSweep()
			if redisStore != nil {
				if err := redisStore.Close(); err != nil {
					observability.ServerLogger.Warn("Redis store close failed", zap.Error(err))
				}
			}
			if err := enricher.Close(); err != nil {
				observability.ServerLogger.Warn("GeoIP reader close failed", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Config reload on SIGHUP is a restart recommendation only; the
		// throttle store and relay clients hold their startup config.
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: restart the process to apply config changes")
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// maxPolicyWindow returns the longest configured window so the sweeper
// never evicts an entry that is still counting.
func maxPolicyWindow(cfg *config.Config) time.Duration {
	max := time.Hour
	for _, pc := range cfg.Throttle.Endpoints {
		if pc.Window > max {
			max = pc.Window
		}
	}
	return max
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
