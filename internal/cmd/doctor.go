package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/vowgate/vowgate/internal/config"
	errwrap "github.com/vowgate/vowgate/internal/errors"
	"github.com/vowgate/vowgate/internal/observability"
	"github.com/vowgate/vowgate/internal/output"
	"github.com/vowgate/vowgate/internal/throttle"
)

var doctorOutput string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the configuration and its external services, and suggest fixes for common issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(doctorOutput)
		if err != nil {
			return err
		}

		report := runDiagnostics(cmd.Context())

		rendered, err := output.NewFormatter(format).FormatReport(report)
		if err != nil {
			return err
		}
		fmt.Println(rendered)

		if !report.Healthy() {
			ExitWithCode(observability.CLILogger, foundry.ExitFailure,
				"Diagnostics reported failures", errwrap.NewInternalError("one or more diagnostic checks failed"))
		}
		return nil
	},
}

func runDiagnostics(ctx context.Context) *output.Report {
	report := &output.Report{}

	report.Add("environment", output.StatusOK, fmt.Sprintf("%s/%s, %s", runtime.GOOS, runtime.GOARCH, runtime.Version()))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		report.Add("config", output.StatusFail, err.Error())
		return report
	}
	report.Add("config", output.StatusOK, configLocation())

	checkThrottleStore(ctx, report, cfg)
	checkRelayTargets(report, cfg)

	if strings.TrimSpace(cfg.Chat.APIKey) != "" {
		report.Add("chat", output.StatusOK, fmt.Sprintf("model %s", cfg.Chat.Model))
	} else {
		report.Add("chat", output.StatusWarn, "API key not set, /api/chat will refuse requests")
	}

	if strings.TrimSpace(cfg.Captcha.Secret) != "" {
		report.Add("captcha", output.StatusOK, "secret configured")
	} else {
		report.Add("captcha", output.StatusWarn, "secret not set, captcha verification disabled")
	}

	checkGeoIP(report, cfg)

	return report
}

func configLocation() string {
	if cfgFile != "" {
		return cfgFile
	}
	path := config.DefaultConfigPath()
	if path == "" {
		return "built-in defaults"
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("built-in defaults (%s absent)", filepath.Dir(path))
	}
	return path
}

func checkThrottleStore(ctx context.Context, report *output.Report, cfg *config.Config) {
	if cfg.Throttle.RedisAddr == "" {
		report.Add("throttle store", output.StatusOK, "in-memory (single instance)")
		return
	}

	store, err := throttle.NewRedisStore(cfg.Throttle.RedisAddr, cfg.Throttle.RedisPassword, cfg.Throttle.RedisDB)
	if err != nil {
		report.Add("throttle store", output.StatusFail, fmt.Sprintf("redis %s unreachable: %v", cfg.Throttle.RedisAddr, err))
		return
	}
	defer store.Close() //nolint:errcheck

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		report.Add("throttle store", output.StatusFail, fmt.Sprintf("redis ping failed: %v", err))
		return
	}
	report.Add("throttle store", output.StatusOK, fmt.Sprintf("redis %s", cfg.Throttle.RedisAddr))
}

func checkRelayTargets(report *output.Report, cfg *config.Config) {
	telegram := cfg.Relay.Telegram
	switch {
	case telegram.BotToken != "" && telegram.ChatID != "":
		detail := "bot token and chat ID configured"
		if telegram.TrackBotToken != "" && telegram.TrackChatID != "" {
			detail += ", separate visit tracking bot"
		}
		report.Add("telegram relay", output.StatusOK, detail)
	case telegram.BotToken != "" || telegram.ChatID != "":
		report.Add("telegram relay", output.StatusWarn, "partially configured, both bot token and chat ID are required")
	default:
		report.Add("telegram relay", output.StatusSkip, "not configured")
	}

	if cfg.Relay.Discord.WebhookURL != "" {
		report.Add("discord relay", output.StatusOK, "webhook configured")
	} else {
		report.Add("discord relay", output.StatusSkip, "not configured")
	}
}

func checkGeoIP(report *output.Report, cfg *config.Config) {
	path := strings.TrimSpace(cfg.Track.GeoIPDB)
	if path == "" {
		report.Add("geoip", output.StatusSkip, "no database configured, visit locations will be \"-\"")
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		report.Add("geoip", output.StatusFail, fmt.Sprintf("%s: %v", path, err))
		return
	}
	report.Add("geoip", output.StatusOK, fmt.Sprintf("%s (%d bytes)", path, info.Size()))
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", "table", "output format (table, json, markdown)")
}
