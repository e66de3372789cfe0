package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thinkbotapp/thinkbot/internal/auth"
	"github.com/thinkbotapp/thinkbot/internal/completion"
	"github.com/thinkbotapp/thinkbot/internal/config"
	"github.com/thinkbotapp/thinkbot/internal/engine"
	"github.com/thinkbotapp/thinkbot/internal/history"
	"github.com/thinkbotapp/thinkbot/internal/httpapi"
	"github.com/thinkbotapp/thinkbot/internal/mailer"
	"github.com/thinkbotapp/thinkbot/internal/observability"
	"github.com/thinkbotapp/thinkbot/internal/sysinfo"
	"github.com/thinkbotapp/thinkbot/internal/users"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Engine  *engine.Engine
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the full service from config. Both stores fall back to
// in-memory when DATABASE_URL is unset, and the completion provider is
// picked from the configured mode and available API keys.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	historyStore, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}
	userStore, err := users.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = historyStore.Close()
		return nil, fmt.Errorf("user store init failed: %w", err)
	}

	client, err := completion.NewClient(completion.Config{
		Mode:          cfg.CompletionProvider,
		GeminiBaseURL: cfg.GeminiBaseURL,
		GeminiModel:   cfg.GeminiModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		Timeout:       cfg.CompletionTimeout,
	})
	if err != nil {
		_ = historyStore.Close()
		_ = userStore.Close()
		return nil, fmt.Errorf("completion client init failed: %w", err)
	}
	log.Info().Str("provider", client.Name()).Msg("completion provider selected")

	var otpMailer auth.Mailer
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		log.Warn().Msg("SMTP_HOST not set; logging OTPs instead of emailing them")
		otpMailer = mailer.NewLogMailer(log)
	} else {
		otpMailer = mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			StartTLS: cfg.SMTPStartTLS,
		}, log)
	}

	authService := auth.NewService(userStore, otpMailer, cfg.OTPTTL, log)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	eng := engine.New(
		historyStore,
		authService,
		client,
		completion.Keychain{cfg.GeminiAPIKey},
		completion.Keychain{cfg.GeminiSummaryAPIKey, cfg.GeminiAPIKey},
		metrics,
		log,
	)

	api := httpapi.New(cfg, eng, authService, tokens, sysinfo.NewCollector(), metrics, log)

	cleanup := func() error {
		var errs []string
		if err := historyStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := userStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Engine:  eng,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
