package cli

import (
	"context"

	"github.com/fpang/ai-gallery/internal/config"
	"github.com/fpang/ai-gallery/internal/lmstudio"
	"github.com/rs/zerolog/log"
)

// NewClient creates an LM Studio client from the loaded configuration.
func NewClient(cfg *config.Config) *lmstudio.Client {
	return lmstudio.NewClient(cfg.LMStudioURL, lmstudio.Options{
		Model:          cfg.Model,
		HealthTimeout:  cfg.HealthTimeout,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		Retry: lmstudio.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.Backoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		},
	})
}

// RequireHealthy checks that LM Studio answers and exits fatally if not.
func RequireHealthy(ctx context.Context, client *lmstudio.Client) {
	ok, msg := client.CheckHealth(ctx)
	if !ok {
		log.Fatal().Str("url", client.BaseURL()).Msg(msg)
	}
	log.Info().Str("url", client.BaseURL()).Str("model", client.Model()).Msg(msg)
}
