package app

import (
	"context"
	"net/http"
	"time"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/platform"
	"github.com/dealwire/social-engine/internal/storage"
)

const platformHTTPTimeout = 60 * time.Second

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	return storage.NewS3Store(ctx, cfg.Storage)
}

// buildPublishers constructs a publisher per configured platform, each
// wrapped in a circuit breaker. Platforms without credentials are skipped
// with a warning; enabling them in settings later yields per-attempt
// "unknown platform" history entries until credentials arrive.
func buildPublishers(cfg *config.Config, log logger.Logger) []platform.Publisher {
	httpClient := &http.Client{Timeout: platformHTTPTimeout}

	publishers := make([]platform.Publisher, 0, 4)

	if tg, err := platform.NewTelegram(cfg.Platforms.Telegram, httpClient); err != nil {
		log.Warn("telegram publisher not configured", logger.Error(err))
	} else {
		publishers = append(publishers, platform.WithBreaker(tg))
	}

	if fb, err := platform.NewFacebook(cfg.Platforms.Facebook, httpClient); err != nil {
		log.Warn("facebook publisher not configured", logger.Error(err))
	} else {
		publishers = append(publishers, platform.WithBreaker(fb))
	}

	if tw, err := platform.NewTwitter(cfg.Platforms.Twitter, httpClient); err != nil {
		log.Warn("twitter publisher not configured", logger.Error(err))
	} else {
		publishers = append(publishers, platform.WithBreaker(tw))
	}

	if ig, err := platform.NewInstagram(cfg.Platforms.Instagram, httpClient); err != nil {
		log.Warn("instagram publisher not configured", logger.Error(err))
	} else {
		publishers = append(publishers, platform.WithBreaker(ig))
	}

	return publishers
}
