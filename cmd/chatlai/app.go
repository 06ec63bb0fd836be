package main

import (
	"context"
	"fmt"

	"github.com/ZaguanLabs/chatlai"
	"github.com/ZaguanLabs/chatlai/cache"
	"github.com/ZaguanLabs/chatlai/internal/config"
	"github.com/ZaguanLabs/chatlai/internal/notice"
	"github.com/ZaguanLabs/chatlai/preference"
	"github.com/ZaguanLabs/chatlai/processor"
	"github.com/ZaguanLabs/chatlai/provider"
	"go.uber.org/zap"
)

// app holds the wired components shared by every command.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	prefs      preference.Store
	cache      *cache.TranslationCache
	backend    *cache.RedisBackend
	translator *chatlai.Translator
	notices    *notice.Notices
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	prefs, err := preference.Open(ctx, cfg.Preferences.Driver, cfg.Preferences.DSN)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	base, err := provider.New(provider.Config{
		Kind:    cfg.Provider.Kind,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
	})
	if err != nil {
		_ = prefs.Close()
		return nil, err
	}

	retry := chatlai.DefaultRetryConfig()
	retry.MaxRetries = cfg.Provider.MaxRetries
	fetcher := chatlai.NewRetryingFetcher(
		chatlai.NewRateLimitedFetcher(base, chatlai.RateLimitConfig{
			RequestsPerMinute: cfg.Provider.RequestsPerMinute,
		}),
		retry,
	)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		prefs:   prefs,
		notices: notice.New("en", logger),
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger.Named("cache"))}
	if cfg.Redis.URL != "" {
		backend, err := cache.NewRedisBackend(cache.RedisConfig{
			URL:       cfg.Redis.URL,
			TTL:       cfg.Cache.TTLSeconds,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			_ = prefs.Close()
			return nil, err
		}
		a.backend = backend
		cacheOpts = append(cacheOpts, cache.WithBackend(backend))
	}

	a.cache = cache.New(cache.Config{
		TTL:        cfg.Cache.TTL(),
		MaxEntries: cfg.Cache.MaxEntries,
	}, cacheOpts...)

	a.translator = chatlai.NewTranslator(prefs, a.cache, fetcher,
		chatlai.WithDefaultTarget(cfg.Translator.DefaultTarget),
		chatlai.WithConcurrency(cfg.Translator.Concurrency),
		chatlai.WithProcessor(processor.NewHTMLProcessor()),
		chatlai.WithProcessor(processor.NewMarkdownProcessor()),
		chatlai.WithLogger(logger.Named("translator")),
	)

	return a, nil
}

func (a *app) Close() error {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	return a.prefs.Close()
}
