package ratelimit

import (
	"context"
	"fmt"
	"io"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewStore(cfg config.RateLimitConfig) (Store, error) {
	switch cfg.Store {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit redis url: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), ""), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s (supported: memory, redis)", cfg.Store)
	}
}

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Store, error) {
	store, err := NewStore(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if redisStore, ok := store.(*RedisStore); ok {
				if err := redisStore.client.Ping(ctx).Err(); err != nil {
					logger.Warn("rate limit redis unreachable, requests will not be limited until it recovers", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			switch s := store.(type) {
			case *MemoryStore:
				return s.Close()
			case *RedisStore:
				if closer, ok := s.client.(io.Closer); ok {
					return closer.Close()
				}
			}
			return nil
		},
	})

	logger.Info("rate limit store ready", zap.String("store", cfg.RateLimit.Store), zap.Bool("enabled", cfg.RateLimit.Enabled))
	return store, nil
}

// FromConfig builds the limiter for the auth routes. It is a no-op when
// limiting is disabled.
func FromConfig(cfg config.RateLimitConfig, store Store, logger *logging.Service) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return Middleware(&Config{
		Store:  store,
		Rate:   cfg.Rate,
		Period: cfg.Period,
		Logger: logger.Named("ratelimit"),
	})
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
