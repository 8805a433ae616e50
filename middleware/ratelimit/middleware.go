package ratelimit

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CountMode string

const (
	CountAll      CountMode = "all"
	CountFailures CountMode = "failures"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      CountMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)

			if cfg.CountMode == CountFailures {
				count, resetTime, err := cfg.Store.Get(ctx, key)
				if err != nil {
					// The limiter fails open; a broken store must not take auth down.
					cfg.Logger.Warn("rate limit store unavailable", zap.Error(err))
					return next(c)
				}
				if count >= cfg.Rate {
					setHeaders(c, cfg.Rate, 0, resetTime)
					return cfg.OnLimitReached(c)
				}

				err = next(c)
				if failed(c, err) {
					if _, _, incErr := cfg.Store.Increment(ctx, key, cfg.Period); incErr != nil {
						cfg.Logger.Warn("rate limit store unavailable", zap.Error(incErr))
					}
				}
				return err
			}

			count, resetTime, err := cfg.Store.Increment(ctx, key, cfg.Period)
			if err != nil {
				cfg.Logger.Warn("rate limit store unavailable", zap.Error(err))
				return next(c)
			}

			if count > cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				return cfg.OnLimitReached(c)
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)
			return next(c)
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	header := c.Response().Header()
	header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	header.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func failed(c echo.Context, err error) bool {
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return httpErr.Code >= http.StatusBadRequest
		}
		return true
	}
	return c.Response().Status >= http.StatusBadRequest
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return "rate_limit:" + realIP
}

// SecureKeyGenerator keys on the client IP and a hash of its user agent, so
// clients sharing a NAT address do not exhaust each other's budget.
func SecureKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	userAgent := c.Request().Header.Get("User-Agent")

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return fmt.Sprintf("rate_limit:%s:%s", realIP, userAgentHash(userAgent))
}

func userAgentHash(s string) string {
	if len(s) == 0 {
		return "none"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
}
