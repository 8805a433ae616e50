package testutils

import (
	"time"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Test App",
			URL:         "http://localhost:8080",
			Environment: "test",
		},
		Log: config.LogConfig{Level: "debug", Format: "console", Output: "stdout"},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			BcryptCost:        bcrypt.MinCost,
			OTPLength:         6,
			OTPExpiry:         10 * time.Minute,
			PasswordMinLength: 6,
		},
		JWT: config.JWTConfig{
			AccessSecret:  "access-signing-key-for-unit-runs-0001",
			RefreshSecret: "refresh-signing-key-for-unit-runs-0002",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 7 * 24 * time.Hour,
			Issuer:        "next-auth-app-test",
		},
		Mail: config.MailConfig{
			Driver:      "log",
			FromAddress: "noreply@example.com",
			FromName:    "Test App",
		},
		Session: config.SessionConfig{
			Store:    "memory",
			Name:     "session",
			MaxAge:   time.Hour,
			Path:     "/",
			HttpOnly: true,
			SameSite: "lax",
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
			Store:   "memory",
			Rate:    100,
			Period:  time.Minute,
		},
		Cleanup: config.CleanupConfig{Interval: 0},
	}
}

var TestUsers = struct {
	Email       string
	Name        string
	Password    string
	NewPassword string
}{
	Email:       "a@x.com",
	Name:        "Ada",
	Password:    "secret1",
	NewPassword: "secret2",
}
