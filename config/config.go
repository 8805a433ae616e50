package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	Google    GoogleConfig    `envPrefix:"GOOGLE_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	CSRF      CSRFConfig      `envPrefix:"CSRF_"`
	Cleanup   CleanupConfig   `envPrefix:"CLEANUP_"`
}

type AppConfig struct {
	Name        string `env:"NAME" envDefault:"Next Auth App"`
	URL         string `env:"URL" envDefault:"http://localhost:8080"`
	Environment string `env:"ENV" envDefault:"development"`
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"URL" envDefault:"app.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	OTPLength          int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPExpiry          time.Duration `env:"OTP_EXPIRY" envDefault:"10m"`
	PasswordMinLength  int           `env:"PASSWORD_MIN_LENGTH" envDefault:"6"`
	PasswordMinEntropy float64       `env:"PASSWORD_MIN_ENTROPY" envDefault:"0"`
}

type JWTConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET"`
	RefreshSecret string        `env:"REFRESH_SECRET"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
	Issuer        string        `env:"ISSUER" envDefault:"next-auth-app"`
}

type MailConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"log"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT" envDefault:"587"`
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	Encryption   string        `env:"ENCRYPTION" envDefault:"tls"`
	FromAddress  string        `env:"FROM_ADDRESS" envDefault:"onboarding@localhost"`
	FromName     string        `env:"FROM_NAME"`
	TemplatesDir string        `env:"TEMPLATES_DIR"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type SessionConfig struct {
	Store    string        `env:"STORE" envDefault:"memory"`
	Name     string        `env:"NAME" envDefault:"session"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"720h"`
	Path     string        `env:"PATH" envDefault:"/"`
	Domain   string        `env:"DOMAIN"`
	Secure   bool          `env:"SECURE" envDefault:"false"`
	HttpOnly bool          `env:"HTTP_ONLY" envDefault:"true"`
	SameSite string        `env:"SAME_SITE" envDefault:"lax"`
}

type GoogleConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/oauth/google/callback"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type RateLimitConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Store    string        `env:"STORE" envDefault:"memory"`
	RedisURL string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Rate     int           `env:"RATE" envDefault:"20"`
	Period   time.Duration `env:"PERIOD" envDefault:"1m"`
}

type CSRFConfig struct {
	Enabled        bool   `env:"ENABLED" envDefault:"false"`
	TokenLength    uint8  `env:"TOKEN_LENGTH" envDefault:"32"`
	TokenLookup    string `env:"TOKEN_LOOKUP" envDefault:"header:X-CSRF-Token"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"_csrf"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieMaxAge   int    `env:"COOKIE_MAX_AGE" envDefault:"86400"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

type CleanupConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"1h"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateAuthConfig(&c.Auth); err != nil {
		return err
	}
	return nil
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return fmt.Errorf("JWT access and refresh secrets must differ")
	}

	for _, secret := range []string{cfg.AccessSecret, cfg.RefreshSecret} {
		if len(secret) < 32 {
			return fmt.Errorf("JWT secrets must be at least 32 characters long")
		}
		lower := strings.ToLower(secret)
		for _, pattern := range weakSecretPatterns {
			if strings.Contains(lower, pattern) {
				return fmt.Errorf("JWT secret contains weak patterns")
			}
		}
	}

	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return fmt.Errorf("JWT expiries must be positive")
	}
	return nil
}

func validateAuthConfig(cfg *AuthConfig) error {
	if cfg.OTPLength < 4 || cfg.OTPLength > 9 {
		return fmt.Errorf("OTP length must be between 4 and 9 digits")
	}
	if cfg.OTPExpiry <= 0 {
		return fmt.Errorf("OTP expiry must be positive")
	}
	if cfg.PasswordMinLength < 6 {
		return fmt.Errorf("password minimum length cannot be lower than 6")
	}
	return nil
}
