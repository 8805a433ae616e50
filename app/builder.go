package app

import (
	"errors"
	"fmt"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/database"
	"github.com/WaqasAhmad313/next-auth-app/handlers"
	"github.com/WaqasAhmad313/next-auth-app/middleware/ratelimit"
	"github.com/WaqasAhmad313/next-auth-app/server"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/cleanup"
	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/mail"
	"github.com/WaqasAhmad313/next-auth-app/services/oauth"
	"github.com/WaqasAhmad313/next-auth-app/services/otp"
	"github.com/WaqasAhmad313/next-auth-app/services/password"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

type AppBuilder struct {
	config    *config.Config
	http      bool
	scheduler bool
	fxOptions []fx.Option
	errors    []error
}

// NewApp starts a builder for the full service: HTTP gateway and the
// scheduled cleanup of expired codes.
func NewApp() *AppBuilder {
	return &AppBuilder{
		http:      true,
		scheduler: true,
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithoutHTTP leaves out the server, sessions and routes.
func (b *AppBuilder) WithoutHTTP() *AppBuilder {
	b.http = false
	return b
}

func (b *AppBuilder) WithoutScheduler() *AppBuilder {
	b.scheduler = false
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil {
		b.WithAutoConfig()
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	app := &App{config: b.config}

	options := b.buildFxOptions()
	options = append(options, fx.Populate(&app.logger, &app.db, &app.auth, &app.cleanup))
	if b.http {
		options = append(options, fx.Populate(&app.server))
	}

	fxApp := fx.New(options...)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	app.fx = fxApp

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	if b.config == nil {
		return errors.New("config is required")
	}
	return b.config.Validate()
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
			if logger.Logger() == nil {
				return fxevent.NopLogger
			}
			zapLogger := &fxevent.ZapLogger{Logger: logger.Logger().Named("fx")}
			zapLogger.UseLogLevel(zapcore.DebugLevel)
			return zapLogger
		}),
		logging.Module,
		database.Module,
		store.Module,
		password.Module,
		otp.Module,
		jwt.Module,
		mail.Module,
		auth.Module,
		cleanup.Module,
	}

	if b.http {
		options = append(options,
			session.Module,
			ratelimit.Module,
			oauth.Module,
			server.Module,
			handlers.Module,
			server.Serve,
		)
	}

	if b.scheduler {
		options = append(options, cleanup.Scheduler)
	}

	options = append(options, b.fxOptions...)
	return options
}
