package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/server"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/cleanup"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	fx      *fx.App
	config  *config.Config
	logger  *logging.Service
	db      *gorm.DB
	auth    *auth.Service
	cleanup *cleanup.Worker
	server  *server.Server
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT or SIGTERM, or until a
// component requests shutdown.
func (a *App) Run() error {
	startCtx, cancel := context.WithTimeout(context.Background(), a.fx.StartTimeout())
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))
	case <-a.fx.Done():
		a.logger.Info("shutdown requested, stopping")
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}
	return nil
}

// CleanupExpiredOTPs runs one purge of expired verification codes.
func (a *App) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	return a.cleanup.RunOnce(ctx)
}

// Echo returns the HTTP router, or nil when the application was built
// without HTTP.
func (a *App) Echo() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) Auth() *auth.Service {
	return a.auth
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
