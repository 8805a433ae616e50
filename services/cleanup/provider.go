package cleanup

import (
	"context"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/fx"
)

func ProvideWorker(cfg *config.Config, authService *auth.Service, logger *logging.Service) *Worker {
	return NewWorker(authService, cfg.Cleanup.Interval, logger.Named("cleanup"))
}

func RegisterLifecycle(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			worker.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideWorker),
)

// Scheduler starts the worker with the application.
var Scheduler = fx.Invoke(RegisterLifecycle)
