package server

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func RegisterLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					srv.logger.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
)

// Serve starts the server with the application lifecycle.
var Serve = fx.Invoke(RegisterLifecycle)
