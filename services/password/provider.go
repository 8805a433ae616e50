package password

import (
	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, logger *logging.Service) *Hasher {
		return NewHasher(cfg.Auth, logger.Named("password"))
	}),
)
