package jwt

import (
	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/fx"
)

func NewJWTService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg.JWT, logger.Named("jwt"))
}

var Module = fx.Options(
	fx.Provide(NewJWTService),
)
