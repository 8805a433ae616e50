package oauth

import (
	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/fx"
)

// ProvideGoogle returns nil when no Google client is configured.
func ProvideGoogle(cfg *config.Config, logger *logging.Service) *Provider {
	if !cfg.Google.Enabled() {
		logger.Info("google sign-in disabled: client credentials not configured")
		return nil
	}
	return NewGoogleProvider(cfg.Google, logger.Named("oauth"))
}

var Module = fx.Options(
	fx.Provide(ProvideGoogle),
)
