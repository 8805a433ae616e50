package auth

import (
	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/mail"
	"github.com/WaqasAhmad313/next-auth-app/services/otp"
	"github.com/WaqasAhmad313/next-auth-app/services/password"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"go.uber.org/fx"
)

type Deps struct {
	fx.In

	Config      *config.Config
	Store       store.Repository
	Hasher      *password.Hasher
	Codes       *otp.Generator
	Tokens      *jwt.Service
	MailService *mail.Service `optional:"true"`
	Logger      *logging.Service
}

func ProvideAuthService(deps Deps) *Service {
	service := NewService(deps.Config, deps.Store, deps.Hasher, deps.Codes, deps.Tokens, deps.Logger.Named("auth"))
	service.SetPasswordPolicy(deps.Hasher)
	if deps.MailService != nil {
		service.SetMailService(deps.MailService)
	}
	return service
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)
