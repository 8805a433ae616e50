package handlers

import (
	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/middleware/ratelimit"
	"github.com/WaqasAhmad313/next-auth-app/server"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/oauth"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Server         *server.Server
	Config         *config.Config
	Auth           *auth.Service
	Tokens         *jwt.Service
	Sessions       *session.Manager
	RateLimitStore ratelimit.Store
	Google         *oauth.Provider `optional:"true"`
	Logger         *logging.Service
}

func RegisterRoutes(p Params) {
	deps := Dependencies{
		Config:         p.Config,
		Auth:           p.Auth,
		Tokens:         p.Tokens,
		Sessions:       p.Sessions,
		RateLimitStore: p.RateLimitStore,
		Logger:         p.Logger.Named("http"),
	}
	// A nil *oauth.Provider must stay a nil interface.
	if p.Google != nil {
		deps.OAuth = p.Google
	}

	Register(p.Server.Echo(), deps)
}

var Module = fx.Options(
	fx.Invoke(RegisterRoutes),
)
