package session

import (
	"fmt"
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/alexedwards/scs/v2"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Manager struct {
	*scs.SessionManager
	config config.SessionConfig
}

func NewManager(cfg config.SessionConfig, store scs.Store) *Manager {
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.MaxAge
	sessionManager.IdleTimeout = cfg.MaxAge
	sessionManager.Cookie.Name = cfg.Name
	sessionManager.Cookie.Path = cfg.Path
	sessionManager.Cookie.Domain = cfg.Domain
	sessionManager.Cookie.Secure = cfg.Secure
	sessionManager.Cookie.HttpOnly = cfg.HttpOnly
	sessionManager.Cookie.SameSite = sameSite(cfg.SameSite)

	return &Manager{
		SessionManager: sessionManager,
		config:         cfg,
	}
}

func ProvideSessionManager(cfg *config.Config, db *gorm.DB) (*Manager, error) {
	var store scs.Store

	switch cfg.Session.Store {
	case "memory", "":
		store = NewMemoryStore()
	case "database":
		var err error
		store, err = NewDatabaseStore(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create database session store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported session store: %s (supported: memory, database)", cfg.Session.Store)
	}

	return NewManager(cfg.Session, store), nil
}

func sameSite(value string) http.SameSite {
	switch value {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

var Module = fx.Options(
	fx.Provide(ProvideSessionManager),
)
