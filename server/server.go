package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(cfg.Server.TrustedProxies)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger.Named("http"), "/openapi.json", "/openapi.yaml"))

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

// ipExtractor trusts X-Forwarded-For only from the configured proxies.
func ipExtractor(trustedProxies []string) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}

	options := make([]echo.TrustOption, 0, len(trustedProxies))
	for _, proxy := range trustedProxies {
		if _, network, err := net.ParseCIDR(proxy); err == nil {
			options = append(options, echo.TrustIPRange(network))
			continue
		}
		if ip := net.ParseIP(proxy); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			options = append(options, echo.TrustIPRange(&net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}))
		}
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.Address()))

	if err := s.echo.Start(s.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
