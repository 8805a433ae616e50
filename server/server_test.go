package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/testutils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "9090"

	srv := New(cfg, nil)

	require.NotNil(t, srv.Echo())
	assert.Equal(t, "127.0.0.1:9090", srv.Address())
	assert.True(t, srv.Echo().HideBanner)
}

func TestServer_Middleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := New(testutils.GetTestConfig(), logging.NewFromLogger(zap.New(core)))

	srv.Echo().GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	srv.Echo().GET("/panic", func(c echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, 1, logs.FilterMessage("request").Len())

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIPExtractor(t *testing.T) {
	t.Run("direct without trusted proxies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.5:1234"
		req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.1")

		assert.Equal(t, "203.0.113.5", ipExtractor(nil)(req))
	})

	t.Run("forwarded from trusted proxy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3:1234"
		req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.1")

		assert.Equal(t, "198.51.100.1", ipExtractor([]string{"10.0.0.0/8"})(req))
	})

	t.Run("single trusted address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.7:1234"
		req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.1")

		assert.Equal(t, "198.51.100.1", ipExtractor([]string{"192.0.2.7", "not-an-ip"})(req))
	})
}

func TestServer_StartShutdown(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	srv := New(cfg, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool { return srv.Echo().ListenerAddr() != nil }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
