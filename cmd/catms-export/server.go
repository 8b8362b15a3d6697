package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/margalk/catms/internal/config"
	"github.com/margalk/catms/internal/export"
	"github.com/margalk/catms/internal/platform/auth"
	"github.com/margalk/catms/internal/platform/db"
	"github.com/margalk/catms/internal/platform/middleware"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the export API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	e := newServer(a)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("source", cfg.RowsSource).Bool("tls", cfg.TLSEnabled).Msg("starting export server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}

// newServer builds the echo instance with the full middleware chain and the
// export routes mounted under /api/v1.
func newServer(a *app) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID, auth.DevRoleHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID, "X-Export-Rows"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if a.pool != nil {
		e.GET("/health/db", db.PoolHealthHandler(a.pool))
	}

	api := e.Group("/api/v1")
	api.Use(authMiddleware(a))
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	}))

	handler := export.NewHandler(a.exporter, a.fetcher, a.policy, a.history, a.logger)
	handler.RegisterRoutes(api)

	return e
}

func authMiddleware(a *app) echo.MiddlewareFunc {
	cfg := a.cfg
	if cfg.IsDev() && cfg.AuthSigningKey == "" && cfg.AuthIssuer == "" {
		a.logger.Warn().Msg("development auth enabled; identity is taken from X-Dev-Role")
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	})
}
