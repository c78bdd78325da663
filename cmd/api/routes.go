// Package main provides the API server entry point.
package main

import (
	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive/internal/infrastructure/httpserver"
	"github.com/taskhive/taskhive/internal/middleware"
)

// SetupRoutes configures all API routes and middleware chains.
func SetupRoutes(c *Container) *httpserver.Router {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpserver.NewRequestValidator()

	routerConfig := httpserver.RouterConfig{
		Logger: c.Logger,
		AuthMiddleware: middleware.Auth(middleware.AuthConfig{
			Logger:      c.Logger,
			TokenParser: c.TokenIssuer,
			UserLoader:  c.UserRepo,
		}),
		CORSConfig:     middleware.DefaultCORSConfig(),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RecoveryConfig: middleware.DefaultRecoveryConfig(),
	}

	router := httpserver.NewRouter(e, routerConfig)

	// Health probes bypass the middleware groups
	httpserver.NewHealthEndpoints(c).Register(e)

	c.UserHandler.RegisterRoutes(router)
	c.TaskHandler.RegisterRoutes(router)

	return router
}
