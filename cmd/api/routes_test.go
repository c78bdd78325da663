package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/config"
	httphandler "github.com/taskhive/taskhive/internal/handler/http"
)

// newTestContainer builds a container wired against in-memory handler mocks,
// enough for route registration without real infrastructure.
func newTestContainer(t *testing.T) *Container {
	t.Helper()

	cfg := config.DefaultConfig()
	return &Container{
		Config:      cfg,
		Logger:      slog.Default(),
		TokenIssuer: auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Hour),
		UserHandler: httphandler.NewUserHandler(httphandler.NewMockUserService()),
		TaskHandler: httphandler.NewTaskHandler(httphandler.NewMockTaskService()),
	}
}

func TestSetupRoutes_ReturnsRouter(t *testing.T) {
	router := SetupRoutes(newTestContainer(t))

	require.NotNil(t, router)
	require.NotNil(t, router.Echo())
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := SetupRoutes(newTestContainer(t))
	e := router.Echo()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_ProtectedRoutesRequireAuth(t *testing.T) {
	router := SetupRoutes(newTestContainer(t))
	e := router.Echo()

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/users/me"},
		{http.MethodPost, "/users/logout"},
	}

	for _, route := range protected {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestSetupRoutes_PublicSignup(t *testing.T) {
	router := SetupRoutes(newTestContainer(t))
	e := router.Echo()

	// reaches the handler without a token; fails on validation, not auth
	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
