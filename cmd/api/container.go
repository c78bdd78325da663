// Package main provides the API server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/config"
	httphandler "github.com/taskhive/taskhive/internal/handler/http"
	"github.com/taskhive/taskhive/internal/infrastructure/cache"
	"github.com/taskhive/taskhive/internal/infrastructure/httpserver"
	mongodbinfra "github.com/taskhive/taskhive/internal/infrastructure/mongodb"
	"github.com/taskhive/taskhive/internal/infrastructure/repository/mongodb"
	"github.com/taskhive/taskhive/internal/mailer"
	"github.com/taskhive/taskhive/internal/service"
)

// Container initialization timeouts.
const (
	containerInitTimeout   = 30 * time.Second
	redisPingTimeout       = 5 * time.Second
	mongoDisconnectTimeout = 10 * time.Second
)

// Container holds all application dependencies and manages their lifecycle.
// It implements httpserver.HealthChecker for unified health endpoint support.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	MongoDB     *mongo.Client
	MongoDBName string
	Redis       *redis.Client
	AvatarCache *cache.AvatarCache

	// Repositories
	UserRepo *mongodb.UserRepository
	TaskRepo *mongodb.TaskRepository

	// Auth and outbound mail
	TokenIssuer *auth.TokenIssuer
	Mailer      mailer.Mailer

	// Services
	UserService *service.UserService
	TaskService *service.TaskService

	// HTTP handlers
	UserHandler *httphandler.UserHandler
	TaskHandler *httphandler.TaskHandler
}

// Ensure Container implements httpserver.HealthChecker.
var _ httpserver.HealthChecker = (*Container)(nil)

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// NewContainer creates a new dependency injection container.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.setupInfrastructure(); err != nil {
		// Clean up any partially initialized resources
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	c.setupRepositories()
	c.setupServices()
	c.setupHTTPHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

// setupInfrastructure initializes MongoDB, Redis and the avatar cache.
func (c *Container) setupInfrastructure() error {
	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	if err := c.setupMongoDB(ctx); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}

	if err := c.setupRedis(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	c.AvatarCache = cache.NewAvatarCache(cache.AvatarCacheConfig{
		Client: c.Redis,
		TTL:    c.Config.Redis.AvatarCacheTTL,
	})

	return nil
}

// setupMongoDB connects to MongoDB and ensures the indexes exist.
func (c *Container) setupMongoDB(ctx context.Context) error {
	client, err := mongodbinfra.Connect(ctx, c.Config.MongoDB.URI, c.Config.MongoDB.MaxPoolSize)
	if err != nil {
		return err
	}

	c.MongoDB = client
	c.MongoDBName = c.Config.MongoDB.Database

	c.Logger.InfoContext(ctx, "connected to MongoDB",
		slog.String("database", c.Config.MongoDB.Database),
	)

	db := client.Database(c.Config.MongoDB.Database)
	indexCtx, indexCancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer indexCancel()

	if indexErr := mongodbinfra.CreateAllIndexes(indexCtx, db); indexErr != nil {
		return fmt.Errorf("failed to create indexes: %w", indexErr)
	}

	c.Logger.InfoContext(ctx, "MongoDB indexes created successfully")

	return nil
}

// setupRedis initializes the Redis client backing the avatar cache.
func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := c.Redis.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	return nil
}

// setupRepositories initializes the repository implementations.
func (c *Container) setupRepositories() {
	db := c.MongoDB.Database(c.MongoDBName)

	c.UserRepo = mongodb.NewUserRepository(
		db.Collection(mongodbinfra.CollectionUsers),
		mongodb.WithUserRepoLogger(c.Logger),
	)

	c.TaskRepo = mongodb.NewTaskRepository(
		db.Collection(mongodbinfra.CollectionTasks),
		mongodb.WithTaskRepoLogger(c.Logger),
	)

	c.Logger.Debug("repositories initialized")
}

// setupServices wires the application services.
func (c *Container) setupServices() {
	c.TokenIssuer = auth.NewTokenIssuer(c.Config.Auth.JWTSecret, c.Config.Auth.TokenTTL)
	c.Mailer = c.createMailer()

	c.UserService = service.NewUserService(service.UserServiceConfig{
		Users:  c.UserRepo,
		Tasks:  c.TaskRepo,
		Issuer: c.TokenIssuer,
		Mail:   c.Mailer,
		Cache:  c.AvatarCache,
		Logger: c.Logger,
	})

	c.TaskService = service.NewTaskService(c.TaskRepo, c.Logger)

	c.Logger.Debug("services initialized")
}

// createMailer selects the outbound mailer. Without a Mailgun API key the
// application runs with a no-op mailer, which keeps local development free
// of external dependencies.
func (c *Container) createMailer() mailer.Mailer {
	if c.Config.Mailer.APIKey == "" || c.Config.Mailer.Domain == "" {
		c.Logger.Warn("mailgun not configured, account emails are disabled")
		return mailer.Noop{}
	}

	c.Logger.Info("mailgun mailer initialized",
		slog.String("domain", c.Config.Mailer.Domain),
		slog.String("sender", c.Config.Mailer.Sender),
	)

	return mailer.NewMailgunMailer(
		c.Config.Mailer.Domain,
		c.Config.Mailer.APIKey,
		c.Config.Mailer.Sender,
	)
}

// setupHTTPHandlers initializes the HTTP handlers.
func (c *Container) setupHTTPHandlers() {
	c.UserHandler = httphandler.NewUserHandler(c.UserService)
	c.TaskHandler = httphandler.NewTaskHandler(c.TaskService)

	c.Logger.Debug("HTTP handlers initialized")
}

// validateWiring ensures all required dependencies are initialized.
func (c *Container) validateWiring() error {
	var errs []error

	if c.MongoDB == nil {
		errs = append(errs, errors.New("mongodb client not initialized"))
	}
	if c.Redis == nil {
		errs = append(errs, errors.New("redis client not initialized"))
	}
	if c.TokenIssuer == nil {
		errs = append(errs, errors.New("token issuer not initialized"))
	}
	if c.UserHandler == nil {
		errs = append(errs, errors.New("user handler not initialized"))
	}
	if c.TaskHandler == nil {
		errs = append(errs, errors.New("task handler not initialized"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Close gracefully closes all container resources.
// Resources are closed in reverse order of initialization.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()

		if err := c.MongoDB.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		} else {
			c.Logger.Debug("mongodb connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}

// IsReady implements httpserver.HealthChecker.
// It checks if all infrastructure components are healthy.
func (c *Container) IsReady(ctx context.Context) bool {
	if c.MongoDB == nil {
		return false
	}
	if err := c.MongoDB.Ping(ctx, nil); err != nil {
		c.Logger.WarnContext(ctx, "mongodb health check failed", slog.String("error", err.Error()))
		return false
	}

	if c.Redis == nil {
		return false
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		c.Logger.WarnContext(ctx, "redis health check failed", slog.String("error", err.Error()))
		return false
	}

	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
// It returns detailed health status of all components.
func (c *Container) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	var statuses []httpserver.ComponentStatus

	mongoStatus := httpserver.ComponentStatus{Name: "mongodb", Status: httpserver.StatusHealthy}
	if c.MongoDB == nil {
		mongoStatus.Status = httpserver.StatusUnhealthy
		mongoStatus.Message = "client not initialized"
	} else if err := c.MongoDB.Ping(ctx, nil); err != nil {
		mongoStatus.Status = httpserver.StatusUnhealthy
		mongoStatus.Message = err.Error()
	}
	statuses = append(statuses, mongoStatus)

	redisStatus := httpserver.ComponentStatus{Name: "redis", Status: httpserver.StatusHealthy}
	if c.Redis == nil {
		redisStatus.Status = httpserver.StatusUnhealthy
		redisStatus.Message = "client not initialized"
	} else if err := c.Redis.Ping(ctx).Err(); err != nil {
		redisStatus.Status = httpserver.StatusUnhealthy
		redisStatus.Message = err.Error()
	}
	statuses = append(statuses, redisStatus)

	return statuses
}
