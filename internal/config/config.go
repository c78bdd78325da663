// Package config provides configuration loading and validation for the
// application. Values come from defaults, an optional YAML file and
// environment variable overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultMongoDBTimeout     = 10 * time.Second
	DefaultMongoDBMaxPoolSize = 100

	DefaultRedisPoolSize  = 10
	DefaultAvatarCacheTTL = 15 * time.Minute

	// DefaultTokenTTL matches the session length users expect from the app:
	// a token stays usable until logout or a week passes.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// Config holds the complete application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	MongoDB MongoDBConfig `yaml:"mongodb"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Mailer  MailerConfig  `yaml:"mailer"`
	Log     LogConfig     `yaml:"log"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name        string `yaml:"name"        env:"APP_NAME"`
	Environment string `yaml:"environment" env:"APP_ENV"` // development | production
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Address returns the full server address (host:port).
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MongoDBConfig holds MongoDB connection configuration.
type MongoDBConfig struct {
	URI         string        `yaml:"uri"           env:"MONGODB_URI"`
	Database    string        `yaml:"database"      env:"MONGODB_DATABASE"`
	Timeout     time.Duration `yaml:"timeout"       env:"MONGODB_TIMEOUT"`
	MaxPoolSize uint64        `yaml:"max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`
}

// RedisConfig holds Redis connection configuration for the avatar cache.
type RedisConfig struct {
	Addr           string        `yaml:"addr"             env:"REDIS_ADDR"`
	Password       string        `yaml:"password"         env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db"               env:"REDIS_DB"`
	PoolSize       int           `yaml:"pool_size"        env:"REDIS_POOL_SIZE"`
	AvatarCacheTTL time.Duration `yaml:"avatar_cache_ttl" env:"REDIS_AVATAR_CACHE_TTL"`
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"`
}

// MailerConfig holds Mailgun configuration. When the API key is empty the
// application falls back to a no-op mailer.
type MailerConfig struct {
	Domain string `yaml:"domain"  env:"MAILGUN_DOMAIN"`
	APIKey string `yaml:"api_key" env:"MAILGUN_API_KEY"`
	Sender string `yaml:"sender"  env:"MAILGUN_SENDER"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"`  // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | text
}

// Configuration errors.
var (
	ErrConfigNotFound   = errors.New("configuration file not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidDuration  = errors.New("invalid duration format")
	ErrInvalidLogLevel  = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat = errors.New("invalid log format: must be json or text")
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "taskhive",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		MongoDB: MongoDBConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "taskhive",
			Timeout:     DefaultMongoDBTimeout,
			MaxPoolSize: DefaultMongoDBMaxPoolSize,
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			Password:       "",
			DB:             0,
			PoolSize:       DefaultRedisPoolSize,
			AvatarCacheTTL: DefaultAvatarCacheTTL,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-in-production",
			TokenTTL:  DefaultTokenTTL,
		},
		Mailer: MailerConfig{
			Sender: "no-reply@taskhive.dev",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "" || c.App.Environment == "development"
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errList []error

	errList = c.validateServer(errList)
	errList = c.validateMongoDB(errList)
	errList = c.validateRedis(errList)
	errList = c.validateAuth(errList)
	errList = c.validateLog(errList)

	if len(errList) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errList...))
	}

	return nil
}

func (c *Config) validateServer(errList []error) []error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errList = append(errList, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errList = append(errList, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errList = append(errList, errors.New("server.write_timeout must be positive"))
	}
	return errList
}

func (c *Config) validateMongoDB(errList []error) []error {
	if c.MongoDB.URI == "" {
		errList = append(errList, errors.New("mongodb.uri is required"))
	}
	if c.MongoDB.Database == "" {
		errList = append(errList, errors.New("mongodb.database is required"))
	}
	return errList
}

func (c *Config) validateRedis(errList []error) []error {
	if c.Redis.Addr == "" {
		errList = append(errList, errors.New("redis.addr is required"))
	}
	if c.Redis.AvatarCacheTTL <= 0 {
		errList = append(errList, errors.New("redis.avatar_cache_ttl must be positive"))
	}
	return errList
}

func (c *Config) validateAuth(errList []error) []error {
	if c.Auth.JWTSecret == "" {
		errList = append(errList, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errList = append(errList, errors.New("auth.token_ttl must be positive"))
	}
	return errList
}

func (c *Config) validateLog(errList []error) []error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errList = append(errList, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errList = append(errList, ErrInvalidLogFormat)
	}
	return errList
}

// Load loads configuration from the default config file locations and
// environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path. If path is
// empty, the standard locations are searched.
func LoadFromPath(path string) (*Config, error) {
	loader := NewLoader()
	return loader.Load(path)
}

// Loader handles configuration loading from files and environment variables.
type Loader struct {
	configPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		configPaths: []string{
			"configs/config.yaml",
			"config.yaml",
			"/etc/taskhive/config.yaml",
		},
	}
}

// Load loads configuration from file and environment variables.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range l.configPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	if configPath != "" {
		if err := l.loadFromFile(cfg, configPath); err != nil {
			// A missing file in the search path is fine; an explicitly
			// requested file must exist.
			if path != "" || os.Getenv("CONFIG_PATH") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// loadEnvToStruct recursively loads environment variables into a struct.
func (l *Loader) loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := l.setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromEnv sets a struct field value from an environment variable.
//
//nolint:exhaustive // Only the kinds used by config fields are supported
func (l *Loader) setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported config field kind: %s", field.Kind())
	}

	return nil
}
