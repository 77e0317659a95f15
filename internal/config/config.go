package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrUnknownStorageDriver        = errors.New("unknown storage driver")
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env       string    `mapstructure:"env"`       // current application environment (local, dev, production etc)
	HTTP      HTTP      `mapstructure:"http"`      // HTTP API server
	Storage   Storage   `mapstructure:"storage"`   // storage backend selection
	DB        DB        `mapstructure:"database"`  // database configuration section
	Redis     Redis     `mapstructure:"redis"`     // progress summary cache
	RabbitMQ  RabbitMQ  `mapstructure:"rabbitmq"`  // session event publishing
	Auth      Auth      `mapstructure:"auth"`      // bearer token verification
	Session   Session   `mapstructure:"session"`   // session lifecycle
	Questions Questions `mapstructure:"questions"` // question bank
	Log       Log       `mapstructure:"log"`       // logger output
	Telegram  Telegram  `mapstructure:"telegram"`  // Telegram bot
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"` // write requests per second per user
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Storage selects the persistence backend.
type Storage struct {
	Driver  string        `mapstructure:"driver"`  // postgres or memory
	Timeout time.Duration `mapstructure:"timeout"` // per-operation storage deadline
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Redis configures the progress summary cache. An empty URL disables it.
type Redis struct {
	URL        string        `mapstructure:"-"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
}

// Enabled reports whether the cache is configured.
func (r Redis) Enabled() bool { return r.URL != "" }

// RabbitMQ configures the event publisher. An empty URL disables publishing.
type RabbitMQ struct {
	URL      string `mapstructure:"-"`
	Exchange string `mapstructure:"exchange"`
}

// Enabled reports whether event publishing is configured.
func (r RabbitMQ) Enabled() bool { return r.URL != "" }

// Auth contains JWT verification parameters.
type Auth struct {
	JWTSecret string `mapstructure:"-"`
	Issuer    string `mapstructure:"issuer"` // optional expected "iss" claim
}

// Secret returns the signing secret if it is configured.
func (a Auth) Secret() ([]byte, error) {
	if a.JWTSecret == "" {
		return nil, ErrMissingEnvironmentVariables
	}
	return []byte(a.JWTSecret), nil
}

// Session contains session lifecycle parameters.
type Session struct {
	Timeout       time.Duration `mapstructure:"timeout"`        // active sessions older than this are abandoned
	SweepSchedule string        `mapstructure:"sweep_schedule"` // cron spec for the stale-session sweeper
}

// Questions locates the question bank file.
type Questions struct {
	SeedPath string `mapstructure:"seed_path"`
}

// Log controls logger output.
type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // optional rotating file sink
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Telegram contains bot parameters.
type Telegram struct {
	APIToken string `mapstructure:"-"` // Telegram API token loaded from environment
}

// Token returns the bot token if it is configured.
func (t Telegram) Token() (string, error) {
	if t.APIToken == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return t.APIToken, nil
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("rabbitmq_url", "RABBITMQ_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.Telegram.APIToken = v.GetString("telegram_api_token")
	cfg.DB.URL = v.GetString("database_url")
	cfg.Auth.JWTSecret = v.GetString("jwt_secret")
	cfg.Redis.URL = v.GetString("redis_url")
	cfg.RabbitMQ.URL = v.GetString("rabbitmq_url")

	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.DB.URL == "" {
			return nil, fmt.Errorf("storage driver %q: %w", cfg.Storage.Driver, ErrMissingEnvironmentVariables)
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorageDriver, cfg.Storage.Driver)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)

	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.timeout", "5s")

	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")

	v.SetDefault("redis.summary_ttl", "10m")
	v.SetDefault("rabbitmq.exchange", "exam.sessions")

	v.SetDefault("auth.issuer", "")

	v.SetDefault("session.timeout", "2h")
	v.SetDefault("session.sweep_schedule", "*/5 * * * *")

	v.SetDefault("questions.seed_path", "assets/questions.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
