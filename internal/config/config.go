package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Dispatcher DispatcherConfig
	Scrape     ScrapeConfig
	Automation AutomationConfig
	R2         R2Config
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	JobsPerHour   int
	GroupsPerHour int
}

type DispatcherConfig struct {
	Interval     int // seconds between dispatch cycles
	BatchSize    int // max jobs claimed per cycle
	RequeueAfter int // seconds before a stale claim returns to pending
}

type ScrapeConfig struct {
	Interval   int // seconds between scrape cycles
	Subreddits []string
	PostLimit  int
}

type AutomationConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("DATABASE_URL")
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("database.max_conns", "DATABASE_MAX_CONNS")
	_ = viper.BindEnv("database.min_conns", "DATABASE_MIN_CONNS")
	_ = viper.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("dispatcher.interval", "DISPATCH_INTERVAL")
	_ = viper.BindEnv("dispatcher.batch_size", "DISPATCH_BATCH_SIZE")
	_ = viper.BindEnv("dispatcher.requeue_after", "DISPATCH_REQUEUE_AFTER")
	_ = viper.BindEnv("scrape.interval", "SCRAPE_INTERVAL")
	_ = viper.BindEnv("scrape.subreddits", "SCRAPE_SUBREDDITS")
	_ = viper.BindEnv("scrape.post_limit", "SCRAPE_POST_LIMIT")
	_ = viper.BindEnv("automation.service_url", "AUTOMATION_SERVICE_URL")
	_ = viper.BindEnv("automation.timeout", "AUTOMATION_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.auto_migrate", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.jobs_per_hour", 50)
	viper.SetDefault("ratelimit.groups_per_hour", 30)
	viper.SetDefault("dispatcher.interval", 10)
	viper.SetDefault("dispatcher.batch_size", 100)
	viper.SetDefault("dispatcher.requeue_after", 600)
	viper.SetDefault("scrape.interval", 7*24*3600) // weekly
	viper.SetDefault("scrape.subreddits", []string{})
	viper.SetDefault("scrape.post_limit", 100)

	// Automation service defaults
	viper.SetDefault("automation.service_url", "")
	viper.SetDefault("automation.timeout", 300)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			URL:         viper.GetString("database.url"),
			MaxConns:    viper.GetInt("database.max_conns"),
			MinConns:    viper.GetInt("database.min_conns"),
			AutoMigrate: viper.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			JobsPerHour:   viper.GetInt("ratelimit.jobs_per_hour"),
			GroupsPerHour: viper.GetInt("ratelimit.groups_per_hour"),
		},
		Dispatcher: DispatcherConfig{
			Interval:     viper.GetInt("dispatcher.interval"),
			BatchSize:    viper.GetInt("dispatcher.batch_size"),
			RequeueAfter: viper.GetInt("dispatcher.requeue_after"),
		},
		Scrape: ScrapeConfig{
			Interval:   viper.GetInt("scrape.interval"),
			Subreddits: viper.GetStringSlice("scrape.subreddits"),
			PostLimit:  viper.GetInt("scrape.post_limit"),
		},
		Automation: AutomationConfig{
			ServiceURL: viper.GetString("automation.service_url"),
			Timeout:    viper.GetInt("automation.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Dispatcher.Interval <= 0 {
		return nil, fmt.Errorf("DISPATCH_INTERVAL must be positive, got %d", cfg.Dispatcher.Interval)
	}
	if cfg.Scrape.Interval <= 0 {
		return nil, fmt.Errorf("SCRAPE_INTERVAL must be positive, got %d", cfg.Scrape.Interval)
	}

	return cfg, nil
}
