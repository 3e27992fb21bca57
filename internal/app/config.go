package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret   string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"2h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8000/api"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"20s"`

	// Operators is "user:bcrypt-hash,user:bcrypt-hash".
	Operators string `envconfig:"OPERATORS"`

	StatsRefreshInterval   time.Duration `envconfig:"STATS_REFRESH_INTERVAL" default:"60s"`
	StatsCacheTTL          time.Duration `envconfig:"STATS_CACHE_TTL" default:"30s"`
	WorkspaceIdleTTL       time.Duration `envconfig:"WORKSPACE_IDLE_TTL" default:"2h"`
	WorkspaceSweepInterval time.Duration `envconfig:"WORKSPACE_SWEEP_INTERVAL" default:"5m"`

	LoginRateLimit   int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	RequestRateLimit int `envconfig:"REQUEST_RATE_LIMIT" default:"240"`

	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
	// WarmupCron schedules the periodic counter refresh in the worker; empty disables it.
	WarmupCron string `envconfig:"STATS_WARMUP_CRON" default:"*/5 * * * *"`
}

// LoadDotEnv reads an optional .env file into the environment. Existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.SessionDuration <= 0 {
		return nil, errors.New("session duration must be positive")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL %q", cfg.APIBaseURL)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
