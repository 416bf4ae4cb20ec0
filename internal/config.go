package internal

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/DukeRupert/trainerdesk/internal/api"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"development"`
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"debug"`

	// Remote REST API; empty means api.DefaultBaseURL
	APIBaseURL string        `yaml:"api_base_url" env:"API_BASE_URL"`
	APITimeout time.Duration `yaml:"api_timeout" env:"API_TIMEOUT" env-default:"0s"`

	// Timezone used to read and render training dates ("Local" or an IANA name)
	Timezone string `yaml:"timezone" env:"TIMEZONE" env-default:"Local"`

	// When true, every remote failure produces a toast, including customer
	// mutations that are otherwise only logged.
	NotifyAllFailures bool `yaml:"notify_all_failures" env:"NOTIFY_ALL_FAILURES" env-default:"false"`

	// Browser sessions are evicted after this much idle time
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"2h"`

	// Mutating requests allowed per client IP per minute
	MutationRateLimit int `yaml:"mutation_rate_limit" env:"MUTATION_RATE_LIMIT" env-default:"60"`

	// Serve templates from disk and reload them on every request (development)
	TemplatesDir string `yaml:"templates_dir" env:"TEMPLATES_DIR"`

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string `yaml:"metrics_username" env:"METRICS_USERNAME"`
	MetricsPassword string `yaml:"metrics_password" env:"METRICS_PASSWORD"`

	location *time.Location
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		// ReadConfig also applies environment overrides.
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = api.DefaultBaseURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got: %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got: %s", u.Scheme)
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("API_TIMEOUT must not be negative, got: %s", c.APITimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got: %s", c.SessionTTL)
	}
	if c.MutationRateLimit <= 0 {
		return fmt.Errorf("MUTATION_RATE_LIMIT must be positive, got: %d", c.MutationRateLimit)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if (c.MetricsUsername == "") != (c.MetricsPassword == "") {
		return fmt.Errorf("METRICS_USERNAME and METRICS_PASSWORD must be set together")
	}
	return nil
}

// Location returns the parsed TIMEZONE. It is time.Local until NewConfig
// has validated the config.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// IsSecure reports whether cookies and HSTS should assume HTTPS.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}
