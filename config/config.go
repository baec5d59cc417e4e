// Package config loads jobhawk's configuration from a YAML file, .env and
// the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Mode selects which server endpoints a run talks to.
type Mode string

const (
	// ModeLocal runs against a local server and opens a new push per
	// batch.
	ModeLocal Mode = "local"
	// ModeProduction reports into pushes opened by the server.
	ModeProduction Mode = "production"
)

// ErrInvalidMode is returned for an unknown run mode.
var ErrInvalidMode = errors.New("mode must be local or production")

// ParseMode parses a run mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeProduction:
		return ModeProduction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// DefaultLocalServerURL is where the local server listens by default.
const DefaultLocalServerURL = "http://127.0.0.1:8000"

// Config is the complete jobhawk configuration.
type Config struct {
	Mode      Mode   `yaml:"mode" validate:"oneof=local production"`
	ServerURL string `yaml:"server_url" validate:"required,url"`
	APIKey    string `yaml:"api_key"`

	Fetch   FetchConfig   `yaml:"fetch"`
	Redis   RedisConfig   `yaml:"redis"`
	Trigger TriggerConfig `yaml:"trigger"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// FetchConfig controls outbound page requests.
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	Concurrency int           `yaml:"concurrency" validate:"min=1,max=64"`
	// Requests per second per host; 0 disables limiting
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Retries   int     `yaml:"retries" validate:"gte=0,lte=10"`
	// Extra headers per company name
	HeaderOverrides map[string]map[string]string `yaml:"header_overrides"`
}

// RedisConfig locates the batch queue.
type RedisConfig struct {
	URL          string        `yaml:"url" validate:"omitempty,url"`
	Queue        string        `yaml:"queue" validate:"required"`
	BlockTimeout time.Duration `yaml:"block_timeout" validate:"gt=0"`
}

// TriggerConfig schedules periodic runs.
type TriggerConfig struct {
	Schedule string `yaml:"schedule" validate:"required"`
	// ping asks the server to queue pages, run scrapes directly, enqueue
	// publishes the local page store to Redis
	Action string `yaml:"action" validate:"oneof=ping run enqueue"`
}

// StorageConfig locates local state.
type StorageConfig struct {
	PagesDSN  string `yaml:"pages_dsn" validate:"required"`
	IngestDSN string `yaml:"ingest_dsn" validate:"required"`
	SpoolDir  string `yaml:"spool_dir" validate:"required"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig configures the local server.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			Concurrency: 1,
			HeaderOverrides: map[string]map[string]string{
				"Uber": {"x-csrf-token": "x"},
			},
		},
		Redis: RedisConfig{
			Queue:        "jobhawk:pages",
			BlockTimeout: 5 * time.Second,
		},
		Trigger: TriggerConfig{
			Schedule: "@every 30m",
			Action:   "ping",
		},
		Storage: StorageConfig{
			PagesDSN:  "pages.db",
			IngestDSN: "ingest.db",
			SpoolDir:  ".spool",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PushURL is the ingestion endpoint for the configured mode: a local run
// creates its own push, a production run updates the push the server
// opened when it queued the batch.
func (c *Config) PushURL() string {
	base := strings.TrimRight(c.ServerURL, "/")
	if c.Mode == ModeProduction {
		return base + "/api/push/update"
	}
	return base + "/api/push/create"
}
