package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAPIKey    = "HAWK_API_KEY"
	EnvMode      = "JOBHAWK_MODE"
	EnvServerURL = "JOBHAWK_SERVER_URL"
	EnvRedisURL  = "JOBHAWK_REDIS_URL"
	EnvPagesDSN  = "JOBHAWK_PAGES_DSN"
	EnvIngestDSN = "JOBHAWK_INGEST_DSN"
	EnvSpoolDir  = "JOBHAWK_SPOOL_DIR"
)

// Options adjusts Load.
type Options struct {
	// Path of the YAML file; DefaultPath when empty
	Path string
	// Mode overrides the configured run mode when set
	Mode Mode
}

// DefaultPath returns ~/.jobhawk/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".jobhawk", "config.yaml"), nil
}

// Load builds the configuration. Values are layered: defaults, then the
// YAML file (a missing file is not an error, ${VAR} references are
// expanded), then the environment, including a .env file in the working
// directory. The result is validated.
func Load(opts Options) (*Config, error) {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	path := opts.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if cfg.ServerURL == "" && cfg.Mode == ModeLocal {
		cfg.ServerURL = DefaultLocalServerURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile unmarshals the YAML file at path over cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvMode); v != "" {
		mode, err := ParseMode(v)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}

	// The API key in the file takes precedence over the shared variable.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}

	for env, field := range map[string]*string{
		EnvServerURL: &cfg.ServerURL,
		EnvRedisURL:  &cfg.Redis.URL,
		EnvPagesDSN:  &cfg.Storage.PagesDSN,
		EnvIngestDSN: &cfg.Storage.IngestDSN,
		EnvSpoolDir:  &cfg.Storage.SpoolDir,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
	return nil
}
