package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the vault history daemon.
type Config struct {
	NodeURL      string        `yaml:"node_url"`
	DatabasePath string        `yaml:"database_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	RequestLimit float64       `yaml:"request_limit_per_second"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.NodeURL = strings.TrimSpace(cfg.NodeURL)
	if cfg.NodeURL == "" {
		cfg.NodeURL = "http://127.0.0.1:8645"
	}
	cfg.DatabasePath = strings.TrimSpace(cfg.DatabasePath)
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./historyd.db"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 2
	}
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if !strings.HasPrefix(cfg.NodeURL, "http://") && !strings.HasPrefix(cfg.NodeURL, "https://") {
		return fmt.Errorf("node_url must be an http or https URL")
	}
	if cfg.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be at least one second")
	}
	return nil
}
