package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

const (
	// DefaultPathEnv names the environment variable overriding DefaultPath.
	DefaultPathEnv = "DDNS_CONFIG_PATH"
	// DefaultJob is the pushgateway job name used when none is configured.
	DefaultJob = "yk-ddns"
)

// Config is the top-level configuration file.
type Config struct {
	// Debug enables debug log lines. Otherwise only critical lines are written.
	Debug bool `yaml:"debug"`
	// LogFile, when set, receives log output instead of stderr.
	LogFile string        `yaml:"logfile"`
	Metrics MetricsConfig `yaml:"metrics"`
	Entries []Entry       `yaml:"entries"`
}

// MetricsConfig controls where run metrics are pushed.
type MetricsConfig struct {
	PushGateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// DefaultPath returns the path from the DDNS_CONFIG_PATH environment
// variable, defaulting to "configs/ddns.yaml".
func DefaultPath() string {
	if path := os.Getenv(DefaultPathEnv); path != "" {
		return path
	}
	return "configs/ddns.yaml"
}

// Load reads the configuration from the given file path. All failures wrap
// ddns.ErrConfiguration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w: %w", ddns.ErrConfiguration, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w: %w", path, ddns.ErrConfiguration, err)
	}

	for i := range cfg.Entries {
		if err := cfg.Entries[i].validate(); err != nil {
			return nil, fmt.Errorf("config file %s: entry %d: %w", path, i+1, err)
		}
	}

	cfg.LogFile = os.ExpandEnv(cfg.LogFile)
	cfg.Metrics.PushGateway = os.ExpandEnv(cfg.Metrics.PushGateway)
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = DefaultJob
	}

	return &cfg, nil
}
