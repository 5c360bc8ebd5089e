package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of the live scoring service. Values come from
// an optional YAML file; connection settings come from the environment.
type Config struct {
	Live struct {
		FlushIntervalSec    int `yaml:"flush_interval_sec"`
		SnapshotIntervalSec int `yaml:"snapshot_interval_sec"`
		CacheTTLHours       int `yaml:"cache_ttl_hours"`
	} `yaml:"live"`
	Events struct {
		Enabled       bool   `yaml:"enabled"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"events"`
}

// DefaultConfig returns the intervals the live engine runs with by
// default: 30s persistence flushes, 5m snapshots, 3 day cache TTL.
func DefaultConfig() *Config {
	var cfg Config
	cfg.Live.FlushIntervalSec = 30
	cfg.Live.SnapshotIntervalSec = 300
	cfg.Live.CacheTTLHours = 72
	cfg.Events.Enabled = true
	cfg.Events.StreamName = "SCORING_EVENTS"
	cfg.Events.SubjectPrefix = "scoring.events"
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Live.FlushIntervalSec) * time.Second
}

func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.Live.SnapshotIntervalSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Live.CacheTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
