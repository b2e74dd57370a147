package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads and parses a configuration file, applying defaults for any
// omitted sections.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML configuration bytes and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate performs validation on the configuration
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr cannot be empty")
	}

	if len(cfg.Devices) == 0 {
		return fmt.Errorf("at least one device must be defined")
	}
	deviceNames := make(map[string]bool)
	for _, dev := range cfg.Devices {
		if dev.Name == "" {
			return fmt.Errorf("device name cannot be empty")
		}
		if deviceNames[dev.Name] {
			return fmt.Errorf("duplicate device name: %s", dev.Name)
		}
		deviceNames[dev.Name] = true
		if dev.Kind != "statevector" {
			return fmt.Errorf("device %s: unsupported kind %q", dev.Name, dev.Kind)
		}
		if dev.Wires <= 0 {
			return fmt.Errorf("device %s: wires must be positive", dev.Name)
		}
	}

	if cfg.JobDefaults.Steps < 0 {
		return fmt.Errorf("job_defaults.steps cannot be negative")
	}
	if cfg.JobDefaults.Stepsize <= 0 {
		return fmt.Errorf("job_defaults.stepsize must be positive")
	}

	switch cfg.Metrics.Sink {
	case "log", "redis":
	default:
		return fmt.Errorf("invalid metrics.sink: %s (must be log or redis)", cfg.Metrics.Sink)
	}
	if cfg.Metrics.Sink == "redis" {
		if cfg.Metrics.Redis == nil || cfg.Metrics.Redis.Addr == "" {
			return fmt.Errorf("metrics.redis.addr is required when metrics.sink is redis")
		}
		if _, err := cfg.Metrics.Redis.GetTTL(); err != nil {
			return fmt.Errorf("invalid metrics.redis.ttl: %w", err)
		}
	}

	return nil
}
