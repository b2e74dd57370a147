package config

import "time"

// Config represents the main daemon configuration
type Config struct {
	LogLevel    string      `yaml:"log_level"`
	Server      Server      `yaml:"server"`
	Devices     []Device    `yaml:"devices,omitempty"`
	JobDefaults JobDefaults `yaml:"job_defaults"`
	Metrics     Metrics     `yaml:"metrics"`
}

// Server holds the HTTP listener configuration
type Server struct {
	HTTPAddr string `yaml:"http_addr"`
}

// Device declares a quantum device available to hybrid jobs
type Device struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"` // currently only "statevector"
	Wires int    `yaml:"wires"`
}

// JobDefaults holds defaults applied to job specs that omit them
type JobDefaults struct {
	Steps    int     `yaml:"steps"`
	Stepsize float64 `yaml:"stepsize"`
}

// Metrics selects where per-iteration metric records are shipped
type Metrics struct {
	// Sink is "log" or "redis". The in-process collector is always active
	// so the HTTP metrics endpoints work regardless of this setting.
	Sink  string `yaml:"sink"`
	Redis *Redis `yaml:"redis,omitempty"`
}

// Redis holds the remote metrics store configuration
type Redis struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
	TTL  string `yaml:"ttl"` // e.g. "24h"
}

// GetTTL parses the TTL string to time.Duration
func (r *Redis) GetTTL() (time.Duration, error) {
	if r.TTL == "" {
		return 24 * time.Hour, nil
	}
	return time.ParseDuration(r.TTL)
}

// Default returns a configuration with the built-in defaults: a single
// local statevector device and the standard loop settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: Server{
			HTTPAddr: ":8080",
		},
		Devices: []Device{
			{Name: "local/statevector", Kind: "statevector", Wires: 1},
		},
		JobDefaults: JobDefaults{
			Steps:    10,
			Stepsize: 0.5,
		},
		Metrics: Metrics{
			Sink: "log",
		},
	}
}
