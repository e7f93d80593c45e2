package config

import "time"

// Config holds relay server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// DatabasePath is where transfer history is kept. Empty disables
	// the history store entirely.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// Relay tuning. Zero values fall back to the core defaults.
	RoomCapacity    int           `mapstructure:"room_capacity" yaml:"room_capacity"`
	RateLimitJoins  int           `mapstructure:"rate_limit_joins" yaml:"rate_limit_joins"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "shareme.db",
	}
}
