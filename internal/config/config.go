package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// SessionSecret signs resume tokens. A random secret is generated at
	// boot when empty, which invalidates tokens across restarts.
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret"`

	Room RoomConfig `mapstructure:"room" yaml:"room"`
}

// RoomConfig tunes freshly created rooms.
type RoomConfig struct {
	DefaultTimerSeconds int `mapstructure:"default_timer_seconds" yaml:"default_timer_seconds"`
	DefaultMaxPlayers   int `mapstructure:"default_max_players" yaml:"default_max_players"`
	ChatLogLimit        int `mapstructure:"chat_log_limit" yaml:"chat_log_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		Room: RoomConfig{
			DefaultTimerSeconds: 60,
			DefaultMaxPlayers:   4,
			ChatLogLimit:        200,
		},
	}
}
