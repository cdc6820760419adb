package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Wialon  WialonConfig  `mapstructure:"wialon"`
	Keyring KeyringConfig `mapstructure:"keyring"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WialonConfig holds Remote API connection details
type WialonConfig struct {
	Scheme      string        `mapstructure:"scheme"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Development bool          `mapstructure:"development"`
	Token       string        `mapstructure:"token"`
	SessionID   string        `mapstructure:"session_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserID      int64         `mapstructure:"user_id"`
	HTTPMethod  string        `mapstructure:"http_method"`
	UserAgent   string        `mapstructure:"user_agent"`
	GeocodeURL  string        `mapstructure:"geocode_url"`

	// ExtraParams is decoded outside viper, which lowercases map keys.
	// Wialon parameter names are case sensitive.
	ExtraParams map[string]any `mapstructure:"-"`
}

// KeyringConfig selects where the access token is stored
type KeyringConfig struct {
	Backend string `mapstructure:"backend"`
	Service string `mapstructure:"service"`
	FileDir string `mapstructure:"file_dir"`
}

// FilterConfig maps preset names to unit filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
