package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WIALON_WIALON_HOST.
// The token, host, session id and user id also accept the short forms
// WIALON_TOKEN, WIALON_HOST, WIALON_SID and WIALON_UID.
const EnvPrefix = "WIALON"

// Load loads the configuration from file and environment. An explicit
// configPath must exist; without one a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindShortEnv(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wialon"))
		}

		// Check /etc
		v.AddConfigPath("/etc/wialon/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	extra, err := loadExtraParams(v)
	if err != nil {
		return nil, err
	}
	cfg.Wialon.ExtraParams = extra

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Wialon defaults
	v.SetDefault("wialon.scheme", "https")
	v.SetDefault("wialon.host", "hst-api.wialon.com")
	v.SetDefault("wialon.port", 0)
	v.SetDefault("wialon.development", false)
	v.SetDefault("wialon.token", "")
	v.SetDefault("wialon.session_id", "")
	v.SetDefault("wialon.user_id", 0)
	v.SetDefault("wialon.timeout", "30s")
	v.SetDefault("wialon.http_method", "POST")
	v.SetDefault("wialon.user_agent", "wialon-cli")
	v.SetDefault("wialon.geocode_url", "https://geocode-maps.wialon.com")

	// Keyring defaults
	v.SetDefault("keyring.backend", "")
	v.SetDefault("keyring.service", "wialon")
	v.SetDefault("keyring.file_dir", "~/.wialon/keyring")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

func bindShortEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"wialon.token":      "WIALON_TOKEN",
		"wialon.host":       "WIALON_HOST",
		"wialon.session_id": "WIALON_SID",
		"wialon.user_id":    "WIALON_UID",
		"logging.level":     "WIALON_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return err
		}
	}
	return nil
}

// loadExtraParams reads wialon.extra_params with its keys as written. The
// environment form (WIALON_WIALON_EXTRA_PARAMS) is a JSON object.
func loadExtraParams(v *viper.Viper) (map[string]any, error) {
	if raw, ok := v.Get("wialon.extra_params").(string); ok {
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		var params map[string]any
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("invalid wialon.extra_params: must be a JSON object: %w", err)
		}
		return params, nil
	}

	if !v.IsSet("wialon.extra_params") {
		return nil, nil
	}

	path := v.ConfigFileUsed()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("wialon.extra_params is only supported in YAML or JSON config files")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	// JSON documents are valid YAML
	var doc struct {
		Wialon struct {
			ExtraParams map[string]any `yaml:"extra_params"`
		} `yaml:"wialon"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid wialon.extra_params: %w", err)
	}
	return doc.Wialon.ExtraParams, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	switch cfg.Wialon.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("invalid wialon.scheme: %s (must be 'http' or 'https')", cfg.Wialon.Scheme)
	}

	if strings.TrimSpace(cfg.Wialon.Host) == "" {
		return fmt.Errorf("wialon.host is required")
	}

	if cfg.Wialon.Port < 0 || cfg.Wialon.Port > 65535 {
		return fmt.Errorf("invalid wialon.port: %d", cfg.Wialon.Port)
	}

	if cfg.Wialon.Timeout < 0 {
		return fmt.Errorf("wialon.timeout must not be negative")
	}

	if cfg.Wialon.UserID < 0 {
		return fmt.Errorf("invalid wialon.user_id: %d", cfg.Wialon.UserID)
	}

	cfg.Wialon.HTTPMethod = strings.ToUpper(cfg.Wialon.HTTPMethod)
	switch cfg.Wialon.HTTPMethod {
	case "", "POST", "GET":
	default:
		return fmt.Errorf("invalid wialon.http_method: %s (must be 'POST' or 'GET')", cfg.Wialon.HTTPMethod)
	}

	validBackends := map[string]bool{
		"":               true,
		"file":           true,
		"keychain":       true,
		"secret-service": true,
		"kwallet":        true,
		"wincred":        true,
		"pass":           true,
		"keyctl":         true,
	}
	if !validBackends[cfg.Keyring.Backend] {
		return fmt.Errorf("invalid keyring.backend: %s", cfg.Keyring.Backend)
	}

	for name, expr := range cfg.Filter {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("filter preset %q has an empty expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
