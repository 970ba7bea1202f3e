// ABOUTME: Configuration management for streakhub with YAML config loading.
// ABOUTME: Handles Home Assistant connection, card options, locale, logging, and ~ expansion.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/i18n"
)

// DefaultServerAddr is where `streakhub serve` listens unless configured.
const DefaultServerAddr = "127.0.0.1:8787"

// TokenEnvVar supplies the Home Assistant token when neither config nor keyring has one.
const TokenEnvVar = "STREAKHUB_TOKEN"

// Config stores streakhub configuration loaded from ~/.config/streakhub/config.yaml.
type Config struct {
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Card          card.Config         `yaml:"card"`
	Locale        LocaleConfig        `yaml:"locale"`
	Log           LogConfig           `yaml:"log"`
	Server        ServerConfig        `yaml:"server"`
	Data          DataConfig          `yaml:"data"`
}

// HomeAssistantConfig holds the instance URL and, optionally, the token.
// The token normally lives in the OS keyring instead.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token,omitempty"`
}

// LocaleConfig mirrors the host locale settings the card reads.
type LocaleConfig struct {
	Language     string `yaml:"language"`
	FirstWeekday string `yaml:"first_weekday"`
}

// LogConfig controls the log level and file location.
type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DataConfig overrides where reset history is kept.
type DataConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Card:   card.DefaultConfig(),
		Locale: LocaleConfig{Language: "en", FirstWeekday: "monday"},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// Validate checks the values that are set. It does not require a complete config.
func (c *Config) Validate() error {
	if c.HomeAssistant.URL != "" {
		u, err := url.Parse(c.HomeAssistant.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("home_assistant.url must be an http(s) URL, got %q", c.HomeAssistant.URL)
		}
	}
	if c.Card.Entity != "" {
		if err := c.Card.Validate(); err != nil {
			return fmt.Errorf("card: %w", err)
		}
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

// RequireHomeAssistant reports what is missing for commands that call Home Assistant.
func (c *Config) RequireHomeAssistant() error {
	var missing []string
	if c.HomeAssistant.URL == "" {
		missing = append(missing, "home_assistant.url")
	}
	if c.Card.Entity == "" {
		missing = append(missing, "card.entity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s (run 'streakhub setup')", strings.Join(missing, ", "))
	}
	return nil
}

// Language resolves the UI language from the card override and the locale.
func (c *Config) Language() i18n.Lang {
	return i18n.Resolve(c.Card.Language, c.Locale.Language)
}

// WeekStart returns the first calendar column.
func (c *Config) WeekStart() time.Weekday {
	return i18n.WeekStart(c.Locale.FirstWeekday)
}

// ResolveToken returns the Home Assistant token from config, keyring, or environment, in that order.
func (c *Config) ResolveToken() (string, error) {
	if c.HomeAssistant.Token != "" {
		return c.HomeAssistant.Token, nil
	}
	token, err := GetToken()
	if err == nil {
		return token, nil
	}
	if env := os.Getenv(TokenEnvVar); env != "" {
		return env, nil
	}
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("no Home Assistant token configured (run 'streakhub setup' or set %s)", TokenEnvVar)
	}
	return "", err
}

// GetDataDir returns the reset history directory.
func (c *Config) GetDataDir() (string, error) {
	if c.Data.Dir != "" {
		return ExpandPath(c.Data.Dir)
	}
	return DataDir()
}

// GetLogDir returns the log file directory.
func (c *Config) GetLogDir() (string, error) {
	if c.Log.Dir != "" {
		return ExpandPath(c.Log.Dir)
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "streakhub", "logs"), nil
}

// DataDir returns the default data directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "streakhub"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "streakhub", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk over the defaults and validates it.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
