// Package config loads the till client settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/common"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyAPIURL             = "api.url"
	KeyAPITimeout         = "api.timeout"
	KeyConfirmTimeout     = "api.confirm_timeout"
	KeyBreakerMaxFailures = "api.breaker.max_failures"
	KeyBreakerCooldown    = "api.breaker.cooldown"
	KeyDatabasePath       = "database.path"
	KeySessionPath        = "session.path"
	KeyLogLevel           = "logging.level"
	KeyLogFormat          = "logging.format"
	KeyCatalogBanks       = "catalog.banks"
	KeyDefaultCountry     = "defaults.country"
)

// Settings is the typed view of the configuration.
type Settings struct {
	APIURL             string
	DatabasePath       string
	SessionPath        string
	LogLevel           string
	LogFormat          string
	DefaultCountry     string
	APITimeout         time.Duration
	ConfirmTimeout     time.Duration
	BreakerCooldown    time.Duration
	BreakerMaxFailures uint32
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, api.DefaultBaseURL)
	v.SetDefault(KeyAPITimeout, 30*time.Second)
	v.SetDefault(KeyConfirmTimeout, 30*time.Second)
	v.SetDefault(KeyBreakerMaxFailures, 5)
	v.SetDefault(KeyBreakerCooldown, 30*time.Second)
	v.SetDefault(KeyDatabasePath, "~/.local/share/till/till.db")
	v.SetDefault(KeySessionPath, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyDefaultCountry, "KE")
}

// Load reads the settings from v. Paths have ~ and environment variables
// expanded.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		APIURL:          strings.TrimSpace(v.GetString(KeyAPIURL)),
		APITimeout:      v.GetDuration(KeyAPITimeout),
		ConfirmTimeout:  v.GetDuration(KeyConfirmTimeout),
		BreakerCooldown: v.GetDuration(KeyBreakerCooldown),
		DatabasePath:    expandPath(v.GetString(KeyDatabasePath)),
		SessionPath:     expandPath(v.GetString(KeySessionPath)),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		DefaultCountry:  strings.ToUpper(strings.TrimSpace(v.GetString(KeyDefaultCountry))),
	}

	maxFailures := v.GetInt(KeyBreakerMaxFailures)
	if maxFailures < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyBreakerMaxFailures)
	}
	s.BreakerMaxFailures = uint32(maxFailures)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values the client cannot run with.
func (s *Settings) Validate() error {
	if s.APIURL == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyAPIURL)
	}
	if s.APITimeout < 0 {
		return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyAPITimeout)
	}
	if s.ConfirmTimeout < 0 {
		return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyConfirmTimeout)
	}
	if s.DatabasePath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	return nil
}

// APIConfig converts the settings into an api.Config.
func (s *Settings) APIConfig(token string) api.Config {
	return api.Config{
		BaseURL:            s.APIURL,
		Token:              token,
		Timeout:            s.APITimeout,
		BreakerMaxFailures: s.BreakerMaxFailures,
		BreakerCooldown:    s.BreakerCooldown,
	}
}

// LoadCatalog returns the built-in catalog, with the bank list replaced when
// catalog.banks is configured.
func LoadCatalog(v *viper.Viper) (*catalog.Catalog, error) {
	cat := catalog.Default()
	if !v.IsSet(KeyCatalogBanks) {
		return cat, nil
	}

	var banks []catalog.Bank
	if err := v.UnmarshalKey(KeyCatalogBanks, &banks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidConfig, KeyCatalogBanks, err)
	}

	cat, err := cat.WithBanks(banks)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyCatalogBanks, err)
	}
	return cat, nil
}

// ConfigDir returns $HOME/.config/till.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "till"), nil
}

// expandPath resolves a leading ~ to the home directory and then expands
// environment variables. The path is kept as given when there is no home.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
