// Package config provides the persisted settings record and the precedence
// rules that turn it into an effective configuration for one invocation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Keys of the persisted settings record.
const (
	KeyProvider   = "provider"
	KeyEndpoint   = "endpoint"
	KeyAPIKey     = "api_key"
	KeyDeployment = "deployment"
)

// Keys lists every persisted key in display order.
var Keys = []string{KeyProvider, KeyEndpoint, KeyAPIKey, KeyDeployment}

// ErrUnknownKey is returned by Settings.Set for keys outside Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Settings is the flat record persisted between invocations.
// A nil field is absent; a pointer to "" is present but empty.
type Settings struct {
	Provider   *string
	Endpoint   *string
	APIKey     *string
	Deployment *string
}

// Get returns the value stored under key and whether the key is present.
func (s Settings) Get(key string) (string, bool) {
	p := s.field(key)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// Set stores value under key.
func (s *Settings) Set(key, value string) error {
	p := s.field(key)
	if p == nil {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	v := value
	*p = &v
	return nil
}

// Unset removes key from the record.
func (s *Settings) Unset(key string) error {
	p := s.field(key)
	if p == nil {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	*p = nil
	return nil
}

func (s *Settings) field(key string) **string {
	switch strings.ToLower(key) {
	case KeyProvider:
		return &s.Provider
	case KeyEndpoint:
		return &s.Endpoint
	case KeyAPIKey:
		return &s.APIKey
	case KeyDeployment:
		return &s.Deployment
	default:
		return nil
	}
}

// Map returns the present keys and their values.
func (s Settings) Map() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if v, ok := s.Get(k); ok {
			m[k] = v
		}
	}
	return m
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "azure-openai-cli", "config.toml"), nil
}

// Load reads the settings file at path. A missing file is not an error and
// yields empty Settings.
func Load(path string) (Settings, error) {
	var s Settings

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return s, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	for _, k := range Keys {
		if !v.InConfig(k) {
			continue
		}
		_ = s.Set(k, v.GetString(k))
	}
	return s, nil
}

// Save writes s to path, creating the parent directory when needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(path)
	m := s.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Set(k, m[k])
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	return v
}
