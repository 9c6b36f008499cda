package config

import (
	"io"
	"log/slog"
	"os"
)

// Placeholder defaults. They are never sent over the wire; seeing one
// downstream means the setting was never configured.
const (
	PlaceholderEndpoint   = "<your-endpoint>"
	PlaceholderAPIKey     = "<your-api-key>"
	PlaceholderDeployment = "<your-deployment>"
)

// Defaults holds the fallback value for each resolvable setting.
type Defaults struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// PlaceholderDefaults returns the standard placeholder defaults.
func PlaceholderDefaults() Defaults {
	return Defaults{
		Endpoint:   PlaceholderEndpoint,
		APIKey:     PlaceholderAPIKey,
		Deployment: PlaceholderDeployment,
	}
}

// EnvVars names the environment variables consulted for each setting.
// An empty name means the setting has no environment override.
type EnvVars struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// Effective is the resolved, read-only view used for a single invocation.
type Effective struct {
	Provider   string `json:"provider"`
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"api_key"`
	Deployment string `json:"deployment"`
}

// Resolver merges the environment, persisted settings and defaults.
type Resolver struct {
	// Getenv looks up an environment variable. Defaults to os.Getenv.
	Getenv func(string) string
	Logger *slog.Logger
}

// NewResolver returns a Resolver reading the process environment.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{Getenv: os.Getenv, Logger: logger}
}

func (r *Resolver) getenv(name string) string {
	if name == "" {
		return ""
	}
	if r.Getenv == nil {
		return os.Getenv(name)
	}
	return r.Getenv(name)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Debug(msg, args...)
	}
}

// Resolve returns the environment variable when set and non-empty, else the
// persisted value when present, else def. It never fails.
func (r *Resolver) Resolve(setting, envVar string, persisted *string, def string) string {
	if v := r.getenv(envVar); v != "" {
		r.debug("resolved setting", "setting", setting, "source", "env", "var", envVar)
		return v
	}
	if persisted != nil {
		r.debug("resolved setting", "setting", setting, "source", "config")
		return *persisted
	}
	r.debug("resolved setting", "setting", setting, "source", "default")
	return def
}

// ResolveProviderName returns the environment variable, else the persisted
// value. There is no default: an unset provider is a real absence of choice.
func (r *Resolver) ResolveProviderName(envVar string, persisted *string) (string, bool) {
	if v := r.getenv(envVar); v != "" {
		return v, true
	}
	if persisted != nil {
		return *persisted, true
	}
	return "", false
}

// Effective resolves every provider setting in s.
func (r *Resolver) Effective(provider string, s Settings, env EnvVars, defs Defaults) Effective {
	return Effective{
		Provider:   provider,
		Endpoint:   r.Resolve(KeyEndpoint, env.Endpoint, s.Endpoint, defs.Endpoint),
		APIKey:     r.Resolve(KeyAPIKey, env.APIKey, s.APIKey, defs.APIKey),
		Deployment: r.Resolve(KeyDeployment, env.Deployment, s.Deployment, defs.Deployment),
	}
}

// Value returns the effective value of a setting key.
func (e Effective) Value(key string) string {
	switch key {
	case KeyProvider:
		return e.Provider
	case KeyEndpoint:
		return e.Endpoint
	case KeyAPIKey:
		return e.APIKey
	case KeyDeployment:
		return e.Deployment
	default:
		return ""
	}
}

// Unset reports whether the setting under key is empty or still holds its
// placeholder default.
func (e Effective) Unset(key string, defs Defaults) bool {
	v := e.Value(key)
	if v == "" {
		return true
	}
	switch key {
	case KeyEndpoint:
		return v == defs.Endpoint
	case KeyAPIKey:
		return v == defs.APIKey
	case KeyDeployment:
		return v == defs.Deployment
	}
	return false
}

// Redacted returns a copy safe for display, with the API key masked.
func (e Effective) Redacted() Effective {
	if len(e.APIKey) > 4 && !isPlaceholder(e.APIKey) {
		e.APIKey = e.APIKey[:2] + "****" + e.APIKey[len(e.APIKey)-2:]
	} else if e.APIKey != "" && !isPlaceholder(e.APIKey) {
		e.APIKey = "****"
	}
	return e
}

func isPlaceholder(v string) bool {
	return len(v) > 1 && v[0] == '<' && v[len(v)-1] == '>'
}
