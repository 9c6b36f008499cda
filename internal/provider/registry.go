// Package provider maps provider names to constructors that validate their
// settings and build an llm.Provider.
package provider

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/bimmerbailey/aoai/internal/config"
	"github.com/bimmerbailey/aoai/internal/llm"
	"github.com/bimmerbailey/aoai/internal/llm/azure"
	"github.com/bimmerbailey/aoai/internal/llm/ollama"
)

// Factory builds a provider from fully resolved settings.
type Factory func(cfg config.Effective, logger *slog.Logger) (llm.Provider, error)

// Descriptor describes one registrable provider.
type Descriptor struct {
	// Name is matched case-insensitively.
	Name string

	// Env names the environment variables that override persisted settings.
	Env config.EnvVars

	// Required lists the setting keys that must resolve to a real value.
	Required []string

	Factory Factory
}

// Azure environment variables.
const (
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT"
)

// Ollama environment variables.
const (
	EnvOllamaHost  = "OLLAMA_HOST"
	EnvOllamaModel = "OLLAMA_MODEL"
)

// AzureDescriptor returns the registration for the Azure OpenAI client.
func AzureDescriptor() Descriptor {
	return Descriptor{
		Name: azure.Name,
		Env: config.EnvVars{
			Endpoint:   EnvAzureEndpoint,
			APIKey:     EnvAzureAPIKey,
			Deployment: EnvAzureDeployment,
		},
		Required: []string{config.KeyEndpoint, config.KeyAPIKey, config.KeyDeployment},
		Factory: func(cfg config.Effective, logger *slog.Logger) (llm.Provider, error) {
			return azure.New(azure.Config{
				Endpoint:   cfg.Endpoint,
				APIKey:     cfg.APIKey,
				Deployment: cfg.Deployment,
			}, logger)
		},
	}
}

// OllamaDescriptor returns the registration for a local Ollama server.
// The endpoint is the server host and the deployment is the model name.
func OllamaDescriptor() Descriptor {
	return Descriptor{
		Name: ollama.Name,
		Env: config.EnvVars{
			Endpoint:   EnvOllamaHost,
			Deployment: EnvOllamaModel,
		},
		Required: []string{config.KeyEndpoint, config.KeyDeployment},
		Factory: func(cfg config.Effective, logger *slog.Logger) (llm.Provider, error) {
			return ollama.New(ollama.Config{
				Host:  cfg.Endpoint,
				Model: cfg.Deployment,
			}, logger)
		},
	}
}

// Registry constructs providers by name.
type Registry struct {
	Resolver *config.Resolver
	Defaults config.Defaults
	Logger   *slog.Logger

	providers map[string]Descriptor
}

// NewRegistry returns a Registry with every built-in provider registered.
func NewRegistry(resolver *config.Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if resolver == nil {
		resolver = config.NewResolver(logger)
	}
	r := &Registry{
		Resolver:  resolver,
		Defaults:  config.PlaceholderDefaults(),
		Logger:    logger,
		providers: make(map[string]Descriptor),
	}
	r.Register(AzureDescriptor())
	r.Register(OllamaDescriptor())
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(d Descriptor) {
	if r.providers == nil {
		r.providers = make(map[string]Descriptor)
	}
	r.providers[strings.ToLower(d.Name)] = d
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.providers[strings.ToLower(name)]
	return d, ok
}

// Effective resolves the settings of the named provider without
// constructing it.
func (r *Registry) Effective(name string, s config.Settings) (config.Effective, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return config.Effective{}, r.unsupported(name)
	}
	return r.Resolver.Effective(strings.ToLower(d.Name), s, d.Env, r.Defaults), nil
}

// New constructs the named provider. It fails with an UnsupportedProvider
// ConfigError for unknown names and a MissingConfig ConfigError naming the
// first required setting that is empty or still a placeholder.
func (r *Registry) New(name string, s config.Settings) (llm.Provider, error) {
	d, ok := r.Lookup(name)
	if !ok {
		r.Logger.Debug("unsupported provider", "name", name, "supported", r.Names())
		return nil, r.unsupported(name)
	}

	eff := r.Resolver.Effective(strings.ToLower(d.Name), s, d.Env, r.Defaults)

	for _, key := range d.Required {
		if eff.Unset(key, r.Defaults) {
			return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: key, Hint: hint(d, key)}
		}
	}

	p, err := d.Factory(eff, r.Logger)
	if err != nil {
		if _, ok := llm.AsConfigError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create %s provider: %w", d.Name, err)
	}

	r.Logger.Info("initialized provider", "provider", d.Name, "endpoint", eff.Endpoint, "deployment", eff.Deployment)
	return p, nil
}

func (r *Registry) unsupported(name string) error {
	return &llm.ConfigError{
		Kind: llm.UnsupportedProvider,
		Name: name,
		Hint: "supported: " + strings.Join(r.Names(), ", "),
	}
}

func hint(d Descriptor, key string) string {
	env := ""
	switch key {
	case config.KeyEndpoint:
		env = d.Env.Endpoint
	case config.KeyAPIKey:
		env = d.Env.APIKey
	case config.KeyDeployment:
		env = d.Env.Deployment
	}
	if env == "" {
		return fmt.Sprintf("run: aoai config set %s <value>", key)
	}
	return fmt.Sprintf("set %s or run: aoai config set %s <value>", env, key)
}

// IsUnsupported reports whether err is an UnsupportedProvider failure.
func IsUnsupported(err error) bool {
	return errors.Is(err, llm.ErrUnsupportedProvider)
}

// IsMissingConfig reports whether err is a MissingConfig failure.
func IsMissingConfig(err error) bool {
	return errors.Is(err, llm.ErrMissingConfig)
}
