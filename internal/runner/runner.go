// Package runner drives a single prompt invocation: it picks the provider,
// constructs it from the resolved settings and streams the completion.
package runner

import (
	"context"
	"io"
	"log/slog"

	"github.com/bimmerbailey/aoai/internal/config"
	"github.com/bimmerbailey/aoai/internal/llm"
	"github.com/bimmerbailey/aoai/internal/provider"
)

const (
	// EnvProvider selects the provider when no name is passed explicitly.
	EnvProvider = "AOAI_PROVIDER"

	// DefaultProvider is used when no provider is chosen anywhere.
	DefaultProvider = "azure"
)

// Request is one invocation as parsed by the command line.
type Request struct {
	// ProviderName overrides every other provider source when non-nil.
	ProviderName *string
	Prompt       string
	MaxTokens    *int
	Temperature  *float64
	NoStream     bool
}

// Outcome reports how an invocation ended. Text holds whatever was
// produced, including partial output before a late failure.
type Outcome struct {
	Provider string
	Text     string
	Err      error
}

// OK reports whether the invocation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Message returns the failure description destined for the error stream.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Runner holds the per-process collaborators of an invocation.
type Runner struct {
	Settings config.Settings
	Registry *provider.Registry
	Sink     io.Writer
	Logger   *slog.Logger
}

// New returns a Runner. A nil registry gets the built-in providers.
func New(settings config.Settings, registry *provider.Registry, sink io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if registry == nil {
		registry = provider.NewRegistry(config.NewResolver(logger), logger)
	}
	return &Runner{Settings: settings, Registry: registry, Sink: sink, Logger: logger}
}

// ProviderName returns the provider to use: the explicit name, else the
// environment, else the persisted setting, else DefaultProvider.
func (r *Runner) ProviderName(explicit *string) string {
	if explicit != nil && *explicit != "" {
		return *explicit
	}
	if name, ok := r.Registry.Resolver.ResolveProviderName(EnvProvider, r.Settings.Provider); ok && name != "" {
		return name
	}
	return DefaultProvider
}

// Run executes req. It never terminates the process; failures are returned
// in the Outcome.
func (r *Runner) Run(ctx context.Context, req Request) Outcome {
	name := r.ProviderName(req.ProviderName)
	out := Outcome{Provider: name}

	chatReq := llm.ChatRequest{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		NoStream:    req.NoStream,
	}
	if err := chatReq.Validate(); err != nil {
		out.Err = err
		return out
	}

	p, err := r.Registry.New(name, r.Settings)
	if err != nil {
		r.Logger.Debug("provider construction failed", "provider", name, "error", err)
		out.Err = err
		return out
	}

	r.Logger.Info("sending prompt", "provider", p.Name(), "chars", len(req.Prompt))

	out.Text, out.Err = p.Complete(ctx, chatReq, r.Sink)
	if out.Err != nil && out.Text != "" {
		r.Logger.Info("completion failed after partial output", "chars", len(out.Text))
	}
	return out
}
