// Package ollama provides an Ollama implementation of llm.Provider.
//
// It exists alongside the Azure client so the provider contract stays
// vendor-neutral: the Ollama wire format is handled by the official api
// client and never leaks out of this package.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bimmerbailey/aoai/internal/llm"
	"github.com/ollama/ollama/api"
)

// Name is the registry name of this provider.
const Name = "ollama"

var _ llm.Provider = (*Provider)(nil)

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434")
	Host string

	// Model is the model to use (e.g., "llama3.2")
	Model string

	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
}

// Provider implements llm.Provider for Ollama.
type Provider struct {
	client *api.Client
	config Config
	logger *slog.Logger
}

// New creates a new Ollama provider. Host and Model are required.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Host == "" {
		return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: "endpoint"}
	}
	if cfg.Model == "" {
		return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: "deployment"}
	}

	parsedURL, err := url.Parse(strings.TrimRight(cfg.Host, "/"))
	if err != nil {
		logger.Error("invalid ollama host URL", "host", cfg.Host, "error", err)
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger.Debug("created ollama client", "host", cfg.Host, "model", cfg.Model)

	return &Provider{
		client: api.NewClient(parsedURL, httpClient),
		config: cfg,
		logger: logger,
	}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return Name }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.ChatRequest, sink io.Writer) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	stream := !req.NoStream
	chatReq := &api.ChatRequest{
		Model:    p.config.Model,
		Messages: []api.Message{{Role: "user", Content: req.Prompt}},
		Options: map[string]interface{}{
			"temperature": req.TemperatureOrDefault(),
			"num_predict": req.MaxTokensOrDefault(),
		},
		Stream: &stream,
	}

	p.logger.Debug("sending chat request", "model", p.config.Model, "stream", stream)

	var full strings.Builder
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			p.emit(sink, resp.Message.Content)
			full.WriteString(resp.Message.Content)
		}
		if resp.Done {
			p.logger.Debug("chat stream completed",
				"model", resp.Model,
				"prompt_tokens", resp.PromptEvalCount,
				"eval_tokens", resp.EvalCount)
		}
		return nil
	})

	if full.Len() > 0 {
		p.emit(sink, "\n")
	}

	if err != nil {
		p.logger.Error("chat request failed", "error", err, "model", p.config.Model)
		return full.String(), p.mapError(err)
	}
	return full.String(), nil
}

func (p *Provider) mapError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		body := se.ErrorMessage
		if body == "" {
			body = se.Status
		}
		return &llm.ProviderError{Provider: Name, Kind: llm.HTTPError, StatusCode: se.StatusCode, Body: body, Cause: err}
	}
	return &llm.ProviderError{Provider: Name, Kind: llm.RequestFailed, Detail: err.Error(), Cause: err}
}

func (p *Provider) emit(sink io.Writer, s string) {
	if err := llm.Emit(sink, s); err != nil {
		p.logger.Debug("failed to write to sink", "error", err)
	}
}
