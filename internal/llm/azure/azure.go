// Package azure provides the Azure OpenAI implementation of llm.Provider.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bimmerbailey/aoai/internal/llm"
	"github.com/bimmerbailey/aoai/internal/llm/sse"
)

// Name is the registry name of this provider.
const Name = "azure"

// DefaultAPIVersion is sent as the api-version query parameter.
const DefaultAPIVersion = "2024-02-15-preview"

var _ llm.Provider = (*Client)(nil)

// Config holds the validated settings the client owns.
type Config struct {
	// Endpoint is the resource URL, e.g. "https://myres.openai.azure.com".
	// Trailing slashes are ignored.
	Endpoint string

	// APIKey is sent in the api-key header.
	APIKey string

	// Deployment names the model deployment to route to.
	Deployment string

	// APIVersion overrides DefaultAPIVersion.
	APIVersion string

	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
}

// Client sends chat completions to an Azure OpenAI deployment.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client. Endpoint, APIKey and Deployment are required.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	switch {
	case cfg.Endpoint == "":
		return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: "endpoint"}
	case cfg.APIKey == "":
		return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: "api_key"}
	case cfg.Deployment == "":
		return nil, &llm.ConfigError{Kind: llm.MissingConfig, Name: "deployment"}
	}

	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid azure endpoint: %w", err)
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{config: cfg, http: httpClient, logger: logger}, nil
}

// Name implements llm.Provider.
func (c *Client) Name() string { return Name }

// URL returns the chat completions URL for the configured deployment.
func (c *Client) URL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"),
		c.config.Deployment,
		url.QueryEscape(c.config.APIVersion),
	)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func buildBody(req llm.ChatRequest) requestBody {
	return requestBody{
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Stream:      !req.NoStream,
		MaxTokens:   req.MaxTokensOrDefault(),
		Temperature: req.TemperatureOrDefault(),
	}
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest, sink io.Writer) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body := buildBody(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return "", c.requestFailed(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.config.APIKey)

	c.logger.Debug("sending chat request",
		"deployment", c.config.Deployment,
		"stream", body.Stream,
		"max_tokens", body.MaxTokens,
		"temperature", body.Temperature)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("chat request failed", "error", err)
		return "", c.requestFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Debug("failed to read error body", "error", readErr)
		}
		c.logger.Error("chat request rejected", "status", resp.StatusCode)
		return "", &llm.ProviderError{
			Provider:   Name,
			Kind:       llm.HTTPError,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if req.NoStream {
		return c.readCompletion(resp.Body, sink)
	}
	return c.readStream(resp.Body, sink)
}

// readStream forwards each delta to sink as it is decoded. A trailing
// newline is written only when at least one fragment was emitted.
func (c *Client) readStream(body io.Reader, sink io.Writer) (string, error) {
	var full strings.Builder
	var streamErr error

	for ev, err := range sse.Stream(body) {
		if err != nil {
			streamErr = err
			break
		}
		if ev.Kind == sse.KindDone {
			break
		}
		c.emit(sink, ev.Text)
		full.WriteString(ev.Text)
	}

	if full.Len() > 0 {
		c.emit(sink, "\n")
	}

	c.logger.Debug("chat stream completed", "chars", full.Len())

	if streamErr != nil {
		c.logger.Error("chat stream interrupted", "error", streamErr)
		return full.String(), c.requestFailed(streamErr)
	}
	return full.String(), nil
}

func (c *Client) readCompletion(body io.Reader, sink io.Writer) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", c.requestFailed(err)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &llm.ProviderError{Provider: Name, Kind: llm.InvalidJSON, Detail: err.Error(), Cause: err}
	}

	text := ""
	if len(out.Choices) > 0 {
		text = out.Choices[0].Message.Content
	}
	if text != "" {
		c.emit(sink, text)
		c.emit(sink, "\n")
	}
	return text, nil
}

// emit writes to the sink. Write failures do not stop accumulation.
func (c *Client) emit(sink io.Writer, s string) {
	if err := llm.Emit(sink, s); err != nil {
		c.logger.Debug("failed to write to sink", "error", err)
	}
}

func (c *Client) requestFailed(err error) error {
	return &llm.ProviderError{Provider: Name, Kind: llm.RequestFailed, Detail: err.Error(), Cause: err}
}
