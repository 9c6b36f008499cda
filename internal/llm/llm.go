package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Provider defines the contract every chat backend satisfies.
type Provider interface {
	// Name returns the registry name of the provider (e.g. "azure").
	Name() string

	// Complete sends exactly one request for req. Incremental text fragments
	// are written to sink in generation order before Complete returns, and
	// the returned string is their concatenation. sink may be nil.
	//
	// On a late failure the text produced so far is returned along with the
	// error; nothing already written to sink is rolled back.
	Complete(ctx context.Context, req ChatRequest, sink io.Writer) (string, error)
}

// Defaults applied by providers when a request leaves a parameter unset.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
)

// ChatRequest is a single stateless prompt plus optional generation parameters.
type ChatRequest struct {
	// Prompt is the user message. Must not be empty.
	Prompt string

	// MaxTokens caps the response length. nil uses DefaultMaxTokens.
	MaxTokens *int

	// Temperature controls randomness, typically 0.0 to 2.0. nil uses
	// DefaultTemperature. Not range-checked here.
	Temperature *float64

	// NoStream asks the provider for a single non-streaming response.
	// The full text is still written to the sink once it arrives.
	NoStream bool
}

// ErrEmptyPrompt is returned by Validate for a request without a prompt.
var ErrEmptyPrompt = errors.New("no input string provided")

// Validate checks the request invariants.
func (r ChatRequest) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", *r.MaxTokens)
	}
	return nil
}

// MaxTokensOrDefault returns MaxTokens or DefaultMaxTokens.
func (r ChatRequest) MaxTokensOrDefault() int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return DefaultMaxTokens
}

// TemperatureOrDefault returns Temperature or DefaultTemperature.
func (r ChatRequest) TemperatureOrDefault() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return DefaultTemperature
}

// Flusher is implemented by sinks that buffer writes.
type Flusher interface {
	Flush() error
}

// Emit writes fragment to sink and flushes it immediately so interactive
// terminals see output as it is generated.
func Emit(sink io.Writer, fragment string) error {
	if sink == nil {
		return nil
	}
	if _, err := io.WriteString(sink, fragment); err != nil {
		return err
	}
	if f, ok := sink.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
