// Package llm defines the provider-neutral contract for chat completions.
//
// # Overview
//
// A Provider takes a single ChatRequest and streams the generated text into
// an io.Writer sink while accumulating the full response:
//
//	text, err := provider.Complete(ctx, llm.ChatRequest{Prompt: "hello"}, os.Stdout)
//
// Callers that only want the final string pass a nil sink (or io.Discard).
// Wire formats live entirely inside the provider subpackages:
//
//	┌──────────────┐
//	│ llm package  │  ← Provider interface, ChatRequest, errors
//	└──────┬───────┘
//	       │
//	       ├──────────────┬───────────────┐
//	       │              │               │
//	┌──────▼──────┐ ┌─────▼──────┐ ┌──────▼──────┐
//	│ llm/azure   │ │ llm/ollama │ │ llm/sse     │
//	│ (SSE over   │ │ (ollama    │ │ (pure frame │
//	│  net/http)  │ │  api)      │ │  decoder)   │
//	└─────────────┘ └────────────┘ └─────────────┘
//
// Providers are constructed by name through internal/provider, which
// resolves their settings first.
//
// # Error Handling
//
// Construction failures are *ConfigError values and completion failures are
// *ProviderError values. Both support errors.Is against the sentinels:
//
//   - ErrUnsupportedProvider: the name is not registered
//   - ErrMissingConfig: a required setting is empty or a placeholder
//   - ErrRequestFailed: connection, TLS, timeout, or a mid-stream read error
//   - ErrHTTPStatus: non-2xx status; the body is kept verbatim
//   - ErrInvalidJSON: the non-streaming response could not be decoded
//
// Malformed stream frames are not errors; the decoder skips them.
//
// None of these are retried.
package llm
