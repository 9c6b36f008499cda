package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is checks against ConfigError and ProviderError.
var (
	// ErrUnsupportedProvider indicates the provider name is not registered
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingConfig indicates a required provider setting is not configured
	ErrMissingConfig = errors.New("missing configuration")

	// ErrRequestFailed indicates a transport failure (connection, TLS, timeout)
	ErrRequestFailed = errors.New("request failed")

	// ErrHTTPStatus indicates the backend answered with a non-success status
	ErrHTTPStatus = errors.New("http error")

	// ErrInvalidJSON indicates a non-streaming response body could not be decoded
	ErrInvalidJSON = errors.New("invalid json")
)

// ConfigErrorKind distinguishes provider construction failures.
type ConfigErrorKind int

const (
	// UnsupportedProvider means no provider is registered under the name.
	UnsupportedProvider ConfigErrorKind = iota

	// MissingConfig means a required setting is empty or a placeholder.
	MissingConfig
)

// ConfigError is returned when a provider cannot be constructed.
type ConfigError struct {
	Kind ConfigErrorKind

	// Name is the provider name for UnsupportedProvider and the setting key
	// for MissingConfig.
	Name string

	// Hint optionally tells the user how to fix the failure: where to set
	// the missing setting, or which provider names are valid.
	Hint string
}

func (e *ConfigError) Error() string {
	var msg string
	switch e.Kind {
	case MissingConfig:
		msg = fmt.Sprintf("missing configuration: %s", e.Name)
	default:
		msg = fmt.Sprintf("unsupported provider: %s", e.Name)
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Is matches the sentinel for the error kind.
func (e *ConfigError) Is(target error) bool {
	switch e.Kind {
	case MissingConfig:
		return target == ErrMissingConfig
	default:
		return target == ErrUnsupportedProvider
	}
}

// ProviderErrorKind classifies failures of a completion call.
type ProviderErrorKind int

const (
	// RequestFailed covers transport and mid-stream read failures.
	RequestFailed ProviderErrorKind = iota

	// HTTPError means the backend answered with a non-2xx status.
	HTTPError

	// InvalidJSON means a non-streaming body could not be decoded.
	InvalidJSON
)

// ProviderError is returned by Provider.Complete.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind

	// StatusCode and Body are set for HTTPError. Body is the response body
	// exactly as received.
	StatusCode int
	Body       string

	// Detail describes RequestFailed and InvalidJSON failures.
	Detail string

	Cause error
}

func (e *ProviderError) Error() string {
	prefix := ""
	if e.Provider != "" {
		prefix = e.Provider + ": "
	}
	switch e.Kind {
	case HTTPError:
		return fmt.Sprintf("%shttp %d %s: %s", prefix, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	case InvalidJSON:
		return fmt.Sprintf("%sinvalid json: %s", prefix, e.Detail)
	default:
		return fmt.Sprintf("%srequest failed: %s", prefix, e.Detail)
	}
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Is matches the sentinel for the error kind.
func (e *ProviderError) Is(target error) bool {
	switch e.Kind {
	case HTTPError:
		return target == ErrHTTPStatus
	case InvalidJSON:
		return target == ErrInvalidJSON
	default:
		return target == ErrRequestFailed
	}
}

// AsProviderError reports whether err is a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsConfigError reports whether err is a ConfigError.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
