package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bimmerbailey/aoai/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestNew verifies provider creation with various configurations.
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		missing string
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{Host: "http://localhost:11434", Model: "llama3.2"},
		},
		{
			name:    "missing host",
			config:  Config{Model: "llama3.2"},
			missing: "endpoint",
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{Host: "http://localhost:11434"},
			missing: "deployment",
			wantErr: true,
		},
		{
			name:    "invalid host URL",
			config:  Config{Host: "://invalid-url", Model: "llama3.2"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.config, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && provider == nil {
				t.Fatal("New() returned nil provider without error")
			}
			if tt.missing != "" {
				ce, ok := llm.AsConfigError(err)
				if !ok || ce.Name != tt.missing {
					t.Errorf("New() error = %v, want MissingConfig(%s)", err, tt.missing)
				}
			}
		})
	}
}

// TestNewNilLogger verifies that nil logger is rejected.
func TestNewNilLogger(t *testing.T) {
	_, err := New(Config{Host: "http://localhost:11434", Model: "llama3.2"}, nil)
	if err == nil {
		t.Error("New() should reject nil logger")
	}
}

// TestComplete verifies streaming with a mock Ollama server.
func TestComplete(t *testing.T) {
	var gotReq map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		chunks := []map[string]interface{}{
			{"model": "test-model", "message": map[string]string{"role": "assistant", "content": "Hello "}, "done": false},
			{"model": "test-model", "message": map[string]string{"role": "assistant", "content": "World"}, "done": false},
			{"model": "test-model", "message": map[string]string{"role": "assistant", "content": "!"}, "done": true, "prompt_eval_count": 5, "eval_count": 15},
		}

		encoder := json.NewEncoder(w)
		for _, chunk := range chunks {
			if err := encoder.Encode(chunk); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer server.Close()

	provider, err := New(Config{Host: server.URL, Model: "test-model"}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	var sink bytes.Buffer
	text, err := provider.Complete(context.Background(), llm.ChatRequest{Prompt: "Hello"}, &sink)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	if text != "Hello World!" {
		t.Errorf("Complete() = %q, want %q", text, "Hello World!")
	}
	if sink.String() != "Hello World!\n" {
		t.Errorf("sink = %q, want %q", sink.String(), "Hello World!\n")
	}

	if gotReq["model"] != "test-model" {
		t.Errorf("model = %v", gotReq["model"])
	}
	options, ok := gotReq["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("options = %v", gotReq["options"])
	}
	if options["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", options["temperature"])
	}
	if options["num_predict"] != float64(256) {
		t.Errorf("num_predict = %v, want 256", options["num_predict"])
	}
}

// TestCompleteStatusError verifies backend errors keep the status and message.
func TestCompleteStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer server.Close()

	provider, err := New(Config{Host: server.URL, Model: "nope"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Complete(context.Background(), llm.ChatRequest{Prompt: "Hello"}, nil)
	pe, ok := llm.AsProviderError(err)
	if !ok {
		t.Fatalf("Complete() error = %v, want ProviderError", err)
	}
	if pe.Kind != llm.HTTPError || pe.StatusCode != http.StatusNotFound {
		t.Errorf("error = %+v, want HTTPError(404)", pe)
	}
	if pe.Body != `model "nope" not found` {
		t.Errorf("Body = %q", pe.Body)
	}
}

// TestCompleteUnreachable verifies transport failures map to RequestFailed.
func TestCompleteUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider, err := New(Config{Host: url, Model: "llama3.2"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Complete(context.Background(), llm.ChatRequest{Prompt: "Hello"}, nil)
	if !errors.Is(err, llm.ErrRequestFailed) {
		t.Errorf("Complete() error = %v, want RequestFailed", err)
	}
}

// TestCompleteEmptyPrompt verifies that no request is sent without a prompt.
func TestCompleteEmptyPrompt(t *testing.T) {
	provider, err := New(Config{Host: "http://localhost:11434", Model: "llama3.2"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Complete(context.Background(), llm.ChatRequest{}, nil)
	if !errors.Is(err, llm.ErrEmptyPrompt) {
		t.Errorf("Complete() error = %v, want ErrEmptyPrompt", err)
	}
}
