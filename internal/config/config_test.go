package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestSettings_SetGet(t *testing.T) {
	var s Settings

	for _, k := range Keys {
		if _, ok := s.Get(k); ok {
			t.Errorf("Get(%q) on empty settings should be absent", k)
		}
	}

	if err := s.Set("endpoint", "https://example.openai.azure.com"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("API_KEY", ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := s.Get(KeyEndpoint)
	if !ok || got != "https://example.openai.azure.com" {
		t.Errorf("Get(endpoint) = %q, %v", got, ok)
	}

	// Present but empty is distinct from absent.
	got, ok = s.Get(KeyAPIKey)
	if !ok || got != "" {
		t.Errorf("Get(api_key) = %q, %v, want empty and present", got, ok)
	}
	if _, ok := s.Get(KeyDeployment); ok {
		t.Error("Get(deployment) should be absent")
	}

	if err := s.Unset(KeyAPIKey); err != nil {
		t.Fatalf("Unset() error = %v", err)
	}
	if _, ok := s.Get(KeyAPIKey); ok {
		t.Error("api_key should be absent after Unset")
	}
}

func TestSettings_SetUnknownKey(t *testing.T) {
	var s Settings
	err := s.Set("azure_region", "westus")
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Set() error = %v, want ErrUnknownKey", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Map()) != 0 {
		t.Errorf("Load() of missing file = %v, want empty", s.Map())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	in := Settings{
		Provider:   strPtr("azure"),
		Endpoint:   strPtr("https://example.openai.azure.com/"),
		Deployment: strPtr(""),
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{
		KeyProvider:   "azure",
		KeyEndpoint:   "https://example.openai.azure.com/",
		KeyDeployment: "",
	}
	got := out.Map()
	if len(got) != len(want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Load()[%s] = %q, want %q", k, got[k], v)
		}
	}
	if out.APIKey != nil {
		t.Error("api_key should stay absent after round trip")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("provider = \n[[["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestLoad_IgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "provider = \"azure\"\nazure_region = \"westus\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := s.Get(KeyProvider); got != "azure" {
		t.Errorf("provider = %q, want azure", got)
	}
	if len(s.Map()) != 1 {
		t.Errorf("Load() = %v, want only provider", s.Map())
	}
}
