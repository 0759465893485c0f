package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-key")
	if err := os.WriteFile(path, []byte("  key-from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	secret, err := Load(Source{Name: "gemini api key", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if secret != "key-from-file" {
		t.Fatalf("unexpected secret: %q", secret)
	}
}

func TestLoadFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-key")
	if err := os.WriteFile(path, []byte("file-key"), 0o600); err != nil {
		t.Fatal(err)
	}

	secret, err := Load(Source{File: path, Value: "inline-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if secret != "file-key" {
		t.Fatalf("expected file to win, got %q", secret)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SHORTLISTER_TEST_KEY", "env-key")

	secret, err := Load(Source{Env: "SHORTLISTER_TEST_KEY", Value: "inline-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if secret != "env-key" {
		t.Fatalf("expected env to win over inline, got %q", secret)
	}
}

func TestLoadInlineFallback(t *testing.T) {
	secret, err := Load(Source{Value: " inline-key "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if secret != "inline-key" {
		t.Fatalf("unexpected secret: %q", secret)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "gemini api key"}); err == nil {
		t.Fatal("expected error for empty source")
	}

	if _, err := Load(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
