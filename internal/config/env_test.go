package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvFile_missingFileIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent")); err != nil {
		t.Fatalf("missing file should return nil: %v", err)
	}
}

func TestLoadEnvFile_setsVariables(t *testing.T) {
	t.Setenv("STREAMDEX_LISTEN", "")
	t.Setenv("STREAMDEX_DB", "")
	path := writeEnvFile(t, "STREAMDEX_LISTEN=:9090\n# comment\nSTREAMDEX_DB=/var/lib/streamdex.db\nnot-a-pair\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("STREAMDEX_LISTEN"); got != ":9090" {
		t.Errorf("STREAMDEX_LISTEN = %q", got)
	}
	if got := os.Getenv("STREAMDEX_DB"); got != "/var/lib/streamdex.db" {
		t.Errorf("STREAMDEX_DB = %q", got)
	}
}

func TestLoadEnvFile_unquotesValues(t *testing.T) {
	t.Setenv("STREAMDEX_TEST_QUOTED", "")
	path := writeEnvFile(t, `STREAMDEX_TEST_QUOTED="hello world"`)
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("STREAMDEX_TEST_QUOTED"); got != "hello world" {
		t.Errorf("STREAMDEX_TEST_QUOTED = %q", got)
	}
}
