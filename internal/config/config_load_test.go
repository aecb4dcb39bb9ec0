package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives every test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	viper.Reset()
}

// load runs LoadFromFlags with the given arguments and restores global state afterwards
func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})

	os.Args = append([]string{"pdf-excel-mapper"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	cfg, err := load(t, "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.Registry.URL != "https://data.brreg.no/enhetsregisteret/api" {
		t.Errorf("LoadFromFlags() Registry.URL = %v", cfg.Registry.URL)
	}
	if cfg.Registry.Timeout != 10*time.Second {
		t.Errorf("LoadFromFlags() Registry.Timeout = %v", cfg.Registry.Timeout)
	}
	if cfg.Template.NotesCell != "B10" {
		t.Errorf("LoadFromFlags() Template.NotesCell = %v", cfg.Template.NotesCell)
	}
	if cfg.Summary.MaxSentences != 4 {
		t.Errorf("LoadFromFlags() Summary.MaxSentences = %v", cfg.Summary.MaxSentences)
	}
	if len(cfg.Patterns) != 0 || len(cfg.Template.Cells) != 0 {
		t.Errorf("LoadFromFlags() expected no table overrides, got %v / %v", cfg.Patterns, cfg.Template.Cells)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := load(t,
		"--mode=server",
		"--host=0.0.0.0",
		"--port=9090",
		"--dir="+tempDir,
		"--loglevel=debug",
		"--maxfilesize=1048576",
		"--registry-url=http://localhost:9999/api",
		"--registry-timeout=3s",
	)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
		t.Errorf("LoadFromFlags() server settings = %s %s %d", cfg.Mode, cfg.Host, cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want 1048576", cfg.MaxFileSize)
	}
	if cfg.Registry.URL != "http://localhost:9999/api" {
		t.Errorf("LoadFromFlags() Registry.URL = %v", cfg.Registry.URL)
	}
	if cfg.Registry.Timeout != 3*time.Second {
		t.Errorf("LoadFromFlags() Registry.Timeout = %v, want 3s", cfg.Registry.Timeout)
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("PDF_EXCEL_MODE", "server")
	t.Setenv("PDF_EXCEL_PORT", "3000")
	t.Setenv("PDF_EXCEL_DIR", tempDir)
	t.Setenv("PDF_EXCEL_LOGLEVEL", "warn")
	t.Setenv("PDF_EXCEL_REGISTRY_URL", "")
	t.Setenv("PDF_EXCEL_SUMMARY_DOCUMENT_EXCERPT", "true")

	cfg, err := load(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want server", cfg.Mode)
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want 3000", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want warn", cfg.LogLevel)
	}
	if !cfg.Summary.DocumentExcerpt {
		t.Error("LoadFromFlags() Summary.DocumentExcerpt = false, want true")
	}
	if cfg.RegistryEnabled() {
		t.Errorf("LoadFromFlags() registry should be disabled, got %q", cfg.Registry.URL)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("PDF_EXCEL_MODE", "server")
	t.Setenv("PDF_EXCEL_PORT", "3000")

	cfg, err := load(t, "--mode=stdio", "--port=8888", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want stdio (should override env)", cfg.Mode)
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want 8888 (should override env)", cfg.Port)
	}
}

func TestLoadFromFlags_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mapper.yaml")
	content := `
template:
  sheet: Rapport
  notes_cell: C2
  notes_label: "Summary:"
  cells:
    company_name: C14
    email: B23
fields:
  patterns:
    company_name: 'Firma[:\s]+(.+)'
summary:
  document_excerpt: true
  max_sentences: 2
registry:
  timeout: 5s
`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(t, "--config="+file, "--dir="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.ConfigFile != file {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, file)
	}
	if cfg.Template.Sheet != "Rapport" || cfg.Template.NotesCell != "C2" || cfg.Template.NotesLabel != "Summary:" {
		t.Errorf("Template = %+v", cfg.Template)
	}
	if cfg.Template.Cells["company_name"] != "C14" || cfg.Template.Cells["email"] != "B23" {
		t.Errorf("Template.Cells = %v", cfg.Template.Cells)
	}
	if cfg.Patterns["company_name"] != `Firma[:\s]+(.+)` {
		t.Errorf("Patterns = %v", cfg.Patterns)
	}
	if !cfg.Summary.DocumentExcerpt || cfg.Summary.MaxSentences != 2 {
		t.Errorf("Summary = %+v", cfg.Summary)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Errorf("Registry.Timeout = %v, want 5s", cfg.Registry.Timeout)
	}
}

func TestLoadFromFlags_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mapper.yaml")
	content := "fields:\n  patterns:\n    ceo: 'CEO[:\\s]+(.+)'\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := load(t, "--config="+file, "--dir="+dir)
	if err == nil || !strings.Contains(err.Error(), "unknown field key") {
		t.Errorf("LoadFromFlags() error = %v, want unknown field key", err)
	}

	_, err = load(t, "--config="+filepath.Join(dir, "missing.yaml"), "--dir="+dir)
	if err == nil || !strings.Contains(err.Error(), "cannot read config file") {
		t.Errorf("LoadFromFlags() error = %v, want config file error", err)
	}
}

func TestLoadFromFlags_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"log level", []string{"--loglevel=invalid"}, "invalid log level"},
		{"registry url", []string{"--registry-url=registry.local"}, "registry url must be http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, append(tt.args, "--dir="+t.TempDir())...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	for _, arg := range []string{"--version", "-version", "-v"} {
		_, err := load(t, arg)
		if !errors.Is(err, ErrVersionRequested) {
			t.Errorf("LoadFromFlags(%s) error = %v, want ErrVersionRequested", arg, err)
		}
	}
}
