package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Validation.Enabled {
		t.Error("Validation.Enabled = false, want true")
	}
	if cfg.Validation.OnError != DefaultOnError {
		t.Errorf("Validation.OnError = %q, want %q", cfg.Validation.OnError, DefaultOnError)
	}
	if cfg.Names.FoldCase != DefaultFoldCase {
		t.Errorf("Names.FoldCase = %q, want %q", cfg.Names.FoldCase, DefaultFoldCase)
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled = false, want true")
	}
	if cfg.Journal.RetentionDays != DefaultRetentionDays {
		t.Errorf("Journal.RetentionDays = %d, want %d", cfg.Journal.RetentionDays, DefaultRetentionDays)
	}
	if cfg.Output.Format != DefaultOutputFormat {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, DefaultOutputFormat)
	}
	if cfg.Logging.Rotation.MaxSize != DefaultMaxLogSize {
		t.Errorf("Logging.Rotation.MaxSize = %q, want %q", cfg.Logging.Rotation.MaxSize, DefaultMaxLogSize)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
	if cfg.StagingPath() != DefaultStagingPath() {
		t.Errorf("StagingPath() = %q, want %q", cfg.StagingPath(), DefaultStagingPath())
	}
	if cfg.JournalPath() != DefaultJournalPath() {
		t.Errorf("JournalPath() = %q, want %q", cfg.JournalPath(), DefaultJournalPath())
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `
validation:
  enabled: false
  on_error: propagate
names:
  fold_case: "true"
backend:
  user_file: ~/env/user.env
staging:
  path: /tmp/enviro-staging
journal:
  retention_days: 7
output:
  format: json
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Validation.Enabled {
		t.Error("Validation.Enabled = true, want false")
	}
	if cfg.Validation.OnError != "propagate" {
		t.Errorf("Validation.OnError = %q, want propagate", cfg.Validation.OnError)
	}
	if fold, set, err := cfg.FoldCase(); err != nil || !set || !fold {
		t.Errorf("FoldCase() = %v, %v, %v, want true, true, nil", fold, set, err)
	}
	if want := filepath.Join(home, "env", "user.env"); cfg.Backend.UserFile != want {
		t.Errorf("Backend.UserFile = %q, want %q", cfg.Backend.UserFile, want)
	}
	if cfg.StagingPath() != "/tmp/enviro-staging" {
		t.Errorf("StagingPath() = %q", cfg.StagingPath())
	}
	if cfg.Journal.RetentionDays != 7 {
		t.Errorf("Journal.RetentionDays = %d, want 7", cfg.Journal.RetentionDays)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	dir := filepath.Join(xdgHome, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output:\n  format: yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, want yaml", cfg.Output.Format)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("ENVIRO_OUTPUT_FORMAT", "plain")
	t.Setenv("ENVIRO_JOURNAL_RETENTION_DAYS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "plain" {
		t.Errorf("Output.Format = %q, want plain", cfg.Output.Format)
	}
	if cfg.Journal.RetentionDays != 3 {
		t.Errorf("Journal.RetentionDays = %d, want 3", cfg.Journal.RetentionDays)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile() of a missing explicit file should fail")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad policy", "validation:\n  on_error: ignore\n"},
		{"bad fold case", "names:\n  fold_case: sometimes\n"},
		{"negative retention", "journal:\n  retention_days: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			writeConfig(t, home, tt.content)

			_, err := Load()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFoldCase(t *testing.T) {
	tests := []struct {
		in       string
		fold     bool
		set      bool
		wantFail bool
	}{
		{"", false, false, false},
		{"auto", false, false, false},
		{"AUTO", false, false, false},
		{"true", true, true, false},
		{"false", false, true, false},
		{"1", true, true, false},
		{"maybe", false, false, true},
	}
	for _, tt := range tests {
		c := &Config{Names: NamesConfig{FoldCase: tt.in}}
		fold, set, err := c.FoldCase()
		if (err != nil) != tt.wantFail {
			t.Errorf("FoldCase(%q) error = %v", tt.in, err)
			continue
		}
		if fold != tt.fold || set != tt.set {
			t.Errorf("FoldCase(%q) = %v, %v, want %v, %v", tt.in, fold, set, tt.fold, tt.set)
		}
	}
}

func TestConfigure_FlagPrecedence(t *testing.T) {
	isolate(t)
	v := viper.New()
	if err := Configure(v, ""); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	v.Set("output.format", "yaml")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, want yaml", cfg.Output.Format)
	}
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, created, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !created {
		t.Error("WriteDefault() created = false on first call")
	}
	if want := filepath.Join(home, ".config", AppName, "config.yaml"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "on_error: corrupted") {
		t.Errorf("default config missing on_error:\n%s", data)
	}

	// The written file must load cleanly.
	if _, err := Load(); err != nil {
		t.Errorf("Load() after WriteDefault() error = %v", err)
	}

	if _, created, err := WriteDefault(); err != nil || created {
		t.Errorf("second WriteDefault() = %v, %v, want false, nil", created, err)
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/x")
	if err != nil || got != filepath.Join(home, "x") {
		t.Errorf("ExpandPath(~/x) = %q, %v", got, err)
	}
	if got, _ := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q", got)
	}
}
