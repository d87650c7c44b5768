// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/invowk/modhost/internal/issue"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if len(cfg.SearchPaths) != 0 || len(cfg.Disabled) != 0 {
		t.Errorf("expected no search paths or disabled units, got %+v", cfg)
	}
	if !slices.Equal(cfg.ProtectedPrefixes, []string{"modhost.", "go."}) {
		t.Errorf("ProtectedPrefixes = %v", cfg.ProtectedPrefixes)
	}
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
	if cfg.Telemetry.Listen != "" {
		t.Errorf("telemetry must be off by default, got %q", cfg.Telemetry.Listen)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}

	cfg.ProtectedPrefixes[0] = "changed."
	if DefaultConfig().ProtectedPrefixes[0] != "modhost." {
		t.Error("DefaultConfig shares its prefix slice")
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
search_paths: ["/opt/units", "/home/me/units/*"]
disabled: ["noisy"]
log_level: "debug"
watch: {
	debounce: "2s"
	patterns: ["**/*.json"]
}
telemetry: listen: "127.0.0.1:9464"
`)

	cfg, resolved, err := LoadWithPath(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if !slices.Equal(cfg.SearchPaths, []string{"/opt/units", "/home/me/units/*"}) {
		t.Errorf("SearchPaths = %v", cfg.SearchPaths)
	}
	if !slices.Equal(cfg.Disabled, []string{"noisy"}) || cfg.LogLevel != LogLevelDebug {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Watch.Debounce != 2*time.Second || !cfg.Watch.Enabled {
		t.Errorf("Watch = %+v (enabled must keep its default)", cfg.Watch)
	}
	if cfg.Telemetry.Listen != "127.0.0.1:9464" {
		t.Errorf("Listen = %q", cfg.Telemetry.Listen)
	}
	if !slices.Equal(cfg.ProtectedPrefixes, DefaultConfig().ProtectedPrefixes) {
		t.Errorf("ProtectedPrefixes = %v", cfg.ProtectedPrefixes)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, resolved, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want none", resolved)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_ConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(`log_level: "warn"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != LogLevelWarn {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.cue") },
		},
		{
			name: "unknown log level",
			path: func(t *testing.T) string { return writeConfig(t, `log_level: "loud"`) },
		},
		{
			name: "unknown field",
			path: func(t *testing.T) string { return writeConfig(t, `colour: "red"`) },
		},
		{
			name: "protected prefix without dot",
			path: func(t *testing.T) string { return writeConfig(t, `protected_prefixes: ["modhost"]`) },
		},
		{
			name: "bad unit name",
			path: func(t *testing.T) string { return writeConfig(t, `disabled: ["9lives"]`) },
		},
		{
			name: "bad debounce",
			path: func(t *testing.T) string { return writeConfig(t, `watch: debounce: "soon"`) },
		},
		{
			name:    "bad listen address",
			path:    func(t *testing.T) string { return writeConfig(t, `telemetry: listen: "nowhere"`) },
			wantErr: ErrInvalidConfig,
		},
		{
			name: "syntax error",
			path: func(t *testing.T) string { return writeConfig(t, `log_level: `) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: tt.path(t)})
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || !ae.HasSuggestions() {
				t.Errorf("err = %v, want an actionable error with suggestions", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODHOST_LOG_LEVEL", "error")
	t.Setenv("MODHOST_SEARCH_PATHS", "/a,/b")
	t.Setenv("MODHOST_WATCH_DEBOUNCE", "1s")
	t.Setenv("MODHOST_TELEMETRY_LISTEN", ":9000")

	path := writeConfig(t, `log_level: "debug"`)
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != LogLevelError {
		t.Errorf("LogLevel = %s, want the environment to win", cfg.LogLevel)
	}
	if !slices.Equal(cfg.SearchPaths, []string{"/a", "/b"}) {
		t.Errorf("SearchPaths = %v", cfg.SearchPaths)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Telemetry.Listen != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestCreateDefaultConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	path, written, err := CreateDefaultConfig(dir)
	if err != nil || !written {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, written, err)
	}
	if _, written, err := CreateDefaultConfig(dir); err != nil || written {
		t.Errorf("second call wrote = %v, err = %v; existing file must be kept", written, err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("round trip = %+v, want %+v", cfg, DefaultConfig())
	}
}

func TestConfigDir_Override(t *testing.T) {
	SetConfigDirOverride("/tmp/modhost-test")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/modhost-test" {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
}
