package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Preview.Rows != 5 {
		t.Errorf("preview.rows = %d; want 5", cfg.Preview.Rows)
	}
	if cfg.Output.Dir != "." {
		t.Errorf("output.dir = %q; want .", cfg.Output.Dir)
	}
	if cfg.Convert.StrictDirection {
		t.Error("convert.strict_direction should default to false")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("server.read_timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.MaxUploadBytes != 32<<20 {
		t.Errorf("server.max_upload_bytes = %d", cfg.Server.MaxUploadBytes)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("server.cors_origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, "datasweep.yaml", `
log:
  level: debug
  format: json
preview:
  rows: 10
convert:
  strict_direction: true
server:
  addr: 127.0.0.1:9000
  request_timeout: 5s
  cors_origins:
    - https://a.example
    - https://b.example
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Preview.Rows != 10 {
		t.Errorf("preview.rows = %d; want 10", cfg.Preview.Rows)
	}
	if !cfg.Convert.StrictDirection {
		t.Error("convert.strict_direction = false; want true")
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("server.request_timeout = %v", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("server.cors_origins = %v", cfg.Server.CORSOrigins)
	}
	// Untouched keys keep their defaults.
	if cfg.Chart.Width != 40 {
		t.Errorf("chart.width = %d; want 40", cfg.Chart.Width)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "datasweep.yaml", "preview:\n  rows: 10\n")
	t.Setenv("DATASWEEP_PREVIEW_ROWS", "3")
	t.Setenv("DATASWEEP_OUTPUT_DIR", "/tmp/out")
	t.Setenv("DATASWEEP_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Preview.Rows != 3 {
		t.Errorf("preview.rows = %d; want 3", cfg.Preview.Rows)
	}
	if cfg.Output.Dir != "/tmp/out" {
		t.Errorf("output.dir = %q; want /tmp/out", cfg.Output.Dir)
	}
	want := []string{"https://a.example", "https://b.example"}
	if strings.Join(cfg.Server.CORSOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("server.cors_origins = %v; want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero preview", func(c *Config) { c.Preview.Rows = 0 }, "preview.rows"},
		{"empty output dir", func(c *Config) { c.Output.Dir = " " }, "output.dir"},
		{"zero chart width", func(c *Config) { c.Chart.Width = 0 }, "chart.width"},
		{"negative chart rows", func(c *Config) { c.Chart.MaxRows = -1 }, "chart.max_rows"},
		{"zero upload cap", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "server.max_upload_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v; want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v; want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
