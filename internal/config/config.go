// Package config loads application settings from defaults, an optional
// config file and DATASWEEP_* environment variables, in increasing order
// of precedence. Settings are validated on load so a bad value fails at
// startup rather than mid-session.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DATASWEEP_LOG_LEVEL.
const EnvPrefix = "DATASWEEP"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Preview PreviewConfig `mapstructure:"preview"`
	Output  OutputConfig  `mapstructure:"output"`
	Convert ConvertConfig `mapstructure:"convert"`
	Chart   ChartConfig   `mapstructure:"chart"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
	// File receives log output. Empty means stdout for the server and no
	// logging for the terminal UI.
	File string `mapstructure:"file"`
}

type PreviewConfig struct {
	// Rows is the number of head rows shown for each file.
	Rows int `mapstructure:"rows"`
}

type OutputConfig struct {
	// Dir is where the terminal UI saves converted files.
	Dir string `mapstructure:"dir"`
}

type ConvertConfig struct {
	// StrictDirection rejects a conversion whose source format is not the
	// format the file was loaded from.
	StrictDirection bool `mapstructure:"strict_direction"`
}

type ChartConfig struct {
	Width   int `mapstructure:"width"`
	MaxRows int `mapstructure:"max_rows"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("preview.rows", 5)
	v.SetDefault("output.dir", ".")
	v.SetDefault("convert.strict_direction", false)
	v.SetDefault("chart.width", 40)
	v.SetDefault("chart.max_rows", 20)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply. The file type follows the file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Env values arrive comma separated, possibly with spaces.
	cfg.Server.CORSOrigins = splitList(strings.Join(cfg.Server.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	if c.Preview.Rows <= 0 {
		errs = append(errs, fmt.Errorf("preview.rows: must be positive, got %d", c.Preview.Rows))
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, errors.New("output.dir: must not be empty"))
	}
	if c.Chart.Width <= 0 {
		errs = append(errs, fmt.Errorf("chart.width: must be positive, got %d", c.Chart.Width))
	}
	if c.Chart.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("chart.max_rows: must not be negative, got %d", c.Chart.MaxRows))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes: must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout: must not be negative"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
