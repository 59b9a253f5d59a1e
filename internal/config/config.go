// Package config loads editor-go settings from an optional YAML file with
// environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fibermap/editor-go/internal/observability"
)

type Config struct {
	HTTP struct {
		Addr           string        `yaml:"addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Backend struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`
	Directions struct {
		URL     string        `yaml:"url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"directions"`
	Editor struct {
		StepInterval   time.Duration `yaml:"step_interval"`
		SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
		PathStepMeters float64       `yaml:"path_step_meters"`
	} `yaml:"editor"`
	Sync struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		SweepInterval   time.Duration `yaml:"sweep_interval"`
		MaxBackoff      time.Duration `yaml:"max_backoff"`
	} `yaml:"sync"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

// Default returns the settings used when neither file nor environment say
// otherwise.
func Default() Config {
	var c Config
	c.HTTP.Addr = ":8082"
	c.HTTP.RequestTimeout = 30 * time.Second
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Backend.URL = "http://localhost:5000"
	c.Backend.Timeout = 10 * time.Second
	c.Directions.URL = "https://maps.googleapis.com"
	c.Directions.Timeout = 10 * time.Second
	c.Editor.StepInterval = 200 * time.Millisecond
	c.Editor.SessionIdleTTL = 30 * time.Minute
	c.Editor.PathStepMeters = 0
	c.Sync.RefreshInterval = time.Minute
	c.Sync.SweepInterval = time.Minute
	c.Sync.MaxBackoff = 10 * time.Minute
	c.Tracing.ServiceName = "editor-go"
	c.Tracing.Exporter = "stdout"
	c.Tracing.SampleRatio = 1
	return c
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment as read through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := c.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("DATABASE_URL", &c.Database.URL)
	str("BACKEND_URL", &c.Backend.URL)
	str("DIRECTIONS_URL", &c.Directions.URL)
	str("DIRECTIONS_API_KEY", &c.Directions.APIKey)

	if v := strings.TrimSpace(getenv("BACKEND_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BACKEND_TIMEOUT: %w", err)
		}
		c.Backend.Timeout = d
	}
	if v := strings.TrimSpace(getenv("TRACING_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("backend.url is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.HTTP.RequestTimeout <= c.Backend.Timeout {
		errs = append(errs, fmt.Errorf("http.request_timeout (%s) must exceed backend.timeout (%s)", c.HTTP.RequestTimeout, c.Backend.Timeout))
	}
	if c.Editor.StepInterval <= 0 {
		errs = append(errs, errors.New("editor.step_interval must be positive"))
	}
	if c.Editor.PathStepMeters < 0 {
		errs = append(errs, errors.New("editor.path_step_meters must not be negative"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0,1]"))
	}
	return errors.Join(errs...)
}
