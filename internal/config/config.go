package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/gauge/internal/analytics"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DashboardConfig holds the reporting knobs passed to analytics.Options.
type DashboardConfig struct {
	Timezone             string   `toml:"timezone"` // IANA name, "Local" or "UTC"
	StatusLabels         []string `toml:"status_labels"`
	PriorityLabels       []string `toml:"priority_labels"`
	UnknownPersonLabel   string   `toml:"unknown_person_label"`
	PersonFallbackPrefix string   `toml:"person_fallback_prefix"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string               `toml:"level"`
	DevFile LoggingDevFileConfig `toml:"dev_file"`
}

// LoggingDevFileConfig controls the logfmt file sink used in dev mode.
type LoggingDevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default(dbPath string) Config {
	opts := analytics.DefaultOptions()
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Dashboard: DashboardConfig{
			Timezone:             "Local",
			StatusLabels:         slices.Clone(opts.StatusLabels),
			PriorityLabels:       slices.Clone(opts.PriorityLabels),
			UnknownPersonLabel:   opts.UnknownLabel,
			PersonFallbackPrefix: opts.FallbackPrefix,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: LoggingDevFileConfig{
				Enabled: true,
				Dir:     ".gauge/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := c.Dashboard.Location(); err != nil {
		return err
	}
	if err := validateLabels("dashboard.status_labels", c.Dashboard.StatusLabels); err != nil {
		return err
	}
	if err := validateLabels("dashboard.priority_labels", c.Dashboard.PriorityLabels); err != nil {
		return err
	}

	if strings.TrimSpace(c.Server.APIEndpoint) != "" && strings.TrimSpace(c.Server.APIEndpoint) == strings.TrimSpace(c.Server.MCPEndpoint) {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", c.Server.APIEndpoint)
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(strings.ToLower(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when logging.dev_file.enabled is true")
	}

	return nil
}

// Location resolves the configured reporting time zone. Empty means Local.
func (d DashboardConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(d.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	if strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard.timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// Options converts the dashboard section into analytics options.
func (d DashboardConfig) Options() (analytics.Options, error) {
	loc, err := d.Location()
	if err != nil {
		return analytics.Options{}, err
	}
	return analytics.Options{
		Location:       loc,
		StatusLabels:   slices.Clone(d.StatusLabels),
		PriorityLabels: slices.Clone(d.PriorityLabels),
		UnknownLabel:   strings.TrimSpace(d.UnknownPersonLabel),
		FallbackPrefix: strings.TrimSpace(d.PersonFallbackPrefix),
	}, nil
}

// validateLabels rejects blank and duplicated (case-insensitive) chart labels.
func validateLabels(field string, labels []string) error {
	seen := map[string]struct{}{}
	for i, label := range labels {
		label = strings.ToUpper(strings.TrimSpace(label))
		if label == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%s[%d] is duplicated: %s", field, i, label)
		}
		seen[label] = struct{}{}
	}
	return nil
}
