// Package config loads the TOML server configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/proxypulse/proxypulse/internal/auth"
	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/logger"
	itls "github.com/proxypulse/proxypulse/internal/tls"
)

// Config is the top-level TOML structure.
type Config struct {
	Listen   string           `toml:"listen" mapstructure:"listen"`
	BasePath string           `toml:"base_path" mapstructure:"base_path"`
	Store    StoreConfig      `toml:"store" mapstructure:"store"`
	Probe    ProbeConfig      `toml:"probe" mapstructure:"probe"`
	Log      logger.Config    `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig    `toml:"metrics" mapstructure:"metrics"`
	Auth     auth.Config      `toml:"auth" mapstructure:"auth"`
	TLS      itls.Config      `toml:"tls" mapstructure:"tls"`
	Sinks    []SinkConfig     `toml:"sinks" mapstructure:"sinks"`
	Seeds    []EndpointConfig `toml:"endpoints" mapstructure:"endpoints"`
}

type StoreConfig struct {
	// DSN selects the backend: postgres:// for PostgreSQL, anything
	// else is treated as a SQLite path.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type ProbeConfig struct {
	Timeout   time.Duration `toml:"timeout" mapstructure:"timeout"`
	VerifyURL string        `toml:"verify_url" mapstructure:"verify_url"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"` // empty: served on the API listener
}

// SinkConfig describes one external destination for probe events.
type SinkConfig struct {
	Type     string `toml:"type" mapstructure:"type"` // opensearch or clickhouse
	URL      string `toml:"url" mapstructure:"url"`   // opensearch base URL
	Index    string `toml:"index" mapstructure:"index"`
	Addr     string `toml:"addr" mapstructure:"addr"` // clickhouse host:port
	Database string `toml:"database" mapstructure:"database"`
	Table    string `toml:"table" mapstructure:"table"`
	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`
}

// EndpointConfig declares an endpoint to upsert into the registry at
// startup, keyed by name.
type EndpointConfig struct {
	Name     string        `toml:"name" mapstructure:"name"`
	Kind     string        `toml:"kind" mapstructure:"kind"`
	Host     string        `toml:"host" mapstructure:"host"`
	Port     int           `toml:"port" mapstructure:"port"`
	Scheme   string        `toml:"scheme" mapstructure:"scheme"`
	Path     string        `toml:"path" mapstructure:"path"`
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

// Endpoint converts the TOML entry to a normalized endpoint.
func (ec EndpointConfig) Endpoint() (endpoint.Endpoint, error) {
	kind, err := endpoint.ParseKind(ec.Kind)
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("endpoint %q: %w", ec.Name, err)
	}
	ep := endpoint.Endpoint{
		Name:     ec.Name,
		Kind:     kind,
		Host:     ec.Host,
		Port:     ec.Port,
		Scheme:   ec.Scheme,
		Path:     ec.Path,
		Interval: ec.Interval,
	}
	ep.Normalize()
	if err := ep.Validate(); err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("endpoint %q: %w", ec.Name, err)
	}
	return ep, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":8080",
		Store:  StoreConfig{DSN: "proxypulse.db"},
		Probe:  ProbeConfig{Timeout: 10 * time.Second},
	}
}

// Load reads a TOML config file and applies defaults for unset fields.
// PROXYPULSE_VERIFY_URL overrides probe.verify_url from the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	_ = v.BindEnv("probe.verify_url", "PROXYPULSE_VERIFY_URL")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn must not be empty")
	}
	if c.Probe.Timeout < 0 {
		return fmt.Errorf("probe.timeout must not be negative")
	}
	for _, s := range c.Sinks {
		switch s.Type {
		case "opensearch":
			if s.URL == "" || s.Index == "" {
				return fmt.Errorf("opensearch sink needs url and index")
			}
		case "clickhouse":
			if s.Addr == "" {
				return fmt.Errorf("clickhouse sink needs addr")
			}
		default:
			return fmt.Errorf("unknown sink type %q", s.Type)
		}
	}
	for _, ec := range c.Seeds {
		if _, err := ec.Endpoint(); err != nil {
			return err
		}
	}
	return nil
}
