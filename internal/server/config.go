package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerSettings   `hcl:"server,block"`
	History *HistorySettings `hcl:"history,block"`
	Store   *StoreSettings   `hcl:"store,block"`
	Deck    *DeckSettings    `hcl:"deck,block"`
}

// ServerSettings contains the listener and logging configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// HistorySettings configures the on-disk round log.
type HistorySettings struct {
	Dir                  string `hcl:"dir,optional"`
	FlushIntervalSeconds int    `hcl:"flush_interval_seconds,optional"`
	FlushEntries         int    `hcl:"flush_entries,optional"`
}

// StoreSettings configures the optional Postgres evaluation store. An
// empty database_url leaves the store disabled; the DATABASE_URL
// environment variable takes effect the same way.
type StoreSettings struct {
	DatabaseURL string `hcl:"database_url,optional"`
}

// DeckSettings points at an alternative deck table. Empty means the
// official composition.
type DeckSettings struct {
	Composition string `hcl:"composition,optional"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     7707,
			LogLevel: "info",
		},
		History: &HistorySettings{
			Dir:                  "rounds",
			FlushIntervalSeconds: 10,
			FlushEntries:         100,
		},
	}
}

// LoadConfig loads the service configuration from an HCL file. A
// missing file yields the defaults; a present but unparseable file is
// an error, never silently ignored.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 7707
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.History == nil {
		config.History = &HistorySettings{}
	}
	if config.History.Dir == "" {
		config.History.Dir = "rounds"
	}
	if config.History.FlushIntervalSeconds == 0 {
		config.History.FlushIntervalSeconds = 10
	}
	if config.History.FlushEntries == 0 {
		config.History.FlushEntries = 100
	}

	return &config, nil
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.History != nil {
		if c.History.FlushIntervalSeconds < 1 {
			return fmt.Errorf("history flush interval must be positive, got %d", c.History.FlushIntervalSeconds)
		}
		if c.History.FlushEntries < 1 {
			return fmt.Errorf("history flush entries must be positive, got %d", c.History.FlushEntries)
		}
	}

	return nil
}

// Addr returns the full listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// FlushInterval returns the round-log flush interval as a duration.
func (c *Config) FlushInterval() time.Duration {
	if c.History == nil {
		return 10 * time.Second
	}
	return time.Duration(c.History.FlushIntervalSeconds) * time.Second
}

// DatabaseURL returns the configured DSN, falling back to the
// DATABASE_URL environment variable. Empty disables the store.
func (c *Config) DatabaseURL() string {
	if c.Store != nil && c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	return os.Getenv("DATABASE_URL")
}

// DeckPath returns the configured deck table path, or empty for the
// official composition.
func (c *Config) DeckPath() string {
	if c.Deck == nil {
		return ""
	}
	return c.Deck.Composition
}
