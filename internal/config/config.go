// Package config loads flint configuration: defaults, then an optional YAML
// file, then FLINT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete flint configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Assemble AssembleConfig `koanf:"assemble"`
	Search   SearchConfig   `koanf:"search"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DataConfig holds snapshot storage configuration.
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// AssembleConfig holds context assembly defaults applied when a request
// leaves an option unset.
type AssembleConfig struct {
	LocalWindow        int `koanf:"local_window"`
	MaxRelatedSections int `koanf:"max_related_sections"`
	MaxSectionLength   int `koanf:"max_section_length"`
}

// SearchConfig holds memory search defaults.
type SearchConfig struct {
	TopK       int     `koanf:"top_k"`
	MinScore   float64 `koanf:"min_score"`
	MaxJaccard float64 `koanf:"max_jaccard"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Assemble: AssembleConfig{
			LocalWindow:        1500,
			MaxRelatedSections: 3,
			MaxSectionLength:   250,
		},
		Search: SearchConfig{
			TopK:       5,
			MaxJaccard: 0.8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at
// configPath (missing file is not an error when the path is empty), and
// FLINT_* environment variables.
//
// Environment variables map to dotted keys by stripping the prefix,
// lowercasing, and splitting on the first underscore:
//
//	FLINT_SERVER_ADDR              -> server.addr
//	FLINT_SERVER_SHUTDOWN_TIMEOUT  -> server.shutdown_timeout
//	FLINT_ASSEMBLE_LOCAL_WINDOW    -> assemble.local_window
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("FLINT_", ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, "FLINT_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
