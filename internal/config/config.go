// Package config provides tool-level configuration for refl2col.
// Flags override environment variables, which override the config file,
// which overrides the built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DestType selects the mirror destination backend.
type DestType string

const (
	DestNone  DestType = ""
	DestLocal DestType = "local"
	DestS3    DestType = "s3"
)

// DestConfig describes where converted files are mirrored after a
// successful write.
type DestConfig struct {
	// Type is "local" or "s3"; empty disables mirroring
	Type DestType `json:"type" yaml:"type"`

	// Path is the base directory for the local backend
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to object paths at the destination
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 backend settings
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// Config holds the converter's tool-level defaults.
type Config struct {
	// SpecPath points at a custom conversion spec file; empty uses the
	// built-in default table
	SpecPath string `json:"spec" yaml:"spec"`

	// ReportDB is the run-catalog database path; empty disables reporting
	ReportDB string `json:"report_db" yaml:"report_db"`

	// Dest configures output mirroring
	Dest DestConfig `json:"dest" yaml:"dest"`

	// Verbose enables progress diagnostics
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overlays configuration from environment variables.
// Environment variables use the REFLBASE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("REFLBASE_SPEC"); v != "" {
		cfg.SpecPath = v
	}
	if v := os.Getenv("REFLBASE_REPORT_DB"); v != "" {
		cfg.ReportDB = v
	}
	if v := os.Getenv("REFLBASE_DEST_TYPE"); v != "" {
		cfg.Dest.Type = DestType(v)
	}
	if v := os.Getenv("REFLBASE_DEST_PATH"); v != "" {
		cfg.Dest.Path = v
	}
	if v := os.Getenv("REFLBASE_DEST_PREFIX"); v != "" {
		cfg.Dest.Prefix = v
	}
	if v := os.Getenv("REFLBASE_S3_BUCKET"); v != "" {
		cfg.Dest.Bucket = v
	}
	if v := os.Getenv("REFLBASE_S3_REGION"); v != "" {
		cfg.Dest.Region = v
	}
	if v := os.Getenv("REFLBASE_S3_ENDPOINT"); v != "" {
		cfg.Dest.Endpoint = v
	}
	if v := os.Getenv("REFLBASE_VERBOSE"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Verbose = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Dest.Type {
	case DestNone, DestLocal, DestS3:
	default:
		return fmt.Errorf("invalid dest type: %s (must be local or s3)", c.Dest.Type)
	}
	if c.Dest.Type == DestLocal && c.Dest.Path == "" {
		return fmt.Errorf("dest.path is required when dest type is local")
	}
	if c.Dest.Type == DestS3 && c.Dest.Bucket == "" {
		return fmt.Errorf("dest.bucket is required when dest type is s3")
	}
	return nil
}
