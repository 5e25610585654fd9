// Package config provides configuration loading, validation and hot-reload
// for the notifykv backends and worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// BackendKind selects which store.Map implementation backs the store.
type BackendKind string

const (
	// BackendMemory is the sharded in-memory backend.
	BackendMemory BackendKind = "memory"
	// BackendBolt is the BoltDB file backend.
	BackendBolt BackendKind = "bolt"
	// BackendBadger is the Badger backend.
	BackendBadger BackendKind = "badger"
)

// EnvPrefix is the prefix of the environment variables that override file
// values: NOTIFYKV_BACKEND, NOTIFYKV_PATH, NOTIFYKV_SHARDS,
// NOTIFYKV_MAILBOX_CAPACITY.
const EnvPrefix = "NOTIFYKV"

var (
	// ErrUnknownBackend is returned when the backend kind is not one of
	// memory, bolt or badger.
	ErrUnknownBackend = errors.New("unknown backend kind")
	// ErrInvalidShards is returned when the shard count is negative.
	ErrInvalidShards = errors.New("shards must not be negative")
	// ErrInvalidMailboxCapacity is returned when the mailbox capacity is
	// negative.
	ErrInvalidMailboxCapacity = errors.New("mailbox capacity must not be negative")
)

// Config describes a notifykv deployment.
type Config struct {
	// Backend selects the store.Map implementation.
	Backend BackendKind `yaml:"backend"`

	// Path is the database file (bolt) or directory (badger). Ignored for
	// the memory backend. An empty badger path selects in-memory mode.
	Path string `yaml:"path"`

	// Shards is the shard count of the memory backend. Zero selects the
	// store package default.
	Shards int `yaml:"shards"`

	// MailboxCapacity bounds the worker's command queue. Zero selects the
	// kv package default.
	MailboxCapacity int `yaml:"mailbox_capacity"`
}

// Default returns the configuration used when no file or environment
// overrides are present: an in-memory backend with package defaults.
func Default() *Config {
	return &Config{
		Backend: BackendMemory,
	}
}

// Load reads the yaml file at path (skipped when path is empty), applies
// environment overrides and validates the result. Values not present in the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBolt, BackendBadger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	if c.Shards < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidShards, c.Shards)
	}

	if c.MailboxCapacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMailboxCapacity, c.MailboxCapacity)
	}

	return nil
}

// loadFromEnv overrides fields from NOTIFYKV_* environment variables.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv(EnvPrefix + "_BACKEND"); v != "" {
		c.Backend = BackendKind(v)
	}

	if v := os.Getenv(EnvPrefix + "_PATH"); v != "" {
		c.Path = v
	}

	if v := os.Getenv(EnvPrefix + "_SHARDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s_SHARDS value %q: %w", EnvPrefix, v, err)
		}

		c.Shards = n
	}

	if v := os.Getenv(EnvPrefix + "_MAILBOX_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s_MAILBOX_CAPACITY value %q: %w", EnvPrefix, v, err)
		}

		c.MailboxCapacity = n
	}

	return nil
}
