// Package config loads the database connection settings consumed by the
// rest of the module. Settings come from a YAML or JSON file, from
// environment variables, or from both layered over the built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the connection parameters for one MySQL database plus the
// pool sizing knobs. The character set is fixed to utf8mb4 by the
// connection layer and is deliberately not configurable here.
type Config struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"db" json:"db"`

	Pool PoolConfig `yaml:"pool" json:"pool"`
}

// PoolConfig controls the shared connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// Default returns a configuration with sensible defaults. Host, user and
// database name have no useful defaults and must come from a file or the
// environment.
func Default() Config {
	return Config{
		Host: "localhost",
		Port: 3306,
		Pool: PoolConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
	}
}

// LoadFile loads configuration from a YAML or JSON file, layered over the
// defaults. The format is chosen by the file extension (.yaml, .yml or
// .json).
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".json":
		return LoadJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadYAML parses YAML data over the defaults and validates the result.
func LoadYAML(data []byte) (Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadJSON parses JSON data over the defaults and validates the result.
// The flat {"host", "port", "user", "db", "password"} shape used by older
// deployments parses unchanged.
func LoadJSON(data []byte) (Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadEnv builds a configuration from TABLEDB_* environment variables
// layered over the defaults.
//
//   - TABLEDB_HOST, TABLEDB_PORT
//   - TABLEDB_USER, TABLEDB_PASSWORD, TABLEDB_DB
//   - TABLEDB_MAX_OPEN_CONNS, TABLEDB_MAX_IDLE_CONNS
//   - TABLEDB_CONNECT_TIMEOUT (a time.Duration string, e.g. "5s")
func LoadEnv() (Config, error) {
	cfg := Default()

	if val := os.Getenv("TABLEDB_HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("TABLEDB_PORT"); val != "" {
		var port int
		if _, err := fmt.Sscanf(val, "%d", &port); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("TABLEDB_USER"); val != "" {
		cfg.User = val
	}
	if val := os.Getenv("TABLEDB_PASSWORD"); val != "" {
		cfg.Password = val
	}
	if val := os.Getenv("TABLEDB_DB"); val != "" {
		cfg.Database = val
	}
	if val := os.Getenv("TABLEDB_MAX_OPEN_CONNS"); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			cfg.Pool.MaxOpenConns = n
		}
	}
	if val := os.Getenv("TABLEDB_MAX_IDLE_CONNS"); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			cfg.Pool.MaxIdleConns = n
		}
	}
	if val := os.Getenv("TABLEDB_CONNECT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pool.ConnectTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and returns an error if it is not
// usable for opening a pool.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("db is required")
	}
	if c.Pool.MaxOpenConns <= 0 {
		return fmt.Errorf("pool.max_open_conns must be greater than 0")
	}
	if c.Pool.ConnectTimeout <= 0 {
		return fmt.Errorf("pool.connect_timeout must be greater than 0")
	}
	return nil
}
