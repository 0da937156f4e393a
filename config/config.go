// Package config holds the client configuration: API endpoint, request
// timeout, listing defaults and where session state is persisted.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the resolved client configuration. Field tags serve viper
// (mapstructure), the YAML/JSON config file and the validator.
type Config struct {
	APIURL    string        `mapstructure:"api-url" yaml:"api-url" json:"api-url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	PerPage   int           `mapstructure:"per-page" yaml:"per-page" json:"per-page" validate:"min=1,max=100"`
	Window    int           `mapstructure:"window" yaml:"window" json:"window" validate:"min=1"`
	Store     string        `mapstructure:"store" yaml:"store" json:"store" validate:"oneof=memory mem file redis"`
	StoreFile string        `mapstructure:"store-file" yaml:"store-file" json:"store-file" validate:"required_if=Store file"`
	RedisURL  string        `mapstructure:"redis-url" yaml:"redis-url" json:"redis-url" validate:"required_if=Store redis"`
	LogLevel  string        `mapstructure:"log-level" yaml:"log-level" json:"log-level" validate:"oneof=debug info warn warning error"`
}

var validate = validator.New()

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		APIURL:    "http://localhost:5000",
		Timeout:   10 * time.Second,
		PerPage:   12,
		Window:    5,
		Store:     "file",
		StoreFile: "data/session.json",
		RedisURL:  "redis://localhost:6379/0",
		LogLevel:  "info",
	}
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StoreLocation returns the file path or redis URL for the configured store kind.
func (c *Config) StoreLocation() string {
	switch c.Store {
	case "file":
		return c.StoreFile
	case "redis":
		return c.RedisURL
	default:
		return ""
	}
}

// LoadFromReader decodes a YAML or JSON document over the defaults.
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	cfg := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(cfg)
	case "json":
		err = json.NewDecoder(r).Decode(cfg)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML or JSON depending on the
// file extension.
func (c *Config) SaveToFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(file)
		encoder.SetIndent(2)
		defer encoder.Close()
		err = encoder.Encode(c)
	case ".json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	default:
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}
