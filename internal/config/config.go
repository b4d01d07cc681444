package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/page-analyzer/internal/logging"
	"github.com/menta2k/page-analyzer/pkg/processing"
	"github.com/menta2k/page-analyzer/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Fetch   FetchConfig    `json:"fetch" yaml:"fetch"`
	Cropper CropperConfig  `json:"cropper" yaml:"cropper"`
	Output  OutputConfig   `json:"output" yaml:"output"`
	Cache   CacheConfig    `json:"cache" yaml:"cache"`
	Server  ServerConfig   `json:"server" yaml:"server"`
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// FetchConfig holds configuration for page downloads
type FetchConfig struct {
	Timeout          string            `json:"timeout" yaml:"timeout"`
	UserAgent        string            `json:"user_agent" yaml:"user_agent"`
	MaxBytes         int64             `json:"max_bytes" yaml:"max_bytes"`
	CheckContentType bool              `json:"check_content_type" yaml:"check_content_type"`
	Headers          map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// CropperConfig holds configuration for border cropping
type CropperConfig struct {
	Workers int `json:"workers" yaml:"workers"`
	// MinPageSize is the smallest width and height a page must have to be cropped
	MinPageSize int `json:"min_page_size" yaml:"min_page_size"`
}

// OutputConfig controls how cropped pages are re-encoded
type OutputConfig struct {
	Format   string `json:"format" yaml:"format"`
	Quality  int    `json:"quality" yaml:"quality"`
	Lossless bool   `json:"lossless" yaml:"lossless"`
}

// CacheConfig locates the on-disk page caches
type CacheConfig struct {
	Root string `json:"root" yaml:"root"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes"`
	AllowedHosts []string `json:"allowed_hosts,omitempty" yaml:"allowed_hosts,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:  "30s",
			MaxBytes: 0,
		},
		Cropper: CropperConfig{
			Workers:     0,
			MinPageSize: 1,
		},
		Output: OutputConfig{
			Format:  "webp",
			Quality: 100,
		},
		Cache: CacheConfig{
			Root: defaultCacheRoot(),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 32 << 20,
		},
		Logging: logging.Config{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields missing
// from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isJSON(filename) {
		err = json.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML or JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isJSON(filename) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.FetchTimeout(); err != nil {
		return fmt.Errorf("fetch.timeout: %w", err)
	}

	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes cannot be negative")
	}

	if c.Cropper.Workers < 0 {
		return fmt.Errorf("cropper.workers cannot be negative")
	}

	if c.Cropper.MinPageSize < 0 {
		return fmt.Errorf("cropper.min_page_size cannot be negative")
	}

	switch processing.NormalizeFormat(c.Output.Format) {
	case "webp", "png", "jpg":
	default:
		return fmt.Errorf("output.format must be one of webp, png, jpg")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	for _, host := range c.Server.AllowedHosts {
		if host == "" || strings.ContainsAny(host, "/:") {
			return fmt.Errorf("server.allowed_hosts: %q is not a host name", host)
		}
	}

	return nil
}

// FetchTimeout parses fetch.timeout, an empty value meaning no timeout
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.Fetch.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Fetch.Timeout)
}

// EncodeOptions converts the output section
func (c *Config) EncodeOptions() types.EncodeOptions {
	return types.EncodeOptions{
		Format:   processing.NormalizeFormat(c.Output.Format),
		Quality:  c.Output.Quality,
		Lossless: c.Output.Lossless,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "page-analyzer", "config.yaml")
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "./cache"
	}
	return filepath.Join(dir, "page-analyzer")
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
