package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "lifelist/internal/log"
)

// DataFileEnv selects the backing data file and wins over the config file.
const DataFileEnv = "DATA_FILE"

// ConfigPathEnv overrides the default config file location.
const ConfigPathEnv = "LIFELIST_CONFIG"

const (
	defaultListen       = "127.0.0.1:8080"
	defaultDataFile     = "example/data.yaml"
	defaultTimezone     = "Local"
	defaultCount        = 10
	defaultDebounce     = 800 * time.Millisecond
	defaultRescan       = "@every 30s"
	defaultLogLevel     = "info"
	DefaultConfigPath   = "lifelist.yaml"
	maxDebounceDuration = 10 * time.Second
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// DataFile is the YAML events document. DATA_FILE overrides it.
	DataFile string `yaml:"data_file" json:"data_file"`

	// Timezone is the IANA zone used when a request does not name one.
	// "Local" means the process zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultCount is the number of occurrences returned when a request
	// omits count.
	DefaultCount int `yaml:"default_count" json:"default_count"`

	// Debounce is the quiet period before a changed data file is parsed
	// again.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`

	// Rescan is a cron spec (e.g. "@every 30s") for stat-polling the data
	// file, for file systems where change notification is unreliable.
	// Empty disables polling.
	Rescan string `yaml:"rescan" json:"rescan"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ImportPrivateHosts lets POST /api/import?url= fetch from loopback,
	// private and link-local addresses and from any port. Off by default.
	ImportPrivateHosts bool `yaml:"import_private_hosts" json:"import_private_hosts"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		DataFile:     defaultDataFile,
		Timezone:     defaultTimezone,
		DefaultCount: defaultCount,
		Debounce:     defaultDebounce,
		Rescan:       defaultRescan,
		LogLevel:     defaultLogLevel,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataFile == "" {
		c.DataFile = defaultDataFile
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultCount <= 0 {
		c.DefaultCount = defaultCount
	}
	if c.Debounce <= 0 || c.Debounce > maxDebounceDuration {
		c.Debounce = defaultDebounce
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if c.Rescan != "" {
		if _, err := cron.ParseStandard(c.Rescan); err != nil {
			return fmt.Errorf("config: rescan %q: %w", c.Rescan, err)
		}
	}
	return nil
}

// Location resolves Timezone; "Local" maps to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == defaultTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ApplyEnv lets DATA_FILE select the backing source.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(DataFileEnv); v != "" {
		c.DataFile = v
	}
}

// ResolvePath picks the config path: an explicit path wins, then
// LIFELIST_CONFIG, then DefaultConfigPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(ConfigPathEnv); v != "" {
		return v
	}
	return DefaultConfigPath
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned. A failed write is logged and the defaults are
//     still returned.
//   - Otherwise the YAML is unmarshalled and normalized.
//
// DATA_FILE is applied last in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				appLog.Warn("could not write default config; continuing with defaults", "config_path", path, "error", err.Error())
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var writeFile = atomic.WriteFile

// Save marshals cfg to YAML and replaces path atomically with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := writeFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
