package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the refiner configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Pelias   PeliasConfig   `yaml:"pelias"`
	Agencies AgenciesConfig `yaml:"agencies"`
	Refine   RefineConfig   `yaml:"refine"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotated log file, written alongside stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	Hostname        string `yaml:"hostname"` // echoed in responses (default: os.Hostname)
}

// PeliasConfig locates the upstream geocoder.
type PeliasConfig struct {
	BaseURL    string `yaml:"base_url"`
	PathPrefix string `yaml:"path_prefix"` // prepended to /<api> (default: /v1)
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

// AgenciesConfig names the transit agencies whose stops the geocoder indexes.
type AgenciesConfig struct {
	Primary     string   `yaml:"primary"`
	PrimaryName string   `yaml:"primary_name"`
	List        []string `yaml:"list"`
}

// RefineConfig tunes result refinement.
type RefineConfig struct {
	MinBatchSize int `yaml:"min_batch_size"`
}

// CacheConfig holds upstream response cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	SharedTTLSec     int      `yaml:"shared_ttl_sec"`
	MemorySize       int      `yaml:"memory_size"`
	CellLevel        int      `yaml:"cell_level"` // S2 snapping for reverse keys; 0 disables
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheValkey = "valkey"
)

// Shared reports whether the driver uses a Redis-protocol store.
func (c CacheConfig) Shared() bool {
	return c.Driver == CacheRedis || c.Driver == CacheValkey
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Pelias.PathPrefix == "" {
		c.Pelias.PathPrefix = "/v1"
	}
	if c.Pelias.TimeoutSec <= 0 {
		c.Pelias.TimeoutSec = 10
	}
	if c.Agencies.Primary == "" {
		c.Agencies.Primary = "TRIMET"
	}
	if c.Agencies.PrimaryName == "" {
		c.Agencies.PrimaryName = "TriMet"
	}
	if len(c.Agencies.List) == 0 {
		c.Agencies.List = []string{"TRIMET", "CTRAN", "SAM", "SMART", "MULT", "WAPARK", "CTRAN_FLEX"}
	}
	if c.Refine.MinBatchSize <= 0 {
		c.Refine.MinBatchSize = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheMemory
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.SharedTTLSec <= 0 {
		c.Cache.SharedTTLSec = 3600
	}
	if c.Cache.MemorySize <= 0 {
		c.Cache.MemorySize = 4096
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 100
		}
		if c.Logging.MaxBackups <= 0 {
			c.Logging.MaxBackups = 5
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 14
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Pelias.BaseURL == "" {
		return fmt.Errorf("pelias.base_url is required")
	}
	if !slices.ContainsFunc(c.Agencies.List, func(a string) bool { return strings.EqualFold(a, c.Agencies.Primary) }) {
		return fmt.Errorf("agencies.primary %q must be in agencies.list", c.Agencies.Primary)
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis, CacheValkey:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis, valkey, got %q", c.Cache.Driver)
	}
	if c.Cache.CellLevel < 0 || c.Cache.CellLevel > 30 {
		return fmt.Errorf("cache.cell_level must be between 0 and 30, got %d", c.Cache.CellLevel)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
