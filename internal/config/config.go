package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LedgerBackendFile  = "file"
	LedgerBackendRedis = "redis"

	LedgerModeBatch  = "batch"
	LedgerModeAppend = "append"

	EnvPrefix = "FETCHIMAGES_"

	defaultOutputDir      = "Fetched_Images"
	defaultLedgerFileName = "hashes.txt"
	defaultRedisURL       = "redis://localhost:6379/0"
	defaultRedisKey       = "fetchimages:hashes"
	defaultTimeout        = 30 * time.Second
	defaultProbeTimeout   = 10 * time.Second
	defaultUserAgent      = "fetchimages/1.0"

	// DefaultMaxSize is the declared size at or above which a resource is not fetched.
	DefaultMaxSize int64 = 10_000_000
)

type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxSize      int64         `yaml:"max_size"`
}

type LedgerConfig struct {
	Backend  string `yaml:"backend"`
	FileName string `yaml:"file_name"`
	Mode     string `yaml:"mode"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

type MetricsConfig struct {
	TextFile string `yaml:"textfile"`
}

type Config struct {
	OutputDir string        `yaml:"output_dir"`
	LogLevel  string        `yaml:"log_level"`
	HTTP      HTTPConfig    `yaml:"http"`
	Ledger    LedgerConfig  `yaml:"ledger"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

func (c *Config) SetDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}

	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaultTimeout
	}

	if c.HTTP.ProbeTimeout <= 0 {
		c.HTTP.ProbeTimeout = defaultProbeTimeout
	}

	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}

	if c.HTTP.MaxSize <= 0 {
		c.HTTP.MaxSize = DefaultMaxSize
	}

	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerBackendFile
	}

	if c.Ledger.FileName == "" {
		c.Ledger.FileName = defaultLedgerFileName
	}

	if c.Ledger.Mode == "" {
		c.Ledger.Mode = LedgerModeBatch
	}

	if c.Ledger.RedisURL == "" {
		c.Ledger.RedisURL = defaultRedisURL
	}

	if c.Ledger.RedisKey == "" {
		c.Ledger.RedisKey = defaultRedisKey
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	switch c.Ledger.Backend {
	case LedgerBackendFile, LedgerBackendRedis:
	default:
		return fmt.Errorf("unknown ledger backend: %q", c.Ledger.Backend)
	}

	switch c.Ledger.Mode {
	case LedgerModeBatch, LedgerModeAppend:
	default:
		return fmt.Errorf("unknown ledger mode: %q", c.Ledger.Mode)
	}

	return nil
}

// Load reads the yaml file at path, then applies .env and FETCHIMAGES_* overrides.
// A missing file is not an error when optional is true.
func Load(path string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && optional:
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"OUTPUT_DIR":       &c.OutputDir,
		"LOG_LEVEL":        &c.LogLevel,
		"USER_AGENT":       &c.HTTP.UserAgent,
		"LEDGER_BACKEND":   &c.Ledger.Backend,
		"LEDGER_FILE_NAME": &c.Ledger.FileName,
		"LEDGER_MODE":      &c.Ledger.Mode,
		"REDIS_URL":        &c.Ledger.RedisURL,
		"REDIS_KEY":        &c.Ledger.RedisKey,
		"METRICS_TEXTFILE": &c.Metrics.TextFile,
	}

	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":       &c.HTTP.Timeout,
		"PROBE_TIMEOUT": &c.HTTP.ProbeTimeout,
	}

	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}

		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("cannot parse %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "MAX_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse %sMAX_SIZE: %w", EnvPrefix, err)
		}
		c.HTTP.MaxSize = n
	}

	return nil
}
