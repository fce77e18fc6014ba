package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the patsim service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Search   SearchConfig   `yaml:"search"`
	Storage  StorageConfig  `yaml:"storage"`
	Expander ExpanderConfig `yaml:"expander"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int `yaml:"max_body_bytes"`
}

// DatabaseConfig holds Valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Candidate source drivers.
const (
	SourceValkey   = "valkey"
	SourceParquet  = "parquet"
	SourceBigQuery = "bigquery"
)

// SourceConfig selects where reference and candidate fingerprints come from.
type SourceConfig struct {
	Driver     string         `yaml:"driver"` // valkey (default), parquet, bigquery
	ParquetDir string         `yaml:"parquet_dir"`
	BigQuery   BigQueryConfig `yaml:"bigquery"`
}

// BigQueryConfig holds BigQuery source settings.
type BigQueryConfig struct {
	Project    string `yaml:"project"`
	Table      string `yaml:"table"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RankingConfig holds similarity ranking settings.
type RankingConfig struct {
	Dimensions        int      `yaml:"dimensions"`
	K                 int      `yaml:"k"`
	PrefixLen         int      `yaml:"prefix_len"`
	MinScore          *float64 `yaml:"min_score"` // nil = no threshold
	Workers           int      `yaml:"workers"`
	ParallelThreshold int      `yaml:"parallel_threshold"`
	ExcludeSelf       *bool    `yaml:"exclude_self"` // default true
}

// SearchConfig bounds candidate retrieval.
type SearchConfig struct {
	MaxCandidates int `yaml:"max_candidates"`
	MaxK          int `yaml:"max_k"`
}

// StorageConfig holds Valkey key layout settings.
type StorageConfig struct {
	KeyPrefix              string `yaml:"key_prefix"`
	MaxPrefixLen           int    `yaml:"max_prefix_len"`
	FingerprintCacheTTLSec int    `yaml:"fingerprint_cache_ttl_sec"` // 0 disables the cache
}

// ExpanderConfig holds LLM classification-code expansion settings.
type ExpanderConfig struct {
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxCodes    int     `yaml:"max_codes"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// ShouldExcludeSelf reports whether the reference is removed from its own results.
func (r RankingConfig) ShouldExcludeSelf() bool {
	return r.ExcludeSelf == nil || *r.ExcludeSelf
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
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 4 << 20
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Source.Driver == "" {
		c.Source.Driver = SourceValkey
	}
	if c.Source.BigQuery.Table == "" {
		c.Source.BigQuery.Table = "patents-public-data.patents.publications"
	}
	if c.Source.BigQuery.TimeoutSec <= 0 {
		c.Source.BigQuery.TimeoutSec = 120
	}
	if c.Ranking.Dimensions <= 0 {
		c.Ranking.Dimensions = 64
	}
	if c.Ranking.K <= 0 {
		c.Ranking.K = 1000
	}
	if c.Ranking.PrefixLen <= 0 {
		c.Ranking.PrefixLen = 2
	}
	if c.Ranking.Workers <= 0 {
		c.Ranking.Workers = runtime.NumCPU()
	}
	if c.Ranking.ParallelThreshold <= 0 {
		c.Ranking.ParallelThreshold = 50000
	}
	if c.Search.MaxCandidates <= 0 {
		c.Search.MaxCandidates = 200000
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 10000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "patsim:"
	}
	if c.Storage.MaxPrefixLen <= 0 {
		c.Storage.MaxPrefixLen = 4
	}
	if c.Expander.Model == "" {
		c.Expander.Model = "gpt-4o-mini"
	}
	if c.Expander.MaxCodes <= 0 {
		c.Expander.MaxCodes = 10
	}
	if c.Expander.TimeoutSec <= 0 {
		c.Expander.TimeoutSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Source.Driver {
	case SourceValkey:
	case SourceParquet:
		if c.Source.ParquetDir == "" {
			return fmt.Errorf("source.parquet_dir is required for driver %q", SourceParquet)
		}
	case SourceBigQuery:
		if c.Source.BigQuery.Project == "" {
			return fmt.Errorf("source.bigquery.project is required for driver %q", SourceBigQuery)
		}
	default:
		return fmt.Errorf("source.driver must be one of valkey, parquet, bigquery, got %q", c.Source.Driver)
	}
	if c.Source.Driver == SourceValkey && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Ranking.K > c.Search.MaxK {
		return fmt.Errorf("ranking.k must not exceed search.max_k (%d), got %d", c.Search.MaxK, c.Ranking.K)
	}
	if c.Ranking.MinScore != nil && (*c.Ranking.MinScore < -1 || *c.Ranking.MinScore > 1) {
		return fmt.Errorf("ranking.min_score must be within [-1, 1], got %g", *c.Ranking.MinScore)
	}
	if c.Source.Driver == SourceValkey && c.Ranking.PrefixLen > c.Storage.MaxPrefixLen {
		return fmt.Errorf(
			"ranking.prefix_len (%d) exceeds storage.max_prefix_len (%d)",
			c.Ranking.PrefixLen, c.Storage.MaxPrefixLen,
		)
	}
	if c.Expander.Enabled && c.Expander.APIKey == "" {
		return fmt.Errorf("expander.api_key is required when expander is enabled")
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
