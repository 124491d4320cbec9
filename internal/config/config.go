package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".scriptshield"
	DefaultConfigName = "config"
	DefaultLogFile    = "audit.jsonl"
	DefaultPacksDir   = "packs"
	DefaultStoreDir   = "results"

	// EnvPrefix namespaces environment overrides, e.g. SCRIPTSHIELD_SERVER_ADDR.
	EnvPrefix = "SCRIPTSHIELD"
)

// Config is the resolved runtime configuration.
type Config struct {
	ConfigDir string
	// ConfigFile is the file that was read, empty when running on defaults.
	ConfigFile string

	LogPath  string
	LogLevel string
	PacksDir string

	Store    StoreConfig
	Analysis AnalysisConfig
	Server   ServerConfig
}

// StoreConfig controls result persistence.
type StoreConfig struct {
	Path string
	// Enabled makes "serve" persist every result. The CLI opts in per run.
	Enabled bool
}

// AnalysisConfig bounds a single analysis run.
type AnalysisConfig struct {
	MaxSizeBytes int64
	Timeout      time.Duration
	Workers      int
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr            string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Load resolves configuration from defaults, the YAML config file and
// SCRIPTSHIELD_* environment variables, in increasing precedence.
// configFile and logPath are command-line overrides and may be empty.
func Load(configFile, logPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		ConfigDir:  configDir,
		ConfigFile: v.ConfigFileUsed(),
		LogPath:    v.GetString("log.audit_path"),
		LogLevel:   v.GetString("log.level"),
		PacksDir:   v.GetString("packs.dir"),
		Store: StoreConfig{
			Path:    v.GetString("store.path"),
			Enabled: v.GetBool("store.enabled"),
		},
		Analysis: AnalysisConfig{
			MaxSizeBytes: v.GetInt64("analysis.max_size_bytes"),
			Timeout:      v.GetDuration("analysis.timeout"),
			Workers:      v.GetInt("analysis.workers"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			RateLimitRPS:    v.GetFloat64("server.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("server.rate_limit_burst"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("log.audit_path", filepath.Join(configDir, DefaultLogFile))
	v.SetDefault("log.level", "info")
	v.SetDefault("packs.dir", filepath.Join(configDir, DefaultPacksDir))
	v.SetDefault("store.path", filepath.Join(configDir, DefaultStoreDir))
	v.SetDefault("store.enabled", true)
	v.SetDefault("analysis.max_size_bytes", 10<<20)
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.shutdown_timeout", "10s")
}

func (c *Config) validate() error {
	switch {
	case c.Analysis.MaxSizeBytes <= 0:
		return fmt.Errorf("analysis.max_size_bytes must be positive, got %d", c.Analysis.MaxSizeBytes)
	case c.Analysis.Workers <= 0:
		return fmt.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers)
	case c.Analysis.Timeout < 0:
		return fmt.Errorf("analysis.timeout must not be negative, got %s", c.Analysis.Timeout)
	case c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0:
		return errors.New("server rate limits must not be negative")
	}
	return nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
