package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/scriptshield/internal/analyzer"
	"github.com/gzhole/scriptshield/internal/config"
	"github.com/gzhole/scriptshield/internal/logger"
	"github.com/gzhole/scriptshield/internal/threat"
)

var (
	configPath string
	logPath    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "scriptshield",
	Short: "ScriptShield - static threat scoring for shell scripts",
	Long: `ScriptShield reads a shell script without executing it and reports what it
contains: file metadata, hashes, embedded indicators (URLs, IPs, domains),
the commands it uses, matched threat-pattern families, behavioral traits,
and a fused risk score with a category and recommendation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.scriptshield/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.scriptshield/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Operational log level: debug, info, warn, error")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig applies the persistent flag overrides on top of config.Load.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zl, err := logger.NewZap(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return zl, nil
}

// loadCatalog merges the packs in packsDir into the built-in catalog.
// Packs that fail to load are logged and skipped.
func loadCatalog(packsDir string, zl *zap.Logger) (*threat.Catalog, []threat.PackInfo, error) {
	catalog, infos, err := threat.LoadPacks(packsDir, threat.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packs: %w", err)
	}
	for _, info := range infos {
		if info.Err != nil {
			zl.Warn("skipping pack", zap.String("pack", info.Name), zap.Error(info.Err))
		}
	}
	return catalog, infos, nil
}

func newEngine(cfg *config.Config, zl *zap.Logger) (*analyzer.Engine, error) {
	catalog, _, err := loadCatalog(cfg.PacksDir, zl)
	if err != nil {
		return nil, err
	}
	return analyzer.NewEngine(catalog, analyzer.WithMaxSize(cfg.Analysis.MaxSizeBytes)), nil
}
