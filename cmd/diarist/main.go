package main

import (
	"fmt"
	"os"

	"github.com/diarist/server/internal/infrastructure/config"
	"github.com/diarist/server/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diarist",
	Short: "Diarist journaling server",
	Long: `Diarist serves the journaling API: diary entries, an AI writing assistant
that streams replies, generates thumbnails and proposes edits, and GitHub
commit import. Configuration comes from ~/.diarist/config.yaml, ./config.yaml
and DIARIST_* environment variables.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewHistoryCommand(),
		NewVersionCommand(),
	)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug,info,warn,error), overrides log.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (json,console), overrides log.format")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 读取配置并创建日志。flag 优先于配置文件。
func loadConfig() (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	log, atom, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, atom, nil
}
