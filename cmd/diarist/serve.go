package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diarist/server/internal/application"
	"github.com/diarist/server/internal/infrastructure/config"
	"github.com/diarist/server/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, atom, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			log.Info("Starting Diarist",
				zap.String("version", version),
				zap.String("addr", cfg.Server.Addr()),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := application.NewApp(ctx, cfg, log)
			if err != nil {
				log.Error("Failed to initialize application", zap.Error(err))
				return err
			}

			// 只有日志级别支持热加载，其余配置需要重启
			if config.Watch(log, func(next *config.Config) {
				if changed, err := logger.ApplyLevel(atom, next.Log.Level); err != nil {
					log.Warn("Ignoring invalid log level", zap.String("level", next.Log.Level), zap.Error(err))
				} else if changed {
					log.Info("Log level changed", zap.String("level", next.Log.Level))
				}
			}) {
				log.Debug("Watching config file", zap.String("path", config.ActiveFile()))
			}

			if err := app.Start(ctx); err != nil {
				log.Error("Failed to start application", zap.Error(err))
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			log.Info("Received shutdown signal", zap.String("signal", sig.String()))

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			return app.Stop(shutdownCtx)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Time allowed for in-flight requests on shutdown")
	return cmd
}
