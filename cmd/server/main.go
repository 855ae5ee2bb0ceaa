package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/impostorgames/room-server/internal/app"
	"github.com/impostorgames/room-server/internal/config"
	"github.com/impostorgames/room-server/internal/log"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "room-server",
		Short:         "Authoritative room server for Impostor Games.",
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New(logLevel)

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting room server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(&cfg, logger)
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "path to config file (env: IMPOSTOR_CONFIG_DEFAULT_PATH)")
	fs.StringVarP(&addr, "addr", "a", "", "HTTP listen address (overrides config)")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	return cmd
}
