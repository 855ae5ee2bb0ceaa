package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/impostorgames/room-server/internal/auth"
	"github.com/impostorgames/room-server/internal/config"
	"github.com/impostorgames/room-server/internal/core"
	transporthttp "github.com/impostorgames/room-server/internal/transport/http"
	"github.com/impostorgames/room-server/internal/utils"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	secret := cfg.SessionSecret
	if secret == "" {
		secret = utils.NewSecret(32)
		logger.Warn().Msg("no session_secret configured, resume tokens will not survive restarts")
	}
	sessions := auth.NewService(auth.Config{
		Secret: []byte(secret),
		Issuer: "impostor-room-server",
	})

	registry := core.NewRegistry(core.RegistryOptions{
		DefaultSettings: core.Settings{
			TimerSeconds: cfg.Room.DefaultTimerSeconds,
			MaxPlayers:   cfg.Room.DefaultMaxPlayers,
		},
		ChatLogLimit: cfg.Room.ChatLogLimit,
	}, *logger)

	server := transporthttp.NewServer(registry, sessions, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup terminates every active room so members get room_terminated.
func (a *App) cleanup() {
	a.registry.Shutdown()
	a.log.Info().Msg("rooms closed")
}
