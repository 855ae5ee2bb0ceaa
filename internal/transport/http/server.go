package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/impostorgames/room-server/internal/auth"
	"github.com/impostorgames/room-server/internal/config"
	"github.com/impostorgames/room-server/internal/core"
)

// NewServer builds the HTTP server: health probe plus the WebSocket endpoint.
func NewServer(registry *core.Registry, sessions *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	// The websocket upgrade hijacks the connection, which needs the raw
	// ResponseWriter, so /ws is mounted on the mux outside gin.
	wsHandler := NewWSHandler(registry, sessions, logger)
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
