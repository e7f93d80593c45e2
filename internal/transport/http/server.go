package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Raj5489/Share-Me/internal/config"
	"github.com/Raj5489/Share-Me/internal/core"
	"github.com/Raj5489/Share-Me/internal/store"
)

// NewServer builds the HTTP server: liveness endpoint, transfer
// history API and the WebSocket relay route.
func NewServer(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))

	engine.GET("/health", healthHandler())

	api := NewAPIHandlers(st, logger)
	engine.GET("/api/transfers", api.ListTransfers)

	ws := NewWSHandler(hub, logger)
	engine.GET("/ws", ws.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
