package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elnurm/ip2data/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	api := router.Group("/api")
	{
		api.GET("/all", handler.Dashboard)
		api.POST("/session/start", handler.StartSession)
		api.POST("/session/location", handler.UpdateLocation)
		api.POST("/chat", handler.Chat)
		api.GET("/stops/nearby", handler.NearbyStops)
		api.GET("/bus/:number", handler.BusInfo)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
