package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatch-service/internal/logging"
)

// NewRouter wires the status endpoints, the metrics scrape endpoint and the
// websocket upgrade route.
func NewRouter(logger *logging.Logger, h *Handler, ws http.Handler, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/", h.Root)
	r.GET("/status", h.Status)
	r.GET("/health", h.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if ws != nil {
		r.GET("/ws", gin.WrapH(ws))
	}

	api := r.Group("/api/v0")
	{
		api.GET("/alerts/:id/responses", h.GetAlertResponses)
	}
	return r
}
