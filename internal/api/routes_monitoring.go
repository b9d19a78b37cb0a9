package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsehub/pulsehub/internal/app"
)

func registerMonitoringRoutes(engine *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}

	endpoint := cfg.Monitoring.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	engine.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
