package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all HTTP routes.
func NewRouter(trigger *TriggerHandler, health *HealthHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", health.Health)
	router.GET("/trigger", trigger.Trigger)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
