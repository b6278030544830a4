// Package api serves the advisor over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"degree_planner/internal/service"
)

// Config holds the router settings.
type Config struct {
	// Token is the bearer token required on API routes. Empty disables auth.
	Token string
}

// NewRouter builds the gin engine. Health and metrics are public.
func NewRouter(svc *service.AdvisorService, logger logr.Logger, cfg Config) *gin.Engine {
	h := &handlers{svc: svc}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger), countRequests())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/health", h.health)

	secured := v1.Group("")
	secured.Use(bearerAuth(cfg.Token))
	{
		secured.GET("/course-catalog", h.courseCatalog)
		secured.POST("/recommendations", h.recommend)
		secured.POST("/plans", h.plan)

		students := secured.Group("/students/:id")
		{
			students.GET("/critical-path", h.criticalPath)
			students.GET("/bottlenecks", h.bottlenecks)
			students.GET("/progress", h.progress)
		}
	}
	return router
}
