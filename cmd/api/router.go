package main

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/ratelimit"
	"github.com/richxcame/gigmarket/pkg/storage"
)

// maxRequestBytes leaves room for a report with several evidence files.
const maxRequestBytes = 5*storage.MaxEvidenceBytes + 1<<20

// routeRegistrar is implemented by every domain handler
type routeRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// newRouter builds the engine with the shared middleware chain, the health
// endpoints and every handler mounted under an authenticated /api/v1.
func newRouter(cfg *config.Config, limiter *ratelimit.Limiter, readiness map[string]func() error, handlers ...routeRegistrar) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(cors.New(corsConfig(cfg.Server)))

	router.GET("/healthz", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/health/live", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, serviceVersion, readiness))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(requestTimeout(cfg.Server.RequestTimeout))
	api.Use(middleware.MaxBodySize(maxRequestBytes))
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	if limiter != nil {
		api.Use(ratelimit.Middleware(limiter, "api", limiter.DefaultRule(), ratelimit.UserIdentity))
	}

	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return router
}

func corsConfig(server config.ServerConfig) cors.Config {
	c := cors.DefaultConfig()
	if origins := server.AllowedOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowAllOrigins = true
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	c.MaxAge = 12 * time.Hour
	return c
}

func requestTimeout(seconds int) gin.HandlerFunc {
	if seconds <= 0 {
		seconds = 25
	}
	return timeout.New(
		timeout.WithTimeout(time.Duration(seconds)*time.Second),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}
