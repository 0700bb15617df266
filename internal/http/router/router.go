package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	apphttp "booking_concierge_backend/internal/http"
	"booking_concierge_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New builds the Gin engine: shared middleware, the health endpoint and the
// routes of every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())

	engine.GET("/api/health", health(app.Health))

	v1 := engine.Group("/api/v1")
	gateway := v1.Group("")
	gateway.Use(httpkit.GatewayAuthRequired(app.Config))

	ctx := &apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Gateway:            gateway,
		Config:             app.Config,
		WebhookRateLimiter: httpkit.NewWebhookRateLimiter(app.Config, app.Logger),
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func health(checks map[string]apphttp.HealthChecker) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "unavailable"
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
