package host

import (
	"context"
	"net/http"
	"time"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type RouterConfig struct {
	Mode    string
	Checks  []ReadinessCheck
	Version string
}

// NewRouter wires health, readiness, metrics and the authenticated
// onboarding routes.
func NewRouter(cfg RouterConfig, handler *Handler, verifier auth.Verifier, log logger.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(RequestLogger(log), Recovery(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   cfg.Version,
			"timestamp": time.Now().UTC(),
		})
	})
	r.GET("/ready", readinessHandler(cfg.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1/onboarding")
	api.Use(AuthMiddleware(verifier, log))
	handler.RegisterRoutes(api)

	return r
}

func readinessHandler(checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		ready := true
		for _, chk := range checks {
			if err := chk.Check(ctx); err != nil {
				results[chk.Name] = err.Error()
				ready = false
				continue
			}
			results[chk.Name] = "ok"
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
