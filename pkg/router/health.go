package router

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"direct-chat-relay/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	checker := health.NewChecker(r.Logger)

	checker.RegisterCheck("database", func() (health.Status, string, error) {
		if err := r.Container.DB.Exec("SELECT 1").Error; err != nil {
			return health.StatusDown, "Database unreachable", err
		}
		return health.StatusUp, "Database reachable", nil
	})

	checker.RegisterCheck("websocket", func() (health.Status, string, error) {
		return health.StatusUp, "Relay running", nil
	})

	healthHandler := func(c *gin.Context) {
		components := checker.RunChecks()

		status := http.StatusOK
		overall := "ok"
		if !checker.Healthy() {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(status, gin.H{
			"status":     overall,
			"version":    os.Getenv("APP_VERSION"),
			"timestamp":  time.Now().Format(time.RFC3339),
			"components": components,
			"websocket": gin.H{
				"active_connections": r.Hub.ActiveConnections(),
				"identified_users":   r.Hub.Registry().Count(),
			},
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)
}
