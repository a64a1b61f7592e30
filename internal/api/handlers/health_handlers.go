package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/softstake/softstake_service/internal/infrastructure/cache"
	"github.com/softstake/softstake_service/internal/infrastructure/database"
	"github.com/softstake/softstake_service/pkg/logger"
)

// HealthHandlers handles liveness and readiness probes
type HealthHandlers struct {
	db        *sqlx.DB
	cache     cache.RedisClient
	logger    *logger.Logger
	version   string
	startTime time.Time
}

// NewHealthHandlers creates a new HealthHandlers instance
func NewHealthHandlers(db *sqlx.DB, redis cache.RedisClient, log *logger.Logger, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		cache:     redis,
		logger:    log,
		version:   version,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health/liveness. It only proves the process is
// serving requests.
func (h *HealthHandlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
	})
}

// Readiness handles GET /health/readiness and checks the dependencies
// requests actually need.
func (h *HealthHandlers) Readiness(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := database.HealthCheck(h.db); err != nil {
		h.logger.Error("database health check failed", "error", err)
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		h.logger.Error("redis health check failed", "error", err)
		checks["redis"] = "unhealthy"
		healthy = false
	} else {
		checks["redis"] = "healthy"
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
