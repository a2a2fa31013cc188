package handlers

import (
	"context"
	"net/http"

	"github.com/MrRikimaru/UserService/internal/cache"

	"github.com/gin-gonic/gin"
)

// Pinger reports store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
	cache *cache.Manager
}

func NewHealthHandler(store Pinger, cacheManager *cache.Manager) *HealthHandler {
	return &HealthHandler{
		store: store,
		cache: cacheManager,
	}
}

// HealthCheck reports the health of the store and each cache tier. A cache
// outage degrades service but does not fail readiness; a store outage does.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	db := "healthy"
	if err := h.store.Ping(ctx); err != nil {
		db = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   statusWord(status),
		"database": db,
		"cache":    h.cache.HealthCheck(ctx),
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}
