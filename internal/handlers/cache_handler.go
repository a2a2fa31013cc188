package handlers

import (
	"net/http"

	"github.com/MrRikimaru/UserService/internal/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheHandler exposes the cache admin endpoints. These are operational
// tools: they touch the cache directly, not through the services.
type CacheHandler struct {
	cache   *cache.Manager
	evictor *cache.Invalidator
	logger  *zap.Logger
}

func NewCacheHandler(manager *cache.Manager, evictor *cache.Invalidator, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		cache:   manager,
		evictor: evictor,
		logger:  logger,
	}
}

func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *CacheHandler) ClearUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	h.evictor.EvictUserViews(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared for user", "userId": userID})
}

func (h *CacheHandler) ClearAll(c *gin.Context) {
	removed, err := h.cache.Clear(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("Cache cleared by admin request", zap.Int("removedKeys", removed))
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared", "removedKeys": removed})
}

// LogState writes the current cache keyspace to the service log and returns
// a summary.
func (h *CacheHandler) LogState(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	for view, keys := range stats.KeysByView {
		h.logger.Info("Cache state",
			zap.String("view", string(view)),
			zap.Int("entries", len(keys)),
			zap.Strings("keys", keys))
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache state logged", "totalKeys": stats.TotalKeys})
}
