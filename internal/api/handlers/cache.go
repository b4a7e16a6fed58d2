package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/cache"
)

// CacheHandler exposes operator controls over the forecast cache.
type CacheHandler struct {
	store  cache.Store
	logger *logrus.Logger
}

func NewCacheHandler(store cache.Store, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{store: store, logger: logger}
}

// ClearCache handles DELETE /api/v1/cache, dropping every cached forecast.
// Used after a model upgrade, when stale predictions must not be served.
func (h *CacheHandler) ClearCache(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to clear forecast cache")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cache cleared"})
}

// EvictEntry handles DELETE /api/v1/cache/:key for targeted invalidation.
func (h *CacheHandler) EvictEntry(c *gin.Context) {
	key := c.Param("key")
	if err := h.store.Evict(c.Request.Context(), key); err != nil {
		h.logger.WithError(err).WithField("cache_key", key).Error("Failed to evict cache entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evict cache entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "evicted", "key": key})
}
