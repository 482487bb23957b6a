package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_meta_start"
	cacheHitKey      = "cache_hit"
	backendMetaKey   = "backend"
	requestIDMetaKey = "request_id"
)

// WithResponseMeta seeds the envelope metadata with the request id and the active store backend.
func WithResponseMeta(backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if backend != "" {
			meta[backendMetaKey] = backend
		}
		if id := requestid.Value(c); id != "" {
			meta[requestIDMetaKey] = id
		}
		c.Set(responseMetaKey, meta)
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit marks whether the payload came from the dashboard cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata map with processing_time_ms filled in, or nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if raw, exists := c.Get(responseMetaKey); exists {
		if meta, ok := raw.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
