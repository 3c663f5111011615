package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusync/school-api/pkg/response"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_start"
)

// WithResponseMeta seeds per-request response metadata.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &response.Meta{})
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c).CacheHit = &hit
}

// ExtractMeta returns the response metadata, stamping the elapsed
// processing time at the moment the handler assembles the response.
func ExtractMeta(c *gin.Context) *response.Meta {
	if c == nil {
		return nil
	}
	meta := ensureMeta(c)
	if start, exists := c.Get(requestStartKey); exists {
		if ts, ok := start.(time.Time); ok {
			meta.ProcessingTimeMS = time.Since(ts).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) *response.Meta {
	if c == nil {
		return &response.Meta{}
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(*response.Meta); ok {
			return typed
		}
	}
	meta := &response.Meta{}
	c.Set(responseMetaKey, meta)
	return meta
}
