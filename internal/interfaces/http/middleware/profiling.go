package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling labels attached to CPU samples taken while a request runs
const (
	ProfilingLabelRoute   = "route"
	ProfilingLabelMethod  = "method"
	ProfilingLabelStoreID = "store_id"
)

// Profiling tags the request goroutine with pyroscope labels so profiles
// can be filtered by route and store. It must run after the JWT middleware
// for the store label to be present. Unmatched routes are not labelled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := []string{
			ProfilingLabelRoute, route,
			ProfilingLabelMethod, c.Request.Method,
		}
		if store := GetJWTStoreID(c); store != "" {
			labels = append(labels, ProfilingLabelStoreID, store)
		}
		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(labels...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
