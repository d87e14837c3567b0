package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
)

// DefaultMaxBodySize is large enough for a return with a few hundred lines
const DefaultMaxBodySize int64 = 1 << 20

// BodyLimit returns a middleware that limits request body size. Bodies
// without a declared length are cut off by http.MaxBytesReader and fail
// JSON binding.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString(RequestIDKey),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
