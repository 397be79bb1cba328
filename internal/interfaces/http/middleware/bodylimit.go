package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/interfaces/http/dto"
)

// DefaultMaxBodyBytes bounds purchase and report payloads
const DefaultMaxBodyBytes = 2 << 20

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		// Chunked bodies carry no Content-Length
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
