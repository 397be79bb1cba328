package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the header clients set to make a create request retry-safe
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength caps keys so they stay cheap to store
const maxIdempotencyKeyLength = 255

// releaseTimeout bounds the key release after a failed request
const releaseTimeout = 5 * time.Second

// Idempotency rejects a repeated Idempotency-Key on the routes it guards with
// 409 ERR_DUPLICATE_REQUEST. Requests without the header pass through.
// A key whose request fails (4xx/5xx) is released so the client may retry it.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := c.Request.Context()
		// Keys are scoped to the route so one key cannot block another endpoint
		scoped := c.Request.Method + " " + c.FullPath() + " " + key

		claimed, err := store.Claim(ctx, scoped, ttl)
		if err != nil {
			logger.L(ctx).Error("idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeServiceUnavailable, "Unable to verify Idempotency-Key, retry later", GetRequestID(c)))
			return
		}
		if !claimed {
			logger.L(ctx).Warn("duplicate request rejected", zap.String("idempotency_key", key))
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already received", GetRequestID(c)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			// The request context may already be past its deadline here
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := store.Release(releaseCtx, scoped); err != nil {
				logger.L(ctx).Warn("failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
