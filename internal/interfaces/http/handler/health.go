package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger is anything whose liveness can be checked, e.g. the database
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the API can reach its database
type HealthHandler struct {
	BaseHandler
	db Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.L(ctx).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    dto.HealthResponse{Status: "unhealthy", Database: "unreachable"},
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeServiceUnavailable, Message: "Database unreachable"},
		})
		return
	}

	h.Success(c, dto.HealthResponse{Status: "healthy", Database: "ok"})
}
