package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/interfaces/http/handler"
	"github.com/liquorledger/backend/internal/interfaces/http/middleware"

	_ "github.com/liquorledger/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers bundles every HTTP handler the API exposes
type Handlers struct {
	Items     *handler.ItemHandler
	Purchases *handler.PurchaseHandler
	DayEnd    *handler.DayEndReportHandler
	Health    *handler.HealthHandler
}

// IdempotencyOptions guards create endpoints. A nil Store disables the guard.
type IdempotencyOptions struct {
	Store shared.IdempotencyStore
	TTL   time.Duration
}

// RegisterAPI wires the settlement API onto engine: /health at the root and
// everything else under /api/v1.
func RegisterAPI(engine *gin.Engine, h Handlers, idem IdempotencyOptions) {
	engine.GET("/health", h.Health.Check)

	guard := func(c *gin.Context) { c.Next() }
	if idem.Store != nil {
		guard = middleware.Idempotency(idem.Store, idem.TTL)
	}

	items := NewDomainGroup("items", "/items").
		GET("", h.Items.List).
		GET("/low-stock", h.Items.LowStock).
		GET("/valuation", h.Items.Valuation).
		GET("/:id", h.Items.GetByID).
		POST("/reconcile", h.Items.Reconcile)

	purchases := NewDomainGroup("purchases", "/purchases").
		GET("", h.Purchases.List).
		POST("", guard, h.Purchases.Create).
		GET("/:id", h.Purchases.GetByID).
		PUT("/:id", h.Purchases.Update).
		DELETE("/:id", h.Purchases.Delete)

	reports := NewDomainGroup("day-end-reports", "/day-end-reports").
		GET("", h.DayEnd.List).
		POST("", guard, h.DayEnd.Create).
		POST("/preview", h.DayEnd.Preview).
		GET("/by-date/:date", h.DayEnd.GetByDate).
		GET("/:id", h.DayEnd.GetByID).
		PUT("/:id", h.DayEnd.Update).
		DELETE("/:id", h.DayEnd.Delete).
		GET("/:id/export", h.DayEnd.Export)

	NewRouter(engine).
		Register(items).
		Register(purchases).
		Register(reports).
		Setup()
}

// RegisterDocs serves the generated OpenAPI documentation at /swagger/*any
func RegisterDocs(engine *gin.Engine, cfg middleware.SwaggerConfig) {
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg), ginSwagger.WrapHandler(swaggerFiles.Handler))
}
