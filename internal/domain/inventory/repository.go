package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemRepository defines the interface for item persistence
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByIDForUpdate finds an item and locks its row for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindBySKU finds an item by its SKU
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// FindByIDs finds multiple items by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error)

	// FindAll finds items matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Item, int64, error)

	// FindLowStock finds active items at or below their reorder level,
	// using fallbackThreshold for items without one
	FindLowStock(ctx context.Context, fallbackThreshold int) ([]Item, error)

	// Create inserts a new item
	Create(ctx context.Context, item *Item) error

	// SaveWithLock saves ledger fields with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, item *Item) error

	// SumValuation returns the total inventory value, total units and item count of active items
	SumValuation(ctx context.Context) (Valuation, error)
}

// StockAdjustmentRepository defines the interface for stock adjustment persistence
type StockAdjustmentRepository interface {
	// Save creates a stock adjustment
	Save(ctx context.Context, adjustment *StockAdjustment) error

	// FindByItem finds all adjustments for an item
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]StockAdjustment, error)
}

// Valuation aggregates the value of stock on hand
type Valuation struct {
	TotalValue decimal.Decimal
	TotalUnits int64
	ItemCount  int64
}
