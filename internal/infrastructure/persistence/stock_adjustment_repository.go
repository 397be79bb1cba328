package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormStockAdjustmentRepository implements StockAdjustmentRepository using GORM
type GormStockAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormStockAdjustmentRepository creates a new GormStockAdjustmentRepository
func NewGormStockAdjustmentRepository(db *gorm.DB) *GormStockAdjustmentRepository {
	return &GormStockAdjustmentRepository{db: db}
}

// Save creates a stock adjustment
func (r *GormStockAdjustmentRepository) Save(ctx context.Context, adjustment *inventory.StockAdjustment) error {
	return translateError("save stock adjustment", r.db.WithContext(ctx).Create(adjustment).Error)
}

// FindByItem finds all adjustments for an item in date order
func (r *GormStockAdjustmentRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockAdjustment, error) {
	var adjustments []inventory.StockAdjustment
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("adjustment_date ASC, created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, translateError("find stock adjustments", err)
	}
	return adjustments, nil
}

// Ensure GormStockAdjustmentRepository implements StockAdjustmentRepository
var _ inventory.StockAdjustmentRepository = (*GormStockAdjustmentRepository)(nil)
