package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/shared"
)

// StockAdjustment is a signed manual correction to an item's stock made
// outside the purchase and sale flows (breakage, stock count differences).
type StockAdjustment struct {
	shared.BaseEntity
	ItemID          uuid.UUID `gorm:"type:uuid;not null;index"`
	AdjustmentUnits int       `gorm:"not null"`
	AdjustmentDate  time.Time `gorm:"not null;index"`
	Reason          string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}

// NewStockAdjustment creates a non-zero adjustment for an item on a business date
func NewStockAdjustment(itemID uuid.UUID, units int, date time.Time, reason string) (*StockAdjustment, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("Item ID cannot be empty")
	}
	if units == 0 {
		return nil, shared.NewValidationError("Adjustment units cannot be zero")
	}
	return &StockAdjustment{
		BaseEntity:      shared.NewBaseEntity(),
		ItemID:          itemID,
		AdjustmentUnits: units,
		AdjustmentDate:  shared.BusinessDate(date),
		Reason:          strings.TrimSpace(reason),
	}, nil
}

// Movement converts the adjustment to a ledger movement
func (a *StockAdjustment) Movement() StockMovement {
	return StockMovement{
		Kind:       MovementAdjustment,
		Date:       a.AdjustmentDate,
		RecordedAt: a.CreatedAt,
		Units:      a.AdjustmentUnits,
	}
}
