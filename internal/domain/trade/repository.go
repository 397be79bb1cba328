package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
)

// PurchaseRepository defines the interface for purchase persistence
type PurchaseRepository interface {
	// FindByID finds a purchase with its line items
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)

	// FindAll finds purchase headers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Purchase, int64, error)

	// FindOnOrBefore finds every purchase dated on or before date, with line items
	FindOnOrBefore(ctx context.Context, date time.Time) ([]Purchase, error)

	// Save creates or updates the purchase header (lines are saved separately)
	Save(ctx context.Context, purchase *Purchase) error

	// SaveLines inserts the purchase's line items
	SaveLines(ctx context.Context, purchase *Purchase) error

	// DeleteLines deletes all line items of a purchase
	DeleteLines(ctx context.Context, purchaseID uuid.UUID) error

	// Delete deletes a purchase and its line items
	Delete(ctx context.Context, id uuid.UUID) error

	// FindMovementsByItem returns every purchase line of an item as a dated movement
	FindMovementsByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockMovement, error)

	// LatestPurchaseDateForItem returns the latest purchase date among the item's lines,
	// nil when the item has never been purchased
	LatestPurchaseDateForItem(ctx context.Context, itemID uuid.UUID) (*time.Time, error)
}

// DayEndReportRepository defines the interface for day-end report persistence
type DayEndReportRepository interface {
	// FindByID finds a report with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*DayEndReport, error)

	// FindByDate finds the report for a business date, with its lines
	FindByDate(ctx context.Context, date time.Time) (*DayEndReport, error)

	// ExistsByDate checks whether a report other than excludeID exists for the date
	ExistsByDate(ctx context.Context, date time.Time, excludeID *uuid.UUID) (bool, error)

	// FindAll finds report headers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]DayEndReport, int64, error)

	// Save creates or updates the report header (lines are saved separately)
	Save(ctx context.Context, report *DayEndReport) error

	// SaveLines inserts the report's lines
	SaveLines(ctx context.Context, report *DayEndReport) error

	// DeleteLines deletes all lines of a report
	DeleteLines(ctx context.Context, reportID uuid.UUID) error

	// Delete deletes a report and its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// FindMovementsByItem returns every sale line of an item as a dated movement
	FindMovementsByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockMovement, error)
}
