package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

func preloadPurchaseLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a purchase with its line items
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Preload("LineItems", preloadPurchaseLines).
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, translateError("find purchase", err)
	}
	return &purchase, nil
}

// FindAll finds purchase headers. Supported filters: from, to (time.Time, inclusive).
func (r *GormPurchaseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Purchase, int64, error) {
	filter = filter.Normalize()
	scope := func(db *gorm.DB) *gorm.DB {
		if search := strings.TrimSpace(filter.Search); search != "" {
			db = db.Where("LOWER(supplier_name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		if from, ok := filter.Filters["from"].(time.Time); ok {
			db = db.Where("purchase_date >= ?", shared.BusinessDate(from))
		}
		if to, ok := filter.Filters["to"].(time.Time); ok {
			db = db.Where("purchase_date <= ?", shared.BusinessDate(to))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&trade.Purchase{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError("count purchases", err)
	}

	var purchases []trade.Purchase
	if err := r.db.WithContext(ctx).
		Scopes(scope, paginate(filter)).
		Order(orderClause(filter, PurchaseSortFields, "purchase_date")).
		Find(&purchases).Error; err != nil {
		return nil, 0, translateError("list purchases", err)
	}
	return purchases, total, nil
}

// FindOnOrBefore finds every purchase dated on or before date, oldest first, with line items
func (r *GormPurchaseRepository) FindOnOrBefore(ctx context.Context, date time.Time) ([]trade.Purchase, error) {
	var purchases []trade.Purchase
	if err := r.db.WithContext(ctx).
		Preload("LineItems", preloadPurchaseLines).
		Where("purchase_date <= ?", shared.BusinessDate(date)).
		Order("purchase_date ASC, created_at ASC").
		Find(&purchases).Error; err != nil {
		return nil, translateError("find purchases up to date", err)
	}
	return purchases, nil
}

// Save creates or updates the purchase header; line items are written by SaveLines
func (r *GormPurchaseRepository) Save(ctx context.Context, purchase *trade.Purchase) error {
	return translateError("save purchase", r.db.WithContext(ctx).Omit(clause.Associations).Clauses(upsertByID).Create(purchase).Error)
}

// SaveLines inserts the purchase's line items
func (r *GormPurchaseRepository) SaveLines(ctx context.Context, purchase *trade.Purchase) error {
	if len(purchase.LineItems) == 0 {
		return nil
	}
	for idx := range purchase.LineItems {
		purchase.LineItems[idx].PurchaseID = purchase.ID
	}
	return translateError("save purchase lines", r.db.WithContext(ctx).Create(&purchase.LineItems).Error)
}

// DeleteLines deletes all line items of a purchase
func (r *GormPurchaseRepository) DeleteLines(ctx context.Context, purchaseID uuid.UUID) error {
	return translateError("delete purchase lines",
		r.db.WithContext(ctx).Where("purchase_id = ?", purchaseID).Delete(&trade.PurchaseLineItem{}).Error)
}

// Delete deletes a purchase and its line items
func (r *GormPurchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&trade.Purchase{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete purchase", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type purchaseMovementRow struct {
	PurchaseDate       time.Time
	CreatedAt          time.Time
	LineNo             int
	QuantityUnits      int
	UnitCostPrice      decimal.Decimal
	MrpPriceAtPurchase decimal.Decimal
}

// FindMovementsByItem returns every purchase line of an item as a dated movement
func (r *GormPurchaseRepository) FindMovementsByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockMovement, error) {
	var rows []purchaseMovementRow
	if err := r.db.WithContext(ctx).
		Table("purchase_line_items AS l").
		Select("p.purchase_date, l.created_at, l.line_no, l.quantity_units, l.unit_cost_price, l.mrp_price_at_purchase").
		Joins("JOIN purchases AS p ON p.id = l.purchase_id").
		Where("l.item_id = ?", itemID).
		Order("p.purchase_date ASC, l.created_at ASC, l.line_no ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError("find purchase movements", err)
	}

	movements := make([]inventory.StockMovement, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, inventory.StockMovement{
			Kind:       inventory.MovementPurchase,
			Date:       row.PurchaseDate,
			RecordedAt: row.CreatedAt,
			Seq:        row.LineNo,
			Units:      row.QuantityUnits,
			UnitCost:   row.UnitCostPrice,
			MrpPrice:   row.MrpPriceAtPurchase,
		})
	}
	return movements, nil
}

// LatestPurchaseDateForItem returns the most recent purchase date among the item's lines
func (r *GormPurchaseRepository) LatestPurchaseDateForItem(ctx context.Context, itemID uuid.UUID) (*time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).
		Table("purchase_line_items AS l").
		Joins("JOIN purchases AS p ON p.id = l.purchase_id").
		Where("l.item_id = ?", itemID).
		Order("p.purchase_date DESC").
		Limit(1).
		Pluck("p.purchase_date", &dates).Error; err != nil {
		return nil, translateError("find latest purchase date", err)
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return &dates[0], nil
}

// Ensure GormPurchaseRepository implements PurchaseRepository
var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
