package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translateError("find item", err)
	}
	return &item, nil
}

// FindByIDForUpdate finds an item and takes a row lock (SELECT ... FOR UPDATE).
// SQLite has no row locks; the clause is dropped there.
func (r *GormItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, translateError("lock item", err)
	}
	return &item, nil
}

// FindBySKU finds an item by its SKU
func (r *GormItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", strings.TrimSpace(sku)).Error; err != nil {
		return nil, translateError("find item by sku", err)
	}
	return &item, nil
}

// FindByIDs finds multiple items by their IDs
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Item, error) {
	if len(ids) == 0 {
		return []inventory.Item{}, nil
	}
	var items []inventory.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, translateError("find items", err)
	}
	return items, nil
}

// FindAll finds items matching the filter. Supported filters: category (string), is_active (bool).
func (r *GormItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Item, int64, error) {
	filter = filter.Normalize()
	scope := func(db *gorm.DB) *gorm.DB {
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where("LOWER(sku) LIKE ? OR LOWER(name) LIKE ? OR LOWER(brand) LIKE ?", like, like, like)
		}
		if category, ok := filter.Filters["category"].(string); ok && category != "" {
			db = db.Where("category = ?", category)
		}
		if active, ok := filter.Filters["is_active"].(bool); ok {
			db = db.Where("is_active = ?", active)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&inventory.Item{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError("count items", err)
	}

	var items []inventory.Item
	if err := r.db.WithContext(ctx).
		Scopes(scope, paginate(filter)).
		Order(orderClause(filter, ItemSortFields, "name")).
		Find(&items).Error; err != nil {
		return nil, 0, translateError("list items", err)
	}
	return items, total, nil
}

// FindLowStock finds active items at or below their reorder level
func (r *GormItemRepository) FindLowStock(ctx context.Context, fallbackThreshold int) ([]inventory.Item, error) {
	var items []inventory.Item
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(reorder_level IS NOT NULL AND current_stock_units <= reorder_level) OR (reorder_level IS NULL AND current_stock_units <= ?)", fallbackThreshold).
		Order("current_stock_units ASC, name ASC").
		Find(&items).Error; err != nil {
		return nil, translateError("find low stock items", err)
	}
	return items, nil
}

// Create inserts a new item. A taken SKU is reported as a conflict.
func (r *GormItemRepository) Create(ctx context.Context, item *inventory.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError(shared.CodeDuplicateSKU, "Item with SKU "+item.SKU+" already exists")
		}
		return translateError("create item", err)
	}
	return nil
}

// SaveWithLock writes the ledger fields only if the stored version still matches
// item.Version, then advances the version on both sides.
func (r *GormItemRepository) SaveWithLock(ctx context.Context, item *inventory.Item) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Item{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]interface{}{
			"mrp_price":               item.MrpPrice,
			"purchase_cost_price":     item.PurchaseCostPrice,
			"weighted_avg_cost_price": item.WeightedAvgCostPrice,
			"current_stock_units":     item.CurrentStockUnits,
			"total_inventory_value":   item.TotalInventoryValue,
			"version":                 item.Version + 1,
			"updated_at":              item.UpdatedAt,
		})

	if result.Error != nil {
		return translateError("save item", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	item.IncrementVersion()
	return nil
}

type valuationRow struct {
	TotalInventoryValue decimal.NullDecimal
	CurrentStockUnits   int
}

// SumValuation totals the stock value of active items. Decimals are summed in
// Go so SQLite's float aggregates never leak into money.
func (r *GormItemRepository) SumValuation(ctx context.Context) (inventory.Valuation, error) {
	var rows []valuationRow
	if err := r.db.WithContext(ctx).
		Model(&inventory.Item{}).
		Select("total_inventory_value, current_stock_units").
		Where("is_active = ?", true).
		Scan(&rows).Error; err != nil {
		return inventory.Valuation{}, translateError("sum valuation", err)
	}

	v := inventory.Valuation{TotalValue: decimal.Zero, ItemCount: int64(len(rows))}
	for _, row := range rows {
		if row.TotalInventoryValue.Valid {
			v.TotalValue = v.TotalValue.Add(row.TotalInventoryValue.Decimal)
		}
		v.TotalUnits += int64(row.CurrentStockUnits)
	}
	v.TotalValue = shared.RoundMoney(v.TotalValue)
	return v, nil
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
