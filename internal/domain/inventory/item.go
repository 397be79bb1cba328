package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Item is a stock keeping unit on the shelf. It is the aggregate root of the
// item ledger: stock units, weighted-average cost and current pricing are only
// changed through the methods below.
type Item struct {
	shared.BaseAggregateRoot
	SKU                  string              `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name                 string              `gorm:"type:varchar(200);not null"`
	Brand                string              `gorm:"type:varchar(100)"`
	Category             string              `gorm:"type:varchar(100);index"`
	SizeML               int                 `gorm:"not null;default:0"`
	PackSize             int                 `gorm:"not null;default:1"`
	MrpPrice             decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	PurchaseCostPrice    decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	WeightedAvgCostPrice decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CurrentStockUnits    int                 `gorm:"not null;default:0"`
	TotalInventoryValue  decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	ReorderLevel         *int
	IsActive             bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates an active item with no stock and no cost history
func NewItem(sku, name string) (*Item, error) {
	sku = strings.TrimSpace(sku)
	name = strings.TrimSpace(name)
	if sku == "" {
		return nil, shared.NewValidationError("Item SKU is required")
	}
	if name == "" {
		return nil, shared.NewValidationError(fmt.Sprintf("Item name is required for SKU %s", sku))
	}

	return &Item{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		PackSize:          1,
		MrpPrice:          decimal.Zero,
		IsActive:          true,
	}, nil
}

// CostBasis is the per-unit cost used for sales: the weighted average when
// known, otherwise the latest purchase cost, otherwise zero.
func (i *Item) CostBasis() decimal.Decimal {
	if i.WeightedAvgCostPrice.Valid {
		return i.WeightedAvgCostPrice.Decimal
	}
	if i.PurchaseCostPrice.Valid {
		return i.PurchaseCostPrice.Decimal
	}
	return decimal.Zero
}

// ReceiveStock adds purchased units and blends their cost into the weighted average:
// (oldStock*oldAvg + qty*cost) / (oldStock + qty).
func (i *Item) ReceiveStock(quantity int, unitCost decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewValidationError("Purchase quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewValidationError("Unit cost cannot be negative")
	}

	oldStock := i.CurrentStockUnits
	if oldStock <= 0 {
		i.WeightedAvgCostPrice = shared.NullMoney(unitCost)
	} else {
		totalValue := shared.Units(oldStock).Mul(i.CostBasis()).Add(shared.Units(quantity).Mul(unitCost))
		i.WeightedAvgCostPrice = shared.NullMoney(totalValue.Div(shared.Units(oldStock + quantity)))
	}

	i.CurrentStockUnits = oldStock + quantity
	i.RefreshValuation()
	i.touch()
	return nil
}

// ApplyPricing makes a purchase line's MRP and unit cost the item's current pricing
func (i *Item) ApplyPricing(mrp, unitCost decimal.Decimal) {
	i.MrpPrice = shared.RoundMoney(mrp)
	i.PurchaseCostPrice = shared.NullMoney(unitCost)
	i.touch()
}

// ReverseReceipt takes back the units of a purchase line being removed.
// The stock may dip below zero until reconciliation restores the canonical count.
func (i *Item) ReverseReceipt(quantity int) {
	i.CurrentStockUnits -= quantity
	i.RefreshValuation()
	i.touch()
}

// ReleaseStock returns previously sold units to stock
func (i *Item) ReleaseStock(quantity int) {
	i.CurrentStockUnits += quantity
	i.RefreshValuation()
	i.touch()
}

// RemoveStock deducts sold units. It refuses to leave the item below zero.
func (i *Item) RemoveStock(quantity int) error {
	newStock := i.CurrentStockUnits - quantity
	if newStock < 0 {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock for %s (needs %d, has %d)", i.Name, quantity, i.CurrentStockUnits))
	}
	i.CurrentStockUnits = newStock
	i.RefreshValuation()
	i.touch()
	return nil
}

// RefreshValuation recomputes TotalInventoryValue as weighted average times stock,
// null when the product is not positive.
func (i *Item) RefreshValuation() {
	if !i.WeightedAvgCostPrice.Valid {
		i.TotalInventoryValue = decimal.NullDecimal{}
		return
	}
	i.TotalInventoryValue = shared.PositiveOrNull(i.WeightedAvgCostPrice.Decimal.Mul(shared.Units(i.CurrentStockUnits)))
}

// ApplySnapshot overwrites the derived ledger fields with a replayed history
func (i *Item) ApplySnapshot(s LedgerSnapshot) {
	i.CurrentStockUnits = s.StockUnits
	if s.WeightedAvgCost.Valid {
		i.WeightedAvgCostPrice = shared.NullMoney(s.WeightedAvgCost.Decimal)
	} else {
		i.WeightedAvgCostPrice = decimal.NullDecimal{}
	}
	if s.LatestPurchase != nil {
		i.MrpPrice = shared.RoundMoney(s.LatestPurchase.MrpPrice)
		i.PurchaseCostPrice = shared.NullMoney(s.LatestPurchase.UnitCost)
	}
	i.RefreshValuation()
	i.touch()
}

// IsLowStock reports whether stock is at or below the reorder level,
// using fallbackThreshold when the item has none of its own.
func (i *Item) IsLowStock(fallbackThreshold int) bool {
	threshold := fallbackThreshold
	if i.ReorderLevel != nil {
		threshold = *i.ReorderLevel
	}
	return i.CurrentStockUnits <= threshold
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now()
}
