package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Purchase is a supplier delivery bringing stock in. It exclusively owns its
// line items; tax and miscellaneous charges apply to the whole purchase.
type Purchase struct {
	shared.BaseAggregateRoot
	PurchaseDate         time.Time          `gorm:"not null;index"`
	SupplierName         string             `gorm:"type:varchar(200)"`
	Notes                string             `gorm:"type:text"`
	TaxAmount            decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	MiscellaneousCharges decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	LineItems            []PurchaseLineItem `gorm:"foreignKey:PurchaseID;references:ID"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// PurchaseLineItem is one item received in a purchase
type PurchaseLineItem struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo             int             `gorm:"not null"`
	QuantityUnits      int             `gorm:"not null"`
	UnitCostPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MrpPriceAtPurchase decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(18,4);not null"` // QuantityUnits * UnitCostPrice
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseLineItem) TableName() string {
	return "purchase_line_items"
}

// PurchaseHeader carries the editable header fields of a purchase
type PurchaseHeader struct {
	PurchaseDate         time.Time
	SupplierName         string
	Notes                string
	TaxAmount            decimal.Decimal
	MiscellaneousCharges decimal.Decimal
}

// PurchaseTotals summarises a purchase
type PurchaseTotals struct {
	TotalUnits           int             `json:"total_units"`
	ItemCost             decimal.Decimal `json:"item_cost"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	MiscellaneousCharges decimal.Decimal `json:"miscellaneous_charges"`
	GrandTotal           decimal.Decimal `json:"grand_total"`
}

// NewPurchase creates a purchase with no lines
func NewPurchase(header PurchaseHeader) (*Purchase, error) {
	p := &Purchase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		LineItems:         make([]PurchaseLineItem, 0),
	}
	if err := p.UpdateHeader(header); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateHeader replaces the header fields
func (p *Purchase) UpdateHeader(header PurchaseHeader) error {
	if header.PurchaseDate.IsZero() {
		return shared.NewValidationError("Purchase date is required")
	}
	if header.TaxAmount.IsNegative() {
		return shared.NewValidationError("Tax amount cannot be negative")
	}
	if header.MiscellaneousCharges.IsNegative() {
		return shared.NewValidationError("Miscellaneous charges cannot be negative")
	}

	p.PurchaseDate = shared.BusinessDate(header.PurchaseDate)
	p.SupplierName = strings.TrimSpace(header.SupplierName)
	p.Notes = strings.TrimSpace(header.Notes)
	p.TaxAmount = shared.RoundMoney(header.TaxAmount)
	p.MiscellaneousCharges = shared.RoundMoney(header.MiscellaneousCharges)
	p.UpdatedAt = time.Now()
	return nil
}

// AddLine appends a line for an already resolved item
func (p *Purchase) AddLine(itemID uuid.UUID, quantity int, unitCost, mrp decimal.Decimal) (*PurchaseLineItem, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("Item ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("Unit cost cannot be negative")
	}
	if mrp.IsNegative() {
		return nil, shared.NewValidationError("MRP cannot be negative")
	}

	now := time.Now()
	unitCost = shared.RoundMoney(unitCost)
	p.LineItems = append(p.LineItems, PurchaseLineItem{
		ID:                 uuid.New(),
		PurchaseID:         p.ID,
		ItemID:             itemID,
		LineNo:             len(p.LineItems) + 1,
		QuantityUnits:      quantity,
		UnitCostPrice:      unitCost,
		MrpPriceAtPurchase: shared.RoundMoney(mrp),
		LineTotal:          shared.RoundMoney(shared.Units(quantity).Mul(unitCost)),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	return &p.LineItems[len(p.LineItems)-1], nil
}

// ClearLines drops all lines, ahead of re-creating them from new input
func (p *Purchase) ClearLines() {
	p.LineItems = make([]PurchaseLineItem, 0)
}

// ItemIDs returns the distinct items referenced by the lines, in line order
func (p *Purchase) ItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(p.LineItems))
	ids := make([]uuid.UUID, 0, len(p.LineItems))
	for _, line := range p.LineItems {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			ids = append(ids, line.ItemID)
		}
	}
	return ids
}

// ItemCost is the sum of quantity times unit cost over all lines
func (p *Purchase) ItemCost() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.LineItems {
		total = total.Add(shared.Units(line.QuantityUnits).Mul(line.UnitCostPrice))
	}
	return shared.RoundMoney(total)
}

// TaxAndMisc is the purchase-level charge not attributed to any line
func (p *Purchase) TaxAndMisc() decimal.Decimal {
	return p.TaxAmount.Add(p.MiscellaneousCharges)
}

// Totals computes the purchase summary
func (p *Purchase) Totals() PurchaseTotals {
	units := 0
	for _, line := range p.LineItems {
		units += line.QuantityUnits
	}
	itemCost := p.ItemCost()
	return PurchaseTotals{
		TotalUnits:           units,
		ItemCost:             itemCost,
		TaxAmount:            p.TaxAmount,
		MiscellaneousCharges: p.MiscellaneousCharges,
		GrandTotal:           shared.RoundMoney(itemCost.Add(p.TaxAndMisc())),
	}
}

// Movement converts the line to a ledger movement dated on its purchase
func (l *PurchaseLineItem) Movement(purchaseDate time.Time) inventory.StockMovement {
	return inventory.StockMovement{
		Kind:       inventory.MovementPurchase,
		Date:       purchaseDate,
		RecordedAt: l.CreatedAt,
		Seq:        l.LineNo,
		Units:      l.QuantityUnits,
		UnitCost:   l.UnitCostPrice,
		MrpPrice:   l.MrpPriceAtPurchase,
	}
}
