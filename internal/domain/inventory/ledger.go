package inventory

import (
	"sort"
	"time"

	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementKind orders movements that fall on the same business date:
// receipts first, then manual adjustments, then sales.
type MovementKind int

const (
	MovementPurchase MovementKind = iota
	MovementAdjustment
	MovementSale
)

// String returns the movement kind name
func (k MovementKind) String() string {
	switch k {
	case MovementPurchase:
		return "purchase"
	case MovementAdjustment:
		return "adjustment"
	case MovementSale:
		return "sale"
	default:
		return "unknown"
	}
}

// StockMovement is one historical event affecting an item's stock.
// Units is positive for purchases and sales and signed for adjustments.
type StockMovement struct {
	Kind       MovementKind
	Date       time.Time
	RecordedAt time.Time
	Seq        int
	Units      int
	UnitCost   decimal.Decimal
	MrpPrice   decimal.Decimal
}

// LedgerSnapshot is the derived state of an item after replaying its history
type LedgerSnapshot struct {
	StockUnits      int
	WeightedAvgCost decimal.NullDecimal
	LatestPurchase  *StockMovement
	PurchasedUnits  int
	SoldUnits       int
	AdjustedUnits   int
}

// ReplayMovements rebuilds stock and weighted-average cost from the complete
// history in chronological order. Purchases blend their cost into the average;
// sales and adjustments change units only. A purchase arriving while stock is
// zero or negative restarts the average at its own unit cost.
func ReplayMovements(movements []StockMovement) LedgerSnapshot {
	ordered := make([]StockMovement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(a, b int) bool {
		return movementBefore(ordered[a], ordered[b])
	})

	var (
		snap   LedgerSnapshot
		avg    decimal.Decimal
		hasAvg bool
	)
	for idx := range ordered {
		m := ordered[idx]
		switch m.Kind {
		case MovementPurchase:
			if snap.StockUnits <= 0 || !hasAvg {
				avg = m.UnitCost
			} else {
				value := shared.Units(snap.StockUnits).Mul(avg).Add(shared.Units(m.Units).Mul(m.UnitCost))
				avg = value.Div(shared.Units(snap.StockUnits + m.Units))
			}
			hasAvg = true
			snap.StockUnits += m.Units
			snap.PurchasedUnits += m.Units
			snap.LatestPurchase = &ordered[idx]
		case MovementSale:
			snap.StockUnits -= m.Units
			snap.SoldUnits += m.Units
		case MovementAdjustment:
			snap.StockUnits += m.Units
			snap.AdjustedUnits += m.Units
		}
	}

	if hasAvg {
		snap.WeightedAvgCost = shared.NullMoney(avg)
	}
	return snap
}

func movementBefore(a, b StockMovement) bool {
	da, db := shared.BusinessDate(a.Date), shared.BusinessDate(b.Date)
	if !da.Equal(db) {
		return da.Before(db)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.Before(b.RecordedAt)
	}
	return a.Seq < b.Seq
}
