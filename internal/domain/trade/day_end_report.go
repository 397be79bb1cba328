package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SalesChannel is how a unit left the shop
type SalesChannel string

const (
	SalesChannelRetail SalesChannel = "RETAIL"
	SalesChannelBelt   SalesChannel = "BELT"
)

// IsValid checks if the channel is a valid SalesChannel
func (c SalesChannel) IsValid() bool {
	return c == SalesChannelRetail || c == SalesChannelBelt
}

// String returns the string representation of SalesChannel
func (c SalesChannel) String() string {
	return string(c)
}

// ParseSalesChannel parses a channel name case-insensitively. An empty name means RETAIL.
func ParseSalesChannel(s string) (SalesChannel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return SalesChannelRetail, nil
	}
	c := SalesChannel(s)
	if !c.IsValid() {
		return "", shared.NewValidationError("Invalid sales channel: " + s)
	}
	return c, nil
}

// DefaultBeltMarkupRupees applies when neither the report nor the settings name a markup
var DefaultBeltMarkupRupees = decimal.NewFromInt(20)

// SellingPrice picks the unit price of a sale line: an explicit override wins,
// RETAIL sells at MRP and BELT at MRP plus the belt markup.
func SellingPrice(channel SalesChannel, override decimal.NullDecimal, mrp, beltMarkup decimal.Decimal) decimal.Decimal {
	if override.Valid {
		return shared.RoundMoney(override.Decimal)
	}
	if channel == SalesChannelBelt {
		return shared.RoundMoney(mrp.Add(beltMarkup))
	}
	return shared.RoundMoney(mrp)
}

// DayEndReport settles one calendar day of sales. At most one report exists per date.
type DayEndReport struct {
	shared.BaseAggregateRoot
	ReportDate       time.Time          `gorm:"not null;uniqueIndex"`
	BeltMarkupRupees decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	TotalUnitsSold   int                `gorm:"not null;default:0"`
	TotalSalesAmount decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	RetailRevenue    decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	BeltRevenue      decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCost        decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	TotalProfit      decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	TotalNetProfit   decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Notes            string             `gorm:"type:text"`
	Lines            []DayEndReportLine `gorm:"foreignKey:ReportID;references:ID"`
}

// TableName returns the table name for GORM
func (DayEndReport) TableName() string {
	return "day_end_reports"
}

// DayEndReportLine is the sale of one item through one channel
type DayEndReportLine struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReportID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo              int             `gorm:"not null"`
	Channel             SalesChannel    `gorm:"type:varchar(10);not null"`
	QuantitySoldUnits   int             `gorm:"not null"`
	SellingPricePerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPriceAtSale     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineRevenue         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineCost            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineProfit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineNetProfit       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt           time.Time       `gorm:"not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DayEndReportLine) TableName() string {
	return "day_end_report_lines"
}

// NewDayEndReportLine prices a sale line. Net profit starts equal to gross
// profit until purchase charges are allocated.
func NewDayEndReportLine(itemID uuid.UUID, channel SalesChannel, quantity int, sellingPrice, costPrice decimal.Decimal) (*DayEndReportLine, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("Item ID cannot be empty")
	}
	if !channel.IsValid() {
		return nil, shared.NewValidationError("Invalid sales channel: " + channel.String())
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Quantity sold must be positive")
	}
	if sellingPrice.IsNegative() {
		return nil, shared.NewValidationError("Selling price cannot be negative")
	}

	sellingPrice = shared.RoundMoney(sellingPrice)
	costPrice = shared.RoundMoney(costPrice)
	revenue := shared.RoundMoney(shared.Units(quantity).Mul(sellingPrice))
	cost := shared.RoundMoney(shared.Units(quantity).Mul(costPrice))
	profit := revenue.Sub(cost)
	now := time.Now()

	return &DayEndReportLine{
		ID:                  uuid.New(),
		ItemID:              itemID,
		Channel:             channel,
		QuantitySoldUnits:   quantity,
		SellingPricePerUnit: sellingPrice,
		CostPriceAtSale:     costPrice,
		LineRevenue:         revenue,
		LineCost:            cost,
		LineProfit:          profit,
		LineNetProfit:       profit,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Movement converts the line to a ledger movement dated on its report
func (l *DayEndReportLine) Movement(reportDate time.Time) inventory.StockMovement {
	return inventory.StockMovement{
		Kind:       inventory.MovementSale,
		Date:       reportDate,
		RecordedAt: l.CreatedAt,
		Seq:        l.LineNo,
		Units:      l.QuantitySoldUnits,
	}
}

// SalesTotals aggregates priced sale lines
type SalesTotals struct {
	TotalUnits    int
	TotalRevenue  decimal.Decimal
	RetailRevenue decimal.Decimal
	BeltRevenue   decimal.Decimal
	TotalCost     decimal.Decimal
	TotalProfit   decimal.Decimal
	ProfitMargin  decimal.Decimal
}

// ComputeSalesTotals sums priced lines. ProfitMargin is profit as a percentage
// of revenue, zero when there is no revenue.
func ComputeSalesTotals(lines []DayEndReportLine) SalesTotals {
	t := SalesTotals{
		TotalRevenue:  decimal.Zero,
		RetailRevenue: decimal.Zero,
		BeltRevenue:   decimal.Zero,
		TotalCost:     decimal.Zero,
	}
	for _, line := range lines {
		t.TotalUnits += line.QuantitySoldUnits
		t.TotalRevenue = t.TotalRevenue.Add(line.LineRevenue)
		t.TotalCost = t.TotalCost.Add(line.LineCost)
		if line.Channel == SalesChannelBelt {
			t.BeltRevenue = t.BeltRevenue.Add(line.LineRevenue)
		} else {
			t.RetailRevenue = t.RetailRevenue.Add(line.LineRevenue)
		}
	}
	t.TotalProfit = t.TotalRevenue.Sub(t.TotalCost)
	t.ProfitMargin = shared.RoundMoney(shared.Ratio(t.TotalProfit, t.TotalRevenue).Mul(decimal.NewFromInt(100)))
	return t
}

// ItemQuantities sums units sold per item
func ItemQuantities(lines []DayEndReportLine) map[uuid.UUID]int {
	qty := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		qty[line.ItemID] += line.QuantitySoldUnits
	}
	return qty
}

// NewDayEndReport creates an empty report for a business date
func NewDayEndReport(reportDate time.Time, beltMarkup decimal.Decimal, notes string) (*DayEndReport, error) {
	r := &DayEndReport{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Lines:             make([]DayEndReportLine, 0),
	}
	if err := r.UpdateHeader(reportDate, beltMarkup, notes); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateHeader replaces the report date, belt markup and notes
func (r *DayEndReport) UpdateHeader(reportDate time.Time, beltMarkup decimal.Decimal, notes string) error {
	if reportDate.IsZero() {
		return shared.NewValidationError("Report date is required")
	}
	if beltMarkup.IsNegative() {
		return shared.NewValidationError("Belt markup cannot be negative")
	}
	r.ReportDate = shared.BusinessDate(reportDate)
	r.BeltMarkupRupees = shared.RoundMoney(beltMarkup)
	r.Notes = strings.TrimSpace(notes)
	r.UpdatedAt = time.Now()
	return nil
}

// ReplaceLines attaches priced lines to the report and recomputes its totals
func (r *DayEndReport) ReplaceLines(lines []DayEndReportLine) {
	r.Lines = make([]DayEndReportLine, len(lines))
	for idx, line := range lines {
		line.ReportID = r.ID
		line.LineNo = idx + 1
		r.Lines[idx] = line
	}

	t := ComputeSalesTotals(r.Lines)
	r.TotalUnitsSold = t.TotalUnits
	r.TotalSalesAmount = t.TotalRevenue
	r.RetailRevenue = t.RetailRevenue
	r.BeltRevenue = t.BeltRevenue
	r.TotalCost = t.TotalCost
	r.TotalProfit = t.TotalProfit
	r.TotalNetProfit = t.TotalProfit
	r.UpdatedAt = time.Now()
}

// AllocateTaxMisc deducts the share of purchase tax and miscellaneous charges
// attributable to this report's cost of goods. The share of the whole purchase
// history up to the report date is TotalCost / purchaseItemCost, zero when the
// history has no item cost. Each line bears the allocation in proportion to
// LineCost / TotalCost, zero when the report has no cost. Returns the allocated amount.
func (r *DayEndReport) AllocateTaxMisc(purchaseTaxMisc, purchaseItemCost decimal.Decimal) decimal.Decimal {
	ratio := shared.Ratio(r.TotalCost, purchaseItemCost)
	allocated := purchaseTaxMisc.Mul(ratio)

	r.TotalNetProfit = shared.RoundMoney(r.TotalProfit.Sub(allocated))
	for idx := range r.Lines {
		line := &r.Lines[idx]
		share := shared.Ratio(line.LineCost, r.TotalCost)
		line.LineNetProfit = shared.RoundMoney(line.LineProfit.Sub(allocated.Mul(share)))
	}
	return shared.RoundMoney(allocated)
}

// Totals returns the report aggregates as SalesTotals
func (r *DayEndReport) Totals() SalesTotals {
	return SalesTotals{
		TotalUnits:    r.TotalUnitsSold,
		TotalRevenue:  r.TotalSalesAmount,
		RetailRevenue: r.RetailRevenue,
		BeltRevenue:   r.BeltRevenue,
		TotalCost:     r.TotalCost,
		TotalProfit:   r.TotalProfit,
		ProfitMargin:  shared.RoundMoney(shared.Ratio(r.TotalProfit, r.TotalSalesAmount).Mul(decimal.NewFromInt(100))),
	}
}

// ItemIDs returns the distinct items sold in the report, in line order
func (r *DayEndReport) ItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(r.Lines))
	ids := make([]uuid.UUID, 0, len(r.Lines))
	for _, line := range r.Lines {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			ids = append(ids, line.ItemID)
		}
	}
	return ids
}
