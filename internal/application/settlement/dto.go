package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// PurchaseLineInput is one received item. The item is identified by ItemID,
// else by SKU; SKU plus Name is enough to create an item that does not exist yet.
type PurchaseLineInput struct {
	ItemID        *uuid.UUID          `json:"item_id"`
	SKU           string              `json:"sku" binding:"omitempty,max=64"`
	Name          string              `json:"name" binding:"omitempty,max=200"`
	Brand         string              `json:"brand" binding:"omitempty,max=100"`
	Category      string              `json:"category" binding:"omitempty,max=100"`
	SizeML        int                 `json:"size_ml" binding:"min=0"`
	PackSize      int                 `json:"pack_size" binding:"min=0"`
	QuantityUnits int                 `json:"quantity_units" binding:"required,gt=0"`
	UnitCostPrice decimal.Decimal     `json:"unit_cost_price"`
	MrpPrice      decimal.NullDecimal `json:"mrp_price"` // falls back to the item's current MRP
}

// CreatePurchaseInput is the body of a purchase create or full update
type CreatePurchaseInput struct {
	PurchaseDate         string              `json:"purchase_date" binding:"required,datetime=2006-01-02"`
	SupplierName         string              `json:"supplier_name" binding:"max=200"`
	Notes                string              `json:"notes" binding:"max=2000"`
	TaxAmount            decimal.Decimal     `json:"tax_amount"`
	MiscellaneousCharges decimal.Decimal     `json:"miscellaneous_charges"`
	LineItems            []PurchaseLineInput `json:"line_items" binding:"dive"`
	AllowItemCreation    *bool               `json:"allow_item_creation"` // nil means allowed
}

func (in CreatePurchaseInput) itemCreationAllowed() bool {
	return in.AllowItemCreation == nil || *in.AllowItemCreation
}

// SaleLineInput is the sale of one item through one channel
type SaleLineInput struct {
	ItemID              *uuid.UUID          `json:"item_id"`
	SKU                 string              `json:"sku" binding:"omitempty,max=64"`
	Channel             string              `json:"channel" binding:"omitempty,oneof=RETAIL BELT retail belt"`
	QuantitySoldUnits   int                 `json:"quantity_sold_units" binding:"required,gt=0"`
	SellingPricePerUnit decimal.NullDecimal `json:"selling_price_per_unit"` // overrides the channel price
}

// DayEndReportInput is the body of a day-end report preview, create or update
type DayEndReportInput struct {
	ReportDate       string              `json:"report_date" binding:"required,datetime=2006-01-02"`
	BeltMarkupRupees decimal.NullDecimal `json:"belt_markup_rupees"`
	Notes            string              `json:"notes" binding:"max=2000"`
	Lines            []SaleLineInput     `json:"lines" binding:"dive"`
}

// ItemResponse represents an item in API responses
type ItemResponse struct {
	ID                   uuid.UUID           `json:"id"`
	SKU                  string              `json:"sku"`
	Name                 string              `json:"name"`
	Brand                string              `json:"brand"`
	Category             string              `json:"category"`
	SizeML               int                 `json:"size_ml"`
	PackSize             int                 `json:"pack_size"`
	MrpPrice             decimal.Decimal     `json:"mrp_price"`
	PurchaseCostPrice    decimal.NullDecimal `json:"purchase_cost_price"`
	WeightedAvgCostPrice decimal.NullDecimal `json:"weighted_avg_cost_price"`
	CurrentStockUnits    int                 `json:"current_stock_units"`
	TotalInventoryValue  decimal.NullDecimal `json:"total_inventory_value"`
	ReorderLevel         *int                `json:"reorder_level,omitempty"`
	IsActive             bool                `json:"is_active"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ItemListFilter represents filter options for listing items
type ItemListFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ValuationResponse is the value of stock on hand across active items
type ValuationResponse struct {
	TotalValue decimal.Decimal `json:"total_value"`
	TotalUnits int64           `json:"total_units"`
	ItemCount  int64           `json:"item_count"`
}

// ReconcileItemsInput names the items to rebuild from their history
type ReconcileItemsInput struct {
	ItemIDs []uuid.UUID `json:"item_ids" binding:"required,min=1"`
}

// PurchaseLineResponse represents a purchase line in API responses
type PurchaseLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	LineNo             int             `json:"line_no"`
	ItemID             uuid.UUID       `json:"item_id"`
	ItemSKU            string          `json:"item_sku,omitempty"`
	ItemName           string          `json:"item_name,omitempty"`
	QuantityUnits      int             `json:"quantity_units"`
	UnitCostPrice      decimal.Decimal `json:"unit_cost_price"`
	MrpPriceAtPurchase decimal.Decimal `json:"mrp_price_at_purchase"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

// PurchaseResult is a settled purchase with its totals
type PurchaseResult struct {
	ID                   uuid.UUID              `json:"id"`
	PurchaseDate         string                 `json:"purchase_date"`
	SupplierName         string                 `json:"supplier_name"`
	Notes                string                 `json:"notes"`
	TaxAmount            decimal.Decimal        `json:"tax_amount"`
	MiscellaneousCharges decimal.Decimal        `json:"miscellaneous_charges"`
	LineItems            []PurchaseLineResponse `json:"line_items"`
	Totals               trade.PurchaseTotals   `json:"totals"`
	CreatedItemIDs       []uuid.UUID            `json:"created_item_ids,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// PurchaseListItemResponse represents a purchase header in list responses
type PurchaseListItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	PurchaseDate         string          `json:"purchase_date"`
	SupplierName         string          `json:"supplier_name"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	MiscellaneousCharges decimal.Decimal `json:"miscellaneous_charges"`
	CreatedAt            time.Time       `json:"created_at"`
}

// DateRangeFilter represents filter options for listing dated documents
type DateRangeFilter struct {
	Search   string `form:"search"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Shortage is an item a report would sell more of than is available
type Shortage struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Needed    int       `json:"needed"`
	Available int       `json:"available"`
}

// ReportSummary is the computed outcome of a set of sale lines
type ReportSummary struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalUnits       int             `json:"total_units"`
	RetailRevenue    decimal.Decimal `json:"retail_revenue"`
	BeltRevenue      decimal.Decimal `json:"belt_revenue"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	Shortages        []Shortage      `json:"shortages"`
	BeltMarkupRupees decimal.Decimal `json:"belt_markup_rupees"`
}

// DayEndReportLineResponse represents a sale line in API responses
type DayEndReportLineResponse struct {
	ID                  uuid.UUID       `json:"id"`
	LineNo              int             `json:"line_no"`
	ItemID              uuid.UUID       `json:"item_id"`
	ItemSKU             string          `json:"item_sku,omitempty"`
	ItemName            string          `json:"item_name,omitempty"`
	Channel             string          `json:"channel"`
	QuantitySoldUnits   int             `json:"quantity_sold_units"`
	SellingPricePerUnit decimal.Decimal `json:"selling_price_per_unit"`
	CostPriceAtSale     decimal.Decimal `json:"cost_price_at_sale"`
	LineRevenue         decimal.Decimal `json:"line_revenue"`
	LineCost            decimal.Decimal `json:"line_cost"`
	LineProfit          decimal.Decimal `json:"line_profit"`
	LineNetProfit       decimal.Decimal `json:"line_net_profit"`
}

// DayEndReportResult is a committed day-end report
type DayEndReportResult struct {
	ID               uuid.UUID                  `json:"id"`
	ReportDate       string                     `json:"report_date"`
	BeltMarkupRupees decimal.Decimal            `json:"belt_markup_rupees"`
	TotalUnitsSold   int                        `json:"total_units_sold"`
	TotalSalesAmount decimal.Decimal            `json:"total_sales_amount"`
	RetailRevenue    decimal.Decimal            `json:"retail_revenue"`
	BeltRevenue      decimal.Decimal            `json:"belt_revenue"`
	TotalCost        decimal.Decimal            `json:"total_cost"`
	TotalProfit      decimal.Decimal            `json:"total_profit"`
	TotalNetProfit   decimal.Decimal            `json:"total_net_profit"`
	AllocatedCharges decimal.Decimal            `json:"allocated_charges"`
	ProfitMargin     decimal.Decimal            `json:"profit_margin"`
	Notes            string                     `json:"notes"`
	Lines            []DayEndReportLineResponse `json:"lines"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// DayEndReportListItemResponse represents a report header in list responses
type DayEndReportListItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ReportDate       string          `json:"report_date"`
	TotalUnitsSold   int             `json:"total_units_sold"`
	TotalSalesAmount decimal.Decimal `json:"total_sales_amount"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	TotalNetProfit   decimal.Decimal `json:"total_net_profit"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToItemResponse converts a domain Item to ItemResponse
func ToItemResponse(item *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:                   item.ID,
		SKU:                  item.SKU,
		Name:                 item.Name,
		Brand:                item.Brand,
		Category:             item.Category,
		SizeML:               item.SizeML,
		PackSize:             item.PackSize,
		MrpPrice:             item.MrpPrice,
		PurchaseCostPrice:    item.PurchaseCostPrice,
		WeightedAvgCostPrice: item.WeightedAvgCostPrice,
		CurrentStockUnits:    item.CurrentStockUnits,
		TotalInventoryValue:  item.TotalInventoryValue,
		ReorderLevel:         item.ReorderLevel,
		IsActive:             item.IsActive,
		Version:              item.Version,
		CreatedAt:            item.CreatedAt,
		UpdatedAt:            item.UpdatedAt,
	}
}

// ToItemResponses converts a slice of domain Items to ItemResponses
func ToItemResponses(items []inventory.Item) []ItemResponse {
	responses := make([]ItemResponse, len(items))
	for i := range items {
		responses[i] = ToItemResponse(&items[i])
	}
	return responses
}

// ToPurchaseResult converts a purchase to PurchaseResult. items supplies the
// SKU and name of each line's item and may be nil.
func ToPurchaseResult(p *trade.Purchase, items map[uuid.UUID]*inventory.Item) PurchaseResult {
	lines := make([]PurchaseLineResponse, len(p.LineItems))
	for i, line := range p.LineItems {
		lines[i] = PurchaseLineResponse{
			ID:                 line.ID,
			LineNo:             line.LineNo,
			ItemID:             line.ItemID,
			QuantityUnits:      line.QuantityUnits,
			UnitCostPrice:      line.UnitCostPrice,
			MrpPriceAtPurchase: line.MrpPriceAtPurchase,
			LineTotal:          line.LineTotal,
		}
		if item, ok := items[line.ItemID]; ok {
			lines[i].ItemSKU = item.SKU
			lines[i].ItemName = item.Name
		}
	}
	return PurchaseResult{
		ID:                   p.ID,
		PurchaseDate:         shared.FormatBusinessDate(p.PurchaseDate),
		SupplierName:         p.SupplierName,
		Notes:                p.Notes,
		TaxAmount:            p.TaxAmount,
		MiscellaneousCharges: p.MiscellaneousCharges,
		LineItems:            lines,
		Totals:               p.Totals(),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// ToPurchaseListItemResponses converts purchase headers to list responses
func ToPurchaseListItemResponses(purchases []trade.Purchase) []PurchaseListItemResponse {
	responses := make([]PurchaseListItemResponse, len(purchases))
	for i, p := range purchases {
		responses[i] = PurchaseListItemResponse{
			ID:                   p.ID,
			PurchaseDate:         shared.FormatBusinessDate(p.PurchaseDate),
			SupplierName:         p.SupplierName,
			TaxAmount:            p.TaxAmount,
			MiscellaneousCharges: p.MiscellaneousCharges,
			CreatedAt:            p.CreatedAt,
		}
	}
	return responses
}

// ToDayEndReportResult converts a report to DayEndReportResult. items supplies
// the SKU and name of each line's item and may be nil.
func ToDayEndReportResult(r *trade.DayEndReport, items map[uuid.UUID]*inventory.Item) DayEndReportResult {
	lines := make([]DayEndReportLineResponse, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = DayEndReportLineResponse{
			ID:                  line.ID,
			LineNo:              line.LineNo,
			ItemID:              line.ItemID,
			Channel:             line.Channel.String(),
			QuantitySoldUnits:   line.QuantitySoldUnits,
			SellingPricePerUnit: line.SellingPricePerUnit,
			CostPriceAtSale:     line.CostPriceAtSale,
			LineRevenue:         line.LineRevenue,
			LineCost:            line.LineCost,
			LineProfit:          line.LineProfit,
			LineNetProfit:       line.LineNetProfit,
		}
		if item, ok := items[line.ItemID]; ok {
			lines[i].ItemSKU = item.SKU
			lines[i].ItemName = item.Name
		}
	}
	return DayEndReportResult{
		ID:               r.ID,
		ReportDate:       shared.FormatBusinessDate(r.ReportDate),
		BeltMarkupRupees: r.BeltMarkupRupees,
		TotalUnitsSold:   r.TotalUnitsSold,
		TotalSalesAmount: r.TotalSalesAmount,
		RetailRevenue:    r.RetailRevenue,
		BeltRevenue:      r.BeltRevenue,
		TotalCost:        r.TotalCost,
		TotalProfit:      r.TotalProfit,
		TotalNetProfit:   r.TotalNetProfit,
		AllocatedCharges: r.TotalProfit.Sub(r.TotalNetProfit),
		ProfitMargin:     r.Totals().ProfitMargin,
		Notes:            r.Notes,
		Lines:            lines,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// ToDayEndReportListItemResponses converts report headers to list responses
func ToDayEndReportListItemResponses(reports []trade.DayEndReport) []DayEndReportListItemResponse {
	responses := make([]DayEndReportListItemResponse, len(reports))
	for i, r := range reports {
		responses[i] = DayEndReportListItemResponse{
			ID:               r.ID,
			ReportDate:       shared.FormatBusinessDate(r.ReportDate),
			TotalUnitsSold:   r.TotalUnitsSold,
			TotalSalesAmount: r.TotalSalesAmount,
			TotalProfit:      r.TotalProfit,
			TotalNetProfit:   r.TotalNetProfit,
			CreatedAt:        r.CreatedAt,
		}
	}
	return responses
}

func toSummary(t trade.SalesTotals, shortages []Shortage, beltMarkup decimal.Decimal) ReportSummary {
	if shortages == nil {
		shortages = []Shortage{}
	}
	return ReportSummary{
		TotalRevenue:     t.TotalRevenue,
		TotalUnits:       t.TotalUnits,
		RetailRevenue:    t.RetailRevenue,
		BeltRevenue:      t.BeltRevenue,
		TotalCost:        t.TotalCost,
		TotalProfit:      t.TotalProfit,
		ProfitMargin:     t.ProfitMargin,
		Shortages:        shortages,
		BeltMarkupRupees: beltMarkup,
	}
}

func itemsByID(items []inventory.Item) map[uuid.UUID]*inventory.Item {
	byID := make(map[uuid.UUID]*inventory.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	return byID
}
