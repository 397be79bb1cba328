package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ItemSortFields contains allowed sort fields for items
var ItemSortFields = map[string]bool{
	"id":                    true,
	"created_at":            true,
	"updated_at":            true,
	"sku":                   true,
	"name":                  true,
	"brand":                 true,
	"category":              true,
	"mrp_price":             true,
	"current_stock_units":   true,
	"total_inventory_value": true,
}

// PurchaseSortFields contains allowed sort fields for purchases
var PurchaseSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"purchase_date": true,
	"supplier_name": true,
	"tax_amount":    true,
}

// DayEndReportSortFields contains allowed sort fields for day-end reports
var DayEndReportSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"report_date":        true,
	"total_units_sold":   true,
	"total_sales_amount": true,
	"total_profit":       true,
	"total_net_profit":   true,
}
