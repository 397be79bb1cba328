// Package setting holds the shop-wide settings record.
package setting

import (
	"context"

	"github.com/shopspring/decimal"
)

// Setting is the single shop-wide configuration row. Null fields fall back
// to the process defaults.
type Setting struct {
	ID                       int                 `gorm:"primaryKey"`
	DefaultBeltMarkupRupees  decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	DefaultLowStockThreshold *int
}

// TableName returns the table name for GORM
func (Setting) TableName() string {
	return "settings"
}

// BeltMarkupOr returns the configured belt markup, or fallback when unset
func (s *Setting) BeltMarkupOr(fallback decimal.Decimal) decimal.Decimal {
	if s != nil && s.DefaultBeltMarkupRupees.Valid {
		return s.DefaultBeltMarkupRupees.Decimal
	}
	return fallback
}

// LowStockThresholdOr returns the configured low-stock threshold, or fallback when unset
func (s *Setting) LowStockThresholdOr(fallback int) int {
	if s != nil && s.DefaultLowStockThreshold != nil {
		return *s.DefaultLowStockThreshold
	}
	return fallback
}

// Repository reads the settings record
type Repository interface {
	// Get returns the settings row, or nil when none has been stored
	Get(ctx context.Context) (*Setting, error)

	// Save creates or replaces the settings row
	Save(ctx context.Context, s *Setting) error
}
