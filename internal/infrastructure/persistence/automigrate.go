package persistence

import (
	"fmt"

	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/setting"
	"github.com/liquorledger/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// Models lists every persisted model, parents before children
func Models() []interface{} {
	return []interface{}{
		&inventory.Item{},
		&inventory.StockAdjustment{},
		&trade.Purchase{},
		&trade.PurchaseLineItem{},
		&trade.DayEndReport{},
		&trade.DayEndReportLine{},
		&setting.Setting{},
	}
}

// AutoMigrate creates the schema from the GORM models. It backs SQLite
// development databases and tests; PostgreSQL is migrated by cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
