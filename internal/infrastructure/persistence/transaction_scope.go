package persistence

import (
	"context"

	"github.com/liquorledger/backend/internal/application/settlement"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos settlement.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
	return translateError("settlement transaction", err)
}

// NewRepositories binds every settlement repository to db, which may be a transaction
func NewRepositories(db *gorm.DB) *settlement.Repositories {
	return &settlement.Repositories{
		Items:       NewGormItemRepository(db),
		Adjustments: NewGormStockAdjustmentRepository(db),
		Purchases:   NewGormPurchaseRepository(db),
		Reports:     NewGormDayEndReportRepository(db),
		Settings:    NewGormSettingRepository(db),
	}
}

// Ensure GormTransactionScope implements TransactionScope
var _ settlement.TransactionScope = (*GormTransactionScope)(nil)
