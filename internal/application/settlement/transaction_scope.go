package settlement

import (
	"context"

	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/setting"
	"github.com/liquorledger/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the settlement repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Item rows are the only rows written by more than one aggregate: purchases and
// day-end reports both move stock. Settlements therefore lock every affected item
// (ItemRepo().FindByIDForUpdate) before mutating it and save it with SaveWithLock.
type TransactionalRepositories interface {
	ItemRepo() inventory.ItemRepository
	AdjustmentRepo() inventory.StockAdjustmentRepository
	PurchaseRepo() trade.PurchaseRepository
	ReportRepo() trade.DayEndReportRepository
	SettingRepo() setting.Repository
}

// Repositories is a plain bundle of repositories. It satisfies TransactionalRepositories
// and doubles as a TransactionScope that runs without a real transaction, for tests
// and read paths.
type Repositories struct {
	Items       inventory.ItemRepository
	Adjustments inventory.StockAdjustmentRepository
	Purchases   trade.PurchaseRepository
	Reports     trade.DayEndReportRepository
	Settings    setting.Repository
}

// Execute runs the function without a real transaction
func (r *Repositories) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(r)
}

// ItemRepo returns the item repository
func (r *Repositories) ItemRepo() inventory.ItemRepository { return r.Items }

// AdjustmentRepo returns the stock adjustment repository
func (r *Repositories) AdjustmentRepo() inventory.StockAdjustmentRepository { return r.Adjustments }

// PurchaseRepo returns the purchase repository
func (r *Repositories) PurchaseRepo() trade.PurchaseRepository { return r.Purchases }

// ReportRepo returns the day-end report repository
func (r *Repositories) ReportRepo() trade.DayEndReportRepository { return r.Reports }

// SettingRepo returns the settings repository
func (r *Repositories) SettingRepo() setting.Repository { return r.Settings }

// Ensure Repositories implements both interfaces
var _ TransactionScope = (*Repositories)(nil)
var _ TransactionalRepositories = (*Repositories)(nil)
