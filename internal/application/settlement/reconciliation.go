package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReconciliationService rebuilds item ledgers from their complete purchase,
// sale and adjustment history.
type ReconciliationService struct {
	txScope  TransactionScope
	recorder Recorder
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(txScope TransactionScope) *ReconciliationService {
	return &ReconciliationService{txScope: txScope, recorder: noopRecorder{}}
}

// SetRecorder sets the observer of administrative rebuilds
func (s *ReconciliationService) SetRecorder(r Recorder) {
	s.recorder = r
}

// RefreshItemInventoryStats recomputes stock, weighted-average cost, latest
// pricing and valuation of each item on the caller's repositories. Duplicate
// IDs are refreshed once. A history that nets to negative stock fails with
// NEGATIVE_STOCK so the enclosing transaction rolls back.
func (s *ReconciliationService) RefreshItemInventoryStats(ctx context.Context, repos TransactionalRepositories, itemIDs []uuid.UUID) error {
	for _, id := range uniqueIDs(itemIDs) {
		if err := s.refreshItem(ctx, repos, id); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileItems refreshes the given items in a transaction of their own. It is
// the administrative rebuild run after adjustments recorded outside settlement.
func (s *ReconciliationService) ReconcileItems(ctx context.Context, itemIDs []uuid.UUID) (items []inventory.Item, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.reconcile_items",
		attribute.Int("items", len(itemIDs)))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindReconcile, "rebuild", err)
	}()

	if err := validateInput(ReconcileItemsInput{ItemIDs: itemIDs}); err != nil {
		return nil, err
	}

	ids := uniqueIDs(itemIDs)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.RefreshItemInventoryStats(ctx, repos, ids); err != nil {
			return err
		}
		found, err := repos.ItemRepo().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("items reconciled", zap.Int("items", len(ids)))
	return items, nil
}

func (s *ReconciliationService) refreshItem(ctx context.Context, repos TransactionalRepositories, itemID uuid.UUID) error {
	item, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.NewNotFoundError("Item", itemID.String())
		}
		return err
	}

	purchases, err := repos.PurchaseRepo().FindMovementsByItem(ctx, itemID)
	if err != nil {
		return err
	}
	sales, err := repos.ReportRepo().FindMovementsByItem(ctx, itemID)
	if err != nil {
		return err
	}
	adjustments, err := repos.AdjustmentRepo().FindByItem(ctx, itemID)
	if err != nil {
		return err
	}

	movements := make([]inventory.StockMovement, 0, len(purchases)+len(sales)+len(adjustments))
	movements = append(movements, purchases...)
	movements = append(movements, sales...)
	for i := range adjustments {
		movements = append(movements, adjustments[i].Movement())
	}

	snap := inventory.ReplayMovements(movements)
	if snap.StockUnits < 0 {
		return shared.NewDomainError(shared.CodeNegativeStock,
			fmt.Sprintf("Stock for %s would become negative (%d units): its units were already sold", item.Name, snap.StockUnits))
	}

	item.ApplySnapshot(snap)
	if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
		return err
	}

	logger.L(ctx).Debug("item ledger rebuilt",
		zap.String("item_id", itemID.String()),
		zap.Int("movements", len(movements)),
		zap.Int("stock_units", item.CurrentStockUnits),
	)
	return nil
}

// uniqueIDs drops duplicates and nil IDs, keeping first-seen order
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
