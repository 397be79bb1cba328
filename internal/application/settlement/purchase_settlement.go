package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/domain/trade"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PurchaseSettlementService brings purchased stock into the item ledger.
// Every write runs in one transaction: a failure on any line leaves no trace.
type PurchaseSettlementService struct {
	txScope    TransactionScope
	reads      TransactionalRepositories
	reconciler *ReconciliationService
	recorder   Recorder
}

// NewPurchaseSettlementService creates a new PurchaseSettlementService
func NewPurchaseSettlementService(txScope TransactionScope, reads TransactionalRepositories, reconciler *ReconciliationService) *PurchaseSettlementService {
	return &PurchaseSettlementService{
		txScope:    txScope,
		reads:      reads,
		reconciler: reconciler,
		recorder:   noopRecorder{},
	}
}

// SetRecorder sets the observer of settlement outcomes
func (s *PurchaseSettlementService) SetRecorder(r Recorder) {
	s.recorder = r
}

// CreatePurchase records a purchase, adds its units to stock and blends each
// line's cost into the item's weighted average.
func (s *PurchaseSettlementService) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (result *PurchaseResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.create_purchase",
		attribute.Int("lines", len(input.LineItems)))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindPurchase, "create", err)
	}()

	header, err := purchaseHeader(input)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := trade.NewPurchase(header)
		if err != nil {
			return err
		}
		if err := repos.PurchaseRepo().Save(ctx, purchase); err != nil {
			return err
		}

		items, created, err := s.settleLines(ctx, repos, purchase, input)
		if err != nil {
			return err
		}
		if err := repos.PurchaseRepo().SaveLines(ctx, purchase); err != nil {
			return err
		}

		res := ToPurchaseResult(purchase, items)
		res.CreatedItemIDs = created
		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("purchase settled",
		zap.String("purchase_id", result.ID.String()),
		zap.String("purchase_date", result.PurchaseDate),
		zap.Int("lines", len(result.LineItems)),
		zap.Int("units", result.Totals.TotalUnits),
		zap.String("grand_total", result.Totals.GrandTotal.StringFixed(shared.MoneyPlaces)),
	)
	return result, nil
}

// UpdatePurchase replaces a purchase's header and lines. The old lines' units
// are taken back, the new lines applied as on create, and every item touched by
// either version is then rebuilt from its full history.
func (s *PurchaseSettlementService) UpdatePurchase(ctx context.Context, id uuid.UUID, input CreatePurchaseInput) (result *PurchaseResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.update_purchase",
		attribute.String("purchase_id", id.String()),
		attribute.Int("lines", len(input.LineItems)))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindPurchase, "update", err)
	}()

	header, err := purchaseHeader(input)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := findPurchase(ctx, repos, id)
		if err != nil {
			return err
		}
		oldItemIDs := purchase.ItemIDs()

		if err := reversePurchaseLines(ctx, repos, purchase); err != nil {
			return err
		}
		if err := repos.PurchaseRepo().DeleteLines(ctx, purchase.ID); err != nil {
			return err
		}

		if err := purchase.UpdateHeader(header); err != nil {
			return err
		}
		purchase.ClearLines()
		if err := repos.PurchaseRepo().Save(ctx, purchase); err != nil {
			return err
		}

		items, created, err := s.settleLines(ctx, repos, purchase, input)
		if err != nil {
			return err
		}
		if err := repos.PurchaseRepo().SaveLines(ctx, purchase); err != nil {
			return err
		}

		affected := append(oldItemIDs, purchase.ItemIDs()...)
		if err := s.reconciler.RefreshItemInventoryStats(ctx, repos, affected); err != nil {
			return err
		}

		res := ToPurchaseResult(purchase, items)
		res.CreatedItemIDs = created
		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("purchase updated",
		zap.String("purchase_id", id.String()),
		zap.Int("lines", len(result.LineItems)),
		zap.Int("units", result.Totals.TotalUnits),
	)
	return result, nil
}

// DeletePurchase removes a purchase and takes its units back out of stock.
// It fails with NEGATIVE_STOCK when the units were already sold.
func (s *PurchaseSettlementService) DeletePurchase(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.delete_purchase",
		attribute.String("purchase_id", id.String()))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindPurchase, "delete", err)
	}()

	var affected int
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := findPurchase(ctx, repos, id)
		if err != nil {
			return err
		}
		itemIDs := purchase.ItemIDs()
		affected = len(itemIDs)

		if err := reversePurchaseLines(ctx, repos, purchase); err != nil {
			return err
		}
		if err := repos.PurchaseRepo().Delete(ctx, purchase.ID); err != nil {
			return err
		}
		return s.reconciler.RefreshItemInventoryStats(ctx, repos, itemIDs)
	})
	if err != nil {
		return err
	}

	logger.L(ctx).Info("purchase deleted",
		zap.String("purchase_id", id.String()),
		zap.Int("items", affected),
	)
	return nil
}

// GetPurchase retrieves a purchase with its lines
func (s *PurchaseSettlementService) GetPurchase(ctx context.Context, id uuid.UUID) (*PurchaseResult, error) {
	purchase, err := findPurchase(ctx, s.reads, id)
	if err != nil {
		return nil, err
	}
	items, err := s.reads.ItemRepo().FindByIDs(ctx, purchase.ItemIDs())
	if err != nil {
		return nil, err
	}
	result := ToPurchaseResult(purchase, itemsByID(items))
	return &result, nil
}

// ListPurchases lists purchase headers
func (s *PurchaseSettlementService) ListPurchases(ctx context.Context, filter DateRangeFilter) ([]PurchaseListItemResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "purchase_date"
	}
	domainFilter, err := dateRangeFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	purchases, total, err := s.reads.PurchaseRepo().FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseListItemResponses(purchases), total, nil
}

// settleLines resolves each input line's item, attaches the line to the
// purchase and applies it to the item ledger. Items are locked once and saved
// once each. Returns the touched items by ID and the IDs of items created here.
func (s *PurchaseSettlementService) settleLines(ctx context.Context, repos TransactionalRepositories, purchase *trade.Purchase, input CreatePurchaseInput) (map[uuid.UUID]*inventory.Item, []uuid.UUID, error) {
	items := make(map[uuid.UUID]*inventory.Item, len(input.LineItems))
	order := make([]uuid.UUID, 0, len(input.LineItems))
	var created []uuid.UUID

	for idx, lineIn := range input.LineItems {
		item, isNew, err := resolveItem(ctx, repos, lineIn, input.itemCreationAllowed(), items)
		if err != nil {
			return nil, nil, lineError(idx, err)
		}
		if _, seen := items[item.ID]; !seen {
			items[item.ID] = item
			order = append(order, item.ID)
		}
		if isNew {
			created = append(created, item.ID)
		}

		mrp := item.MrpPrice
		if lineIn.MrpPrice.Valid {
			mrp = lineIn.MrpPrice.Decimal
		}
		line, err := purchase.AddLine(item.ID, lineIn.QuantityUnits, lineIn.UnitCostPrice, mrp)
		if err != nil {
			return nil, nil, lineError(idx, err)
		}

		updatePricing, err := shouldUpdateItemPricing(ctx, repos, item.ID, purchase.PurchaseDate)
		if err != nil {
			return nil, nil, err
		}
		if err := item.ReceiveStock(line.QuantityUnits, line.UnitCostPrice); err != nil {
			return nil, nil, lineError(idx, err)
		}
		if updatePricing {
			item.ApplyPricing(line.MrpPriceAtPurchase, line.UnitCostPrice)
		}
	}

	for _, id := range order {
		if err := repos.ItemRepo().SaveWithLock(ctx, items[id]); err != nil {
			return nil, nil, err
		}
	}
	return items, created, nil
}

// resolveItem finds the item a purchase line refers to: by ID first, then by
// SKU, else it creates the item when allowed. cache holds items already locked
// in this settlement.
func resolveItem(ctx context.Context, repos TransactionalRepositories, line PurchaseLineInput, allowCreation bool, cache map[uuid.UUID]*inventory.Item) (*inventory.Item, bool, error) {
	if line.ItemID != nil {
		if cached, ok := cache[*line.ItemID]; ok {
			return cached, false, nil
		}
		item, err := lockItem(ctx, repos, *line.ItemID)
		return item, false, err
	}

	sku := strings.TrimSpace(line.SKU)
	if sku != "" {
		for _, cached := range cache {
			if cached.SKU == sku {
				return cached, false, nil
			}
		}
		found, err := repos.ItemRepo().FindBySKU(ctx, sku)
		if err == nil {
			item, err := lockItem(ctx, repos, found.ID)
			return item, false, err
		}
		if !shared.IsNotFound(err) {
			return nil, false, err
		}
	}

	if !allowCreation {
		if sku == "" {
			return nil, false, shared.NewValidationError("Item ID or SKU is required")
		}
		return nil, false, shared.NewNotFoundError("Item with SKU", sku)
	}
	if sku == "" || strings.TrimSpace(line.Name) == "" {
		return nil, false, shared.NewValidationError("SKU and name are required to create a new item")
	}

	item, err := inventory.NewItem(sku, line.Name)
	if err != nil {
		return nil, false, err
	}
	item.Brand = strings.TrimSpace(line.Brand)
	item.Category = strings.TrimSpace(line.Category)
	item.SizeML = line.SizeML
	if line.PackSize > 0 {
		item.PackSize = line.PackSize
	}
	if err := repos.ItemRepo().Create(ctx, item); err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// shouldUpdateItemPricing reports whether a purchase dated purchaseDate is the
// item's newest, so that its MRP and cost become the item's current pricing.
// Backdated purchases leave the pricing of later purchases in place.
func shouldUpdateItemPricing(ctx context.Context, repos TransactionalRepositories, itemID uuid.UUID, purchaseDate time.Time) (bool, error) {
	latest, err := repos.PurchaseRepo().LatestPurchaseDateForItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}
	return shared.SameDayOrLater(purchaseDate, *latest), nil
}

// reversePurchaseLines takes a purchase's units back out of stock, one locked
// save per item. Weighted averages are left for reconciliation to rebuild.
func reversePurchaseLines(ctx context.Context, repos TransactionalRepositories, purchase *trade.Purchase) error {
	qty := make(map[uuid.UUID]int, len(purchase.LineItems))
	for _, line := range purchase.LineItems {
		qty[line.ItemID] += line.QuantityUnits
	}
	for _, itemID := range purchase.ItemIDs() {
		item, err := lockItem(ctx, repos, itemID)
		if err != nil {
			return err
		}
		item.ReverseReceipt(qty[itemID])
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func purchaseHeader(input CreatePurchaseInput) (trade.PurchaseHeader, error) {
	if err := validateInput(input); err != nil {
		return trade.PurchaseHeader{}, err
	}
	if len(input.LineItems) == 0 {
		return trade.PurchaseHeader{}, shared.NewDomainError(shared.CodeEmptyLines, "A purchase needs at least one line item")
	}
	date, err := shared.ParseBusinessDate(input.PurchaseDate)
	if err != nil {
		return trade.PurchaseHeader{}, err
	}
	return trade.PurchaseHeader{
		PurchaseDate:         date,
		SupplierName:         input.SupplierName,
		Notes:                input.Notes,
		TaxAmount:            input.TaxAmount,
		MiscellaneousCharges: input.MiscellaneousCharges,
	}, nil
}

func findPurchase(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*trade.Purchase, error) {
	purchase, err := repos.PurchaseRepo().FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Purchase", id.String())
		}
		return nil, err
	}
	return purchase, nil
}

func lockItem(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*inventory.Item, error) {
	item, err := repos.ItemRepo().FindByIDForUpdate(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Item", id.String())
		}
		return nil, err
	}
	return item, nil
}

// lineError prefixes domain errors with the 1-based line number, keeping the code
func lineError(idx int, err error) error {
	if de, ok := err.(*shared.DomainError); ok && de.Kind() == shared.KindValidation {
		return shared.NewDomainError(de.Code, fmt.Sprintf("Line %d: %s", idx+1, de.Message))
	}
	return err
}
