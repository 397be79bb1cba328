package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
)

// ItemQueryService answers read-only questions about the item ledger
type ItemQueryService struct {
	reads     TransactionalRepositories
	fallbacks Fallbacks
}

// NewItemQueryService creates a new ItemQueryService
func NewItemQueryService(reads TransactionalRepositories, fallbacks Fallbacks) *ItemQueryService {
	return &ItemQueryService{reads: reads, fallbacks: fallbacks}
}

// GetItem retrieves an item by ID
func (s *ItemQueryService) GetItem(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.reads.ItemRepo().FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Item", id.String())
		}
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// ListItems lists items with filtering and pagination
func (s *ItemQueryService) ListItems(ctx context.Context, filter ItemListFilter) ([]ItemResponse, int64, error) {
	if err := validateInput(filter); err != nil {
		return nil, 0, err
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		if filter.OrderDir == "" {
			filter.OrderDir = "asc"
		}
	}

	domainFilter := newFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search)
	if filter.Category != "" {
		domainFilter.Filters["category"] = filter.Category
	}
	if filter.IsActive != nil {
		domainFilter.Filters["is_active"] = *filter.IsActive
	}

	items, total, err := s.reads.ItemRepo().FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToItemResponses(items), total, nil
}

// ListLowStockItems lists active items at or below their reorder level. Items
// without one use the settings threshold, else the configured fallback.
func (s *ItemQueryService) ListLowStockItems(ctx context.Context) ([]ItemResponse, error) {
	settings, err := s.reads.SettingRepo().Get(ctx)
	if err != nil {
		return nil, err
	}
	threshold := settings.LowStockThresholdOr(s.fallbacks.LowStockThreshold)

	items, err := s.reads.ItemRepo().FindLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	return ToItemResponses(items), nil
}

// GetInventoryValuation sums the value and units of stock on hand
func (s *ItemQueryService) GetInventoryValuation(ctx context.Context) (*ValuationResponse, error) {
	v, err := s.reads.ItemRepo().SumValuation(ctx)
	if err != nil {
		return nil, err
	}
	return &ValuationResponse{
		TotalValue: shared.RoundMoney(v.TotalValue),
		TotalUnits: v.TotalUnits,
		ItemCount:  v.ItemCount,
	}, nil
}

// StockPosition reports valuation, units and low-stock count for the inventory gauges
func (s *ItemQueryService) StockPosition(ctx context.Context) (telemetry.InventorySnapshot, error) {
	v, err := s.GetInventoryValuation(ctx)
	if err != nil {
		return telemetry.InventorySnapshot{}, err
	}
	low, err := s.ListLowStockItems(ctx)
	if err != nil {
		return telemetry.InventorySnapshot{}, err
	}
	value, _ := v.TotalValue.Float64()
	return telemetry.InventorySnapshot{
		Value:         value,
		Units:         v.TotalUnits,
		LowStockItems: int64(len(low)),
	}, nil
}
