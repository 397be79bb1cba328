package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liquorledger/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// OutcomeCommitted labels a settlement that committed
const OutcomeCommitted = "committed"

// InventorySnapshot is the stock position reported by the inventory gauges
type InventorySnapshot struct {
	Value         float64
	Units         int64
	LowStockItems int64
}

// InventorySource reads the current stock position. It is called on every
// metrics collection, so it should be a cheap aggregate query.
type InventorySource func(ctx context.Context) (InventorySnapshot, error)

// SettlementMetrics counts settlement outcomes and observes stock on hand
type SettlementMetrics struct {
	settlements  metric.Int64Counter
	registration metric.Registration
	logger       *zap.Logger
}

// NewSettlementMetrics creates the settlement instruments on meter. Inventory
// gauges are registered only when source is non-nil.
func NewSettlementMetrics(meter metric.Meter, source InventorySource, logger *zap.Logger) (*SettlementMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	settlements, err := meter.Int64Counter("liquor_settlements_total",
		metric.WithDescription("Settlement writes by kind, operation and outcome"),
		metric.WithUnit("{settlements}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create settlements counter: %w", err)
	}
	m := &SettlementMetrics{settlements: settlements, logger: logger}

	if source != nil {
		if err := m.observeInventory(meter, source); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordSettlement counts one settlement write. Failures are labelled with the
// lower-cased domain error code, or "error" for infrastructure failures.
func (m *SettlementMetrics) RecordSettlement(ctx context.Context, kind, operation string, err error) {
	m.settlements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("operation", operation),
		attribute.String("outcome", Outcome(err)),
	))
}

// Outcome maps a settlement error to its metric label
func Outcome(err error) string {
	if err == nil {
		return OutcomeCommitted
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return strings.ToLower(de.Code)
	}
	return "error"
}

// Close unregisters the inventory gauge callback
func (m *SettlementMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func (m *SettlementMetrics) observeInventory(meter metric.Meter, source InventorySource) error {
	value, err := meter.Float64ObservableGauge("liquor_inventory_value",
		metric.WithDescription("Valuation of active stock at weighted-average cost"),
		metric.WithUnit("{rupees}"),
	)
	if err != nil {
		return fmt.Errorf("create inventory value gauge: %w", err)
	}
	units, err := meter.Int64ObservableGauge("liquor_inventory_units",
		metric.WithDescription("Units of active stock on hand"),
		metric.WithUnit("{units}"),
	)
	if err != nil {
		return fmt.Errorf("create inventory units gauge: %w", err)
	}
	lowStock, err := meter.Int64ObservableGauge("liquor_low_stock_items",
		metric.WithDescription("Items at or below their reorder level"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return fmt.Errorf("create low stock gauge: %w", err)
	}

	m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		snapshot, err := source(ctx)
		if err != nil {
			// a failed read skips this collection only
			m.logger.Warn("Inventory metrics collection failed", zap.Error(err))
			return nil
		}
		o.ObserveFloat64(value, snapshot.Value)
		o.ObserveInt64(units, snapshot.Units)
		o.ObserveInt64(lowStock, snapshot.LowStockItems)
		return nil
	}, value, units, lowStock)
	if err != nil {
		return fmt.Errorf("register inventory gauges: %w", err)
	}
	return nil
}
