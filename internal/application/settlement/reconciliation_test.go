package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileItems(t *testing.T) {
	ctx := context.Background()

	t.Run("folds in manual adjustments", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		item := f.item(t, "OM-750")

		breakage, err := inventory.NewStockAdjustment(item.ID, -2, time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC), "breakage")
		require.NoError(t, err)
		require.NoError(t, f.repos.Adjustments.Save(ctx, breakage))
		assert.Equal(t, 10, f.item(t, "OM-750").CurrentStockUnits)

		items, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{item.ID, item.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 8, items[0].CurrentStockUnits)
		requireNullMoney(t, "80", items[0].WeightedAvgCostPrice)
		requireNullMoney(t, "640", items[0].TotalInventoryValue)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))
		f.report(t, 3, sale("OM-750", 4))
		id := f.item(t, "OM-750").ID

		first, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{id})
		require.NoError(t, err)
		second, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{id})
		require.NoError(t, err)

		assert.Equal(t, 11, second[0].CurrentStockUnits)
		assert.True(t, first[0].WeightedAvgCostPrice.Decimal.Equal(second[0].WeightedAvgCostPrice.Decimal))
		requireNullMoney(t, "83.3333", second[0].WeightedAvgCostPrice)
		requireMoney(t, "130", second[0].MrpPrice)
		assert.Equal(t, first[0].Version+1, second[0].Version)
	})

	t.Run("restarts the average after a sell-out", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.report(t, 2, sale("OM-750", 10))
		f.purchase(t, 3, line("OM-750", "Old Monk 750ml", 4, "100", "140"))
		id := f.item(t, "OM-750").ID

		items, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{id})
		require.NoError(t, err)
		assert.Equal(t, 4, items[0].CurrentStockUnits)
		requireNullMoney(t, "100", items[0].WeightedAvgCostPrice)
	})

	t.Run("negative history aborts", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 2, "80", "120"))
		item := f.item(t, "OM-750")

		loss, err := inventory.NewStockAdjustment(item.ID, -5, time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC), "count")
		require.NoError(t, err)
		require.NoError(t, f.repos.Adjustments.Save(ctx, loss))

		_, err = f.reconciler.ReconcileItems(ctx, []uuid.UUID{item.ID})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeNegativeStock))
		assert.Equal(t, 2, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("unknown item is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{uuid.New()})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("requires at least one item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reconciler.ReconcileItems(ctx, nil)
		assert.True(t, shared.IsValidation(err))
	})
}
