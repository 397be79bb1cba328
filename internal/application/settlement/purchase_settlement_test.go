package settlement_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("blends the weighted average across purchases", func(t *testing.T) {
		f := newFixture(t)
		first := f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		require.Len(t, first.CreatedItemIDs, 1)

		second := f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))
		assert.Empty(t, second.CreatedItemIDs)

		item := f.item(t, "OM-750")
		assert.Equal(t, 15, item.CurrentStockUnits)
		requireNullMoney(t, "83.3333", item.WeightedAvgCostPrice)
		requireNullMoney(t, "1249.9995", item.TotalInventoryValue)
		requireMoney(t, "130", item.MrpPrice)
		requireNullMoney(t, "90", item.PurchaseCostPrice)
	})

	t.Run("backdated purchase keeps the newer pricing", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 5, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))

		item := f.item(t, "OM-750")
		assert.Equal(t, 15, item.CurrentStockUnits)
		requireMoney(t, "120", item.MrpPrice)
		requireNullMoney(t, "80", item.PurchaseCostPrice)
	})

	t.Run("same-day purchase updates the pricing", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))

		requireMoney(t, "130", f.item(t, "OM-750").MrpPrice)
	})

	t.Run("whole-rupee cost round-trips without drift", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			LineItems: []settlement.PurchaseLineInput{{
				SKU:           "GL-18",
				Name:          "Glenlivet 18",
				QuantityUnits: 1,
				UnitCostPrice: shared.MoneyFromFloat(8987.0),
				MrpPrice:      nullMoney("9999"),
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, "8987.0000", result.LineItems[0].UnitCostPrice.StringFixed(shared.MoneyPlaces))

		item := f.item(t, "GL-18")
		assert.Equal(t, "8987.0000", item.PurchaseCostPrice.Decimal.StringFixed(shared.MoneyPlaces))
		assert.Equal(t, "8987.0000", item.WeightedAvgCostPrice.Decimal.StringFixed(shared.MoneyPlaces))
	})

	t.Run("line without MRP keeps the item's MRP", func(t *testing.T) {
		f := newFixture(t)
		f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		item := f.item(t, "OM-750")

		result, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: date(2),
			LineItems: []settlement.PurchaseLineInput{{
				ItemID:        &item.ID,
				QuantityUnits: 2,
				UnitCostPrice: money("85"),
			}},
		})
		require.NoError(t, err)
		requireMoney(t, "120", result.LineItems[0].MrpPriceAtPurchase)
		assert.Equal(t, "Old Monk 750ml", result.LineItems[0].ItemName)
		requireMoney(t, "120", f.item(t, "OM-750").MrpPrice)
	})

	t.Run("returns totals including charges", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate:         date(1),
			TaxAmount:            money("50"),
			MiscellaneousCharges: money("25"),
			LineItems: []settlement.PurchaseLineInput{
				line("OM-750", "Old Monk 750ml", 10, "80", "120"),
				line("KF-650", "Kingfisher 650ml", 12, "95.5", "140"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 22, result.Totals.TotalUnits)
		requireMoney(t, "1946", result.Totals.ItemCost)
		requireMoney(t, "2021", result.Totals.GrandTotal)
		assert.Equal(t, 2, result.LineItems[1].LineNo)
		assert.Len(t, result.CreatedItemIDs, 2)
	})

	t.Run("rejects a purchase without lines", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{PurchaseDate: date(1)})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeEmptyLines))
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects invalid input before touching the ledger", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: "03/01/2024",
			LineItems:    []settlement.PurchaseLineInput{line("OM-750", "Old Monk", 0, "80", "120")},
		})
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.Contains(t, err.Error(), "purchase_date")
		assert.Contains(t, err.Error(), "line_items[0].quantity_units")
	})

	t.Run("needs SKU and name to create an item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			LineItems:    []settlement.PurchaseLineInput{line("OM-750", "", 1, "80", "120")},
		})
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.Contains(t, err.Error(), "Line 1")
	})

	t.Run("unknown SKU is not found when creation is disabled", func(t *testing.T) {
		f := newFixture(t)
		disallow := false
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate:      date(1),
			LineItems:         []settlement.PurchaseLineInput{line("OM-750", "Old Monk", 1, "80", "120")},
			AllowItemCreation: &disallow,
		})
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("a failing line rolls back the whole purchase", func(t *testing.T) {
		f := newFixture(t)
		missing := uuid.New()
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			LineItems: []settlement.PurchaseLineInput{
				line("OM-750", "Old Monk 750ml", 10, "80", "120"),
				{ItemID: &missing, QuantityUnits: 1, UnitCostPrice: money("10")},
			},
		})
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))

		_, err = f.repos.Items.FindBySKU(ctx, "OM-750")
		assert.True(t, shared.IsNotFound(err))
		_, total, err := f.purchases.ListPurchases(ctx, settlement.DateRangeFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestUpdatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces lines and reconciles old and new items", func(t *testing.T) {
		f := newFixture(t)
		p := f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))

		result, err := f.purchases.UpdatePurchase(ctx, p.ID, settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			SupplierName: "City Wines",
			LineItems: []settlement.PurchaseLineInput{
				line("OM-750", "Old Monk 750ml", 6, "80", "120"),
				line("KF-650", "Kingfisher 650ml", 24, "100", "150"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, p.ID, result.ID)
		assert.Equal(t, "City Wines", result.SupplierName)
		assert.Len(t, result.LineItems, 2)

		om := f.item(t, "OM-750")
		assert.Equal(t, 11, om.CurrentStockUnits)
		requireNullMoney(t, "84.5455", om.WeightedAvgCostPrice)
		requireMoney(t, "130", om.MrpPrice)

		kf := f.item(t, "KF-650")
		assert.Equal(t, 24, kf.CurrentStockUnits)
		requireNullMoney(t, "100", kf.WeightedAvgCostPrice)

		stored, err := f.purchases.GetPurchase(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 30, stored.Totals.TotalUnits)
		assert.Equal(t, "Kingfisher 650ml", stored.LineItems[1].ItemName)
	})

	t.Run("dropping an item takes its units back", func(t *testing.T) {
		f := newFixture(t)
		p := f.purchase(t, 1,
			line("OM-750", "Old Monk 750ml", 10, "80", "120"),
			line("KF-650", "Kingfisher 650ml", 12, "100", "150"),
		)

		_, err := f.purchases.UpdatePurchase(ctx, p.ID, settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			LineItems:    []settlement.PurchaseLineInput{line("OM-750", "Old Monk 750ml", 10, "80", "120")},
		})
		require.NoError(t, err)

		kf := f.item(t, "KF-650")
		assert.Zero(t, kf.CurrentStockUnits)
		assert.False(t, kf.TotalInventoryValue.Valid)
	})

	t.Run("missing purchase is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.purchases.UpdatePurchase(ctx, uuid.New(), settlement.CreatePurchaseInput{
			PurchaseDate: date(1),
			LineItems:    []settlement.PurchaseLineInput{line("OM-750", "Old Monk 750ml", 1, "80", "120")},
		})
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestDeletePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the purchase and its units", func(t *testing.T) {
		f := newFixture(t)
		p1 := f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		p2 := f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))

		require.NoError(t, f.purchases.DeletePurchase(ctx, p2.ID))

		item := f.item(t, "OM-750")
		assert.Equal(t, 10, item.CurrentStockUnits)
		requireNullMoney(t, "80", item.WeightedAvgCostPrice)
		requireMoney(t, "120", item.MrpPrice)
		requireNullMoney(t, "80", item.PurchaseCostPrice)

		_, err := f.purchases.GetPurchase(ctx, p2.ID)
		assert.True(t, shared.IsNotFound(err))
		_, err = f.purchases.GetPurchase(ctx, p1.ID)
		assert.NoError(t, err)
	})

	t.Run("refuses when the units were already sold", func(t *testing.T) {
		f := newFixture(t)
		p := f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
		f.report(t, 2, sale("OM-750", 8))

		err := f.purchases.DeletePurchase(ctx, p.ID)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeNegativeStock))

		assert.Equal(t, 2, f.item(t, "OM-750").CurrentStockUnits)
		_, err = f.purchases.GetPurchase(ctx, p.ID)
		assert.NoError(t, err)
	})

	t.Run("missing purchase is not found", func(t *testing.T) {
		f := newFixture(t)
		err := f.purchases.DeletePurchase(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestListPurchases(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
	f.purchase(t, 3, line("OM-750", "Old Monk 750ml", 5, "90", "130"))
	f.purchase(t, 5, line("OM-750", "Old Monk 750ml", 5, "90", "130"))

	list, total, err := f.purchases.ListPurchases(context.Background(), settlement.DateRangeFilter{
		From:     date(2),
		OrderDir: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, date(3), list[0].PurchaseDate)
	assert.Equal(t, date(5), list[1].PurchaseDate)

	_, _, err = f.purchases.ListPurchases(context.Background(), settlement.DateRangeFilter{To: "yesterday"})
	assert.True(t, shared.IsValidation(err))
}
