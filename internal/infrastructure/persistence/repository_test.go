package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/setting"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/domain/trade"
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the schema applied
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, AutoMigrate(database.DB))
	return database.DB
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func createItem(t *testing.T, repo *GormItemRepository, sku, name string) *inventory.Item {
	t.Helper()
	item, err := inventory.NewItem(sku, name)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func createPurchase(t *testing.T, repo *GormPurchaseRepository, date time.Time, lines ...*inventory.Item) *trade.Purchase {
	t.Helper()
	p, err := trade.NewPurchase(trade.PurchaseHeader{PurchaseDate: date, SupplierName: "Metro Spirits"})
	require.NoError(t, err)
	for _, item := range lines {
		_, err := p.AddLine(item.ID, 10, money("80"), money("120"))
		require.NoError(t, err)
	}
	require.NoError(t, repo.Save(context.Background(), p))
	require.NoError(t, repo.SaveLines(context.Background(), p))
	return p
}

func TestGormItemRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and find by sku", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		item := createItem(t, repo, "WHI-750", "Old Monk 750ml")

		found, err := repo.FindBySKU(ctx, " WHI-750 ")
		require.NoError(t, err)
		assert.Equal(t, item.ID, found.ID)
		assert.True(t, found.IsActive)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("duplicate sku is a conflict", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		createItem(t, repo, "WHI-750", "Old Monk 750ml")

		dup, err := inventory.NewItem("WHI-750", "Another")
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeDuplicateSKU))
		assert.True(t, shared.IsConflict(err))
	})

	t.Run("missing item is not found", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("save with lock advances version and rejects stale copies", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		item := createItem(t, repo, "BEER-650", "Kingfisher 650ml")

		stale, err := repo.FindByIDForUpdate(ctx, item.ID)
		require.NoError(t, err)

		require.NoError(t, item.ReceiveStock(10, money("80")))
		require.NoError(t, repo.SaveWithLock(ctx, item))
		assert.Equal(t, 2, item.Version)

		require.NoError(t, stale.ReceiveStock(1, money("70")))
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, reloaded.CurrentStockUnits)
		assert.True(t, reloaded.WeightedAvgCostPrice.Decimal.Equal(money("80")))
		assert.True(t, reloaded.TotalInventoryValue.Decimal.Equal(money("800")))
	})

	t.Run("find by ids, low stock and valuation", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		plenty := createItem(t, repo, "A", "Plenty")
		low := createItem(t, repo, "B", "Low")
		custom := createItem(t, repo, "C", "Custom reorder")

		require.NoError(t, plenty.ReceiveStock(50, money("10")))
		require.NoError(t, repo.SaveWithLock(ctx, plenty))
		require.NoError(t, low.ReceiveStock(4, money("25.5")))
		require.NoError(t, repo.SaveWithLock(ctx, low))
		require.NoError(t, custom.ReceiveStock(20, money("1")))
		require.NoError(t, repo.SaveWithLock(ctx, custom))
		reorder := 30
		require.NoError(t, repo.db.Model(&inventory.Item{}).Where("id = ?", custom.ID).Update("reorder_level", reorder).Error)

		items, err := repo.FindByIDs(ctx, []uuid.UUID{plenty.ID, low.ID})
		require.NoError(t, err)
		assert.Len(t, items, 2)

		lowStock, err := repo.FindLowStock(ctx, 10)
		require.NoError(t, err)
		require.Len(t, lowStock, 2)
		assert.Equal(t, low.ID, lowStock[0].ID)
		assert.Equal(t, custom.ID, lowStock[1].ID)

		v, err := repo.SumValuation(ctx)
		require.NoError(t, err)
		assert.True(t, v.TotalValue.Equal(money("622")), "got %s", v.TotalValue)
		assert.Equal(t, int64(74), v.TotalUnits)
		assert.Equal(t, int64(3), v.ItemCount)
	})

	t.Run("find all searches and paginates", func(t *testing.T) {
		repo := NewGormItemRepository(newTestDB(t))
		createItem(t, repo, "RUM-1", "Old Monk")
		createItem(t, repo, "RUM-2", "Bacardi White")
		createItem(t, repo, "GIN-1", "Bombay Sapphire")

		filter := shared.DefaultFilter()
		filter.Search = "rum"
		filter.OrderBy = "sku"
		filter.OrderDir = "asc"
		filter.PageSize = 1

		items, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 1)
		assert.Equal(t, "RUM-1", items[0].SKU)
	})
}

func TestGormPurchaseRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save, load and upsert header", func(t *testing.T) {
		db := newTestDB(t)
		items := NewGormItemRepository(db)
		repo := NewGormPurchaseRepository(db)
		a := createItem(t, items, "A", "Item A")
		b := createItem(t, items, "B", "Item B")

		p := createPurchase(t, repo, day(5), a, b)

		loaded, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, loaded.LineItems, 2)
		assert.Equal(t, 1, loaded.LineItems[0].LineNo)
		assert.Equal(t, a.ID, loaded.LineItems[0].ItemID)
		assert.True(t, loaded.LineItems[1].LineTotal.Equal(money("800")))

		require.NoError(t, loaded.UpdateHeader(trade.PurchaseHeader{
			PurchaseDate: day(6),
			SupplierName: "New Supplier",
			TaxAmount:    money("50"),
		}))
		require.NoError(t, repo.Save(ctx, loaded))

		reloaded, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Supplier", reloaded.SupplierName)
		assert.True(t, reloaded.PurchaseDate.Equal(day(6)))
		assert.True(t, reloaded.TaxAmount.Equal(money("50")))
		assert.Len(t, reloaded.LineItems, 2)
	})

	t.Run("movements and latest purchase date", func(t *testing.T) {
		db := newTestDB(t)
		items := NewGormItemRepository(db)
		repo := NewGormPurchaseRepository(db)
		a := createItem(t, items, "A", "Item A")

		latest, err := repo.LatestPurchaseDateForItem(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, latest)

		createPurchase(t, repo, day(9), a)
		createPurchase(t, repo, day(3), a)

		latest, err = repo.LatestPurchaseDateForItem(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.True(t, latest.Equal(day(9)))

		movements, err := repo.FindMovementsByItem(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, movements, 2)
		assert.True(t, movements[0].Date.Equal(day(3)))
		assert.Equal(t, inventory.MovementPurchase, movements[0].Kind)
		assert.Equal(t, 10, movements[0].Units)
		assert.True(t, movements[0].UnitCost.Equal(money("80")))
		assert.True(t, movements[0].MrpPrice.Equal(money("120")))
	})

	t.Run("find on or before and list", func(t *testing.T) {
		db := newTestDB(t)
		items := NewGormItemRepository(db)
		repo := NewGormPurchaseRepository(db)
		a := createItem(t, items, "A", "Item A")
		createPurchase(t, repo, day(1), a)
		createPurchase(t, repo, day(2), a)
		createPurchase(t, repo, day(3), a)

		upTo, err := repo.FindOnOrBefore(ctx, day(2))
		require.NoError(t, err)
		require.Len(t, upTo, 2)
		assert.Len(t, upTo[0].LineItems, 1)

		filter := shared.DefaultFilter()
		filter.Filters["from"] = day(2)
		list, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)
	})

	t.Run("delete removes lines", func(t *testing.T) {
		db := newTestDB(t)
		items := NewGormItemRepository(db)
		repo := NewGormPurchaseRepository(db)
		a := createItem(t, items, "A", "Item A")
		p := createPurchase(t, repo, day(1), a)

		require.NoError(t, repo.Delete(ctx, p.ID))

		_, err := repo.FindByID(ctx, p.ID)
		assert.True(t, shared.IsNotFound(err))
		var lines int64
		require.NoError(t, db.Model(&trade.PurchaseLineItem{}).Count(&lines).Error)
		assert.Zero(t, lines)

		assert.True(t, shared.IsNotFound(repo.Delete(ctx, p.ID)))
	})
}

func TestGormDayEndReportRepository(t *testing.T) {
	ctx := context.Background()

	newReport := func(t *testing.T, date time.Time, item *inventory.Item, qty int) *trade.DayEndReport {
		t.Helper()
		r, err := trade.NewDayEndReport(date, money("20"), "")
		require.NoError(t, err)
		line, err := trade.NewDayEndReportLine(item.ID, trade.SalesChannelRetail, qty, money("100"), money("80"))
		require.NoError(t, err)
		r.ReplaceLines([]trade.DayEndReportLine{*line})
		return r
	}

	t.Run("one report per date", func(t *testing.T) {
		db := newTestDB(t)
		a := createItem(t, NewGormItemRepository(db), "A", "Item A")
		repo := NewGormDayEndReportRepository(db)

		first := newReport(t, day(10), a, 5)
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.SaveLines(ctx, first))

		exists, err := repo.ExistsByDate(ctx, day(10), nil)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.ExistsByDate(ctx, day(10), &first.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		err = repo.Save(ctx, newReport(t, day(10), a, 1))
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeDuplicateReportDate))
	})

	t.Run("find by date with lines and sale movements", func(t *testing.T) {
		db := newTestDB(t)
		a := createItem(t, NewGormItemRepository(db), "A", "Item A")
		repo := NewGormDayEndReportRepository(db)

		r := newReport(t, day(11), a, 5)
		require.NoError(t, repo.Save(ctx, r))
		require.NoError(t, repo.SaveLines(ctx, r))

		found, err := repo.FindByDate(ctx, day(11))
		require.NoError(t, err)
		assert.Equal(t, r.ID, found.ID)
		require.Len(t, found.Lines, 1)
		assert.True(t, found.TotalSalesAmount.Equal(money("500")))
		assert.Equal(t, trade.SalesChannelRetail, found.Lines[0].Channel)

		movements, err := repo.FindMovementsByItem(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, inventory.MovementSale, movements[0].Kind)
		assert.Equal(t, 5, movements[0].Units)

		require.NoError(t, repo.Delete(ctx, r.ID))
		_, err = repo.FindByDate(ctx, day(11))
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestGormStockAdjustmentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := createItem(t, NewGormItemRepository(db), "A", "Item A")
	repo := NewGormStockAdjustmentRepository(db)

	breakage, err := inventory.NewStockAdjustment(a.ID, -2, day(4), "breakage")
	require.NoError(t, err)
	recount, err := inventory.NewStockAdjustment(a.ID, 1, day(2), "recount")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, breakage))
	require.NoError(t, repo.Save(ctx, recount))

	found, err := repo.FindByItem(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, 1, found[0].AdjustmentUnits)
	assert.Equal(t, -2, found[1].AdjustmentUnits)
}

func TestGormSettingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSettingRepository(newTestDB(t))

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	threshold := 5
	require.NoError(t, repo.Save(ctx, &setting.Setting{
		DefaultBeltMarkupRupees:  decimal.NewNullDecimal(money("25")),
		DefaultLowStockThreshold: &threshold,
	}))

	s, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.BeltMarkupOr(money("20")).Equal(money("25")))
	assert.Equal(t, 5, s.LowStockThresholdOr(10))
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scope := NewGormTransactionScope(db)

	t.Run("rolls back on error", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos settlement.TransactionalRepositories) error {
			item, err := inventory.NewItem("TX-1", "Rolled back")
			require.NoError(t, err)
			require.NoError(t, repos.ItemRepo().Create(ctx, item))
			return shared.NewValidationError("abort")
		})
		assert.True(t, shared.IsValidation(err))

		_, err = NewGormItemRepository(db).FindBySKU(ctx, "TX-1")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos settlement.TransactionalRepositories) error {
			item, err := inventory.NewItem("TX-2", "Committed")
			require.NoError(t, err)
			return repos.ItemRepo().Create(ctx, item)
		})
		require.NoError(t, err)

		_, err = NewGormItemRepository(db).FindBySKU(ctx, "TX-2")
		assert.NoError(t, err)
	})
}
