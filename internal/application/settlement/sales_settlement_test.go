package settlement_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/domain/setting"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stockedFixture holds 10 Old Monk bought at 80 with MRP 100, and 50 tax plus 25 misc charges
func stockedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	_, err := f.purchases.CreatePurchase(context.Background(), settlement.CreatePurchaseInput{
		PurchaseDate:         date(1),
		TaxAmount:            money("50"),
		MiscellaneousCharges: money("25"),
		LineItems:            []settlement.PurchaseLineInput{line("OM-750", "Old Monk 750ml", 10, "80", "100")},
	})
	require.NoError(t, err)
	return f
}

func TestCreateDayEndReport(t *testing.T) {
	ctx := context.Background()

	t.Run("computes revenue cost and profit", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 5))

		assert.Equal(t, date(2), report.ReportDate)
		assert.Equal(t, 5, report.TotalUnitsSold)
		requireMoney(t, "500", report.TotalSalesAmount)
		requireMoney(t, "500", report.RetailRevenue)
		requireMoney(t, "0", report.BeltRevenue)
		requireMoney(t, "400", report.TotalCost)
		requireMoney(t, "100", report.TotalProfit)
		requireMoney(t, "20", report.ProfitMargin)

		require.Len(t, report.Lines, 1)
		assert.Equal(t, "RETAIL", report.Lines[0].Channel)
		requireMoney(t, "80", report.Lines[0].CostPriceAtSale)

		item := f.item(t, "OM-750")
		assert.Equal(t, 5, item.CurrentStockUnits)
		requireNullMoney(t, "400", item.TotalInventoryValue)
	})

	t.Run("allocates purchase charges into net profit", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 5))

		requireMoney(t, "37.5", report.AllocatedCharges)
		requireMoney(t, "62.5", report.TotalNetProfit)
		assert.True(t, report.TotalNetProfit.LessThan(report.TotalProfit))
		requireMoney(t, "62.5", report.Lines[0].LineNetProfit)

		stored, err := f.sales.GetDayEndReport(ctx, report.ID)
		require.NoError(t, err)
		requireMoney(t, "62.5", stored.TotalNetProfit)
		requireMoney(t, "62.5", stored.Lines[0].LineNetProfit)
		assert.Equal(t, "Old Monk 750ml", stored.Lines[0].ItemName)
	})

	t.Run("ignores purchases dated after the report", func(t *testing.T) {
		f := stockedFixture(t)
		_, err := f.purchases.CreatePurchase(ctx, settlement.CreatePurchaseInput{
			PurchaseDate: date(9),
			TaxAmount:    money("1000"),
			LineItems:    []settlement.PurchaseLineInput{line("KF-650", "Kingfisher 650ml", 10, "100", "150")},
		})
		require.NoError(t, err)

		report := f.report(t, 2, sale("OM-750", 5))
		requireMoney(t, "62.5", report.TotalNetProfit)
	})

	t.Run("splits allocation across lines by cost", func(t *testing.T) {
		f := stockedFixture(t)
		om := f.item(t, "OM-750")
		report, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines: []settlement.SaleLineInput{
				{ItemID: &om.ID, Channel: "RETAIL", QuantitySoldUnits: 3},
				{ItemID: &om.ID, Channel: "BELT", QuantitySoldUnits: 1},
			},
		})
		require.NoError(t, err)

		// cost 320 of 800 purchased: 30 of the 75 charges
		requireMoney(t, "30", report.AllocatedCharges)
		requireMoney(t, "37.5", report.Lines[0].LineNetProfit)
		requireMoney(t, "32.5", report.Lines[1].LineNetProfit)
		assert.Equal(t, 6, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("prices belt sales with the markup", func(t *testing.T) {
		tests := []struct {
			name     string
			input    *string
			settings *string
			expected string
		}{
			{"explicit markup", strPtr("30"), strPtr("25"), "130"},
			{"settings markup", nil, strPtr("25"), "125"},
			{"fallback markup", nil, nil, "120"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := stockedFixture(t)
				if tt.settings != nil {
					require.NoError(t, f.repos.Settings.Save(ctx, &setting.Setting{DefaultBeltMarkupRupees: nullMoney(*tt.settings)}))
				}
				input := settlement.DayEndReportInput{
					ReportDate: date(2),
					Lines:      []settlement.SaleLineInput{{SKU: "OM-750", Channel: "belt", QuantitySoldUnits: 1}},
				}
				if tt.input != nil {
					input.BeltMarkupRupees = nullMoney(*tt.input)
				}

				report, err := f.sales.CreateDayEndReport(ctx, input)
				require.NoError(t, err)
				assert.Equal(t, "BELT", report.Lines[0].Channel)
				requireMoney(t, tt.expected, report.Lines[0].SellingPricePerUnit)
				requireMoney(t, tt.expected, report.BeltRevenue)
			})
		}
	})

	t.Run("explicit selling price wins", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, settlement.SaleLineInput{
			SKU:                 "OM-750",
			Channel:             "BELT",
			QuantitySoldUnits:   2,
			SellingPricePerUnit: nullMoney("110"),
		})
		requireMoney(t, "220", report.TotalSalesAmount)
	})

	t.Run("lists every shortage and persists nothing", func(t *testing.T) {
		f := stockedFixture(t)
		f.purchase(t, 1, line("KF-650", "Kingfisher 650ml", 2, "100", "150"))

		_, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines: []settlement.SaleLineInput{
				sale("OM-750", 12),
				sale("KF-650", 1),
				sale("KF-650", 2),
			},
		})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeInsufficientStock))
		assert.True(t, shared.IsValidation(err))
		assert.Contains(t, err.Error(), "Old Monk 750ml (needs 12, has 10)")
		assert.Contains(t, err.Error(), "Kingfisher 650ml (needs 3, has 2)")

		assert.Equal(t, 10, f.item(t, "OM-750").CurrentStockUnits)
		assert.Equal(t, 2, f.item(t, "KF-650").CurrentStockUnits)
		_, err = f.sales.GetDayEndReportByDate(ctx, date(2))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("one report per date", func(t *testing.T) {
		f := stockedFixture(t)
		f.report(t, 2, sale("OM-750", 1))

		_, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 1)},
		})
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
		assert.True(t, shared.HasCode(err, shared.CodeDuplicateReportDate))
		assert.Contains(t, err.Error(), "2024-03-02")
		assert.Equal(t, 9, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := stockedFixture(t)
		_, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("NOPE", 1)},
		})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeUnknownItem))
	})

	t.Run("rejects a report without lines", func(t *testing.T) {
		f := stockedFixture(t)
		_, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{ReportDate: date(2)})
		assert.True(t, shared.HasCode(err, shared.CodeEmptyLines))
	})

	t.Run("rejects an unknown channel", func(t *testing.T) {
		f := stockedFixture(t)
		_, err := f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{{SKU: "OM-750", Channel: "ONLINE", QuantitySoldUnits: 1}},
		})
		assert.True(t, shared.IsValidation(err))
	})
}

func TestUpdateDayEndReport(t *testing.T) {
	ctx := context.Background()

	t.Run("reducing units returns the difference to stock", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 5))
		before := f.item(t, "OM-750").CurrentStockUnits

		updated, err := f.sales.UpdateDayEndReport(ctx, report.ID, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 3)},
		})
		require.NoError(t, err)
		assert.Equal(t, report.ID, updated.ID)
		assert.Equal(t, 3, updated.TotalUnitsSold)
		assert.Equal(t, before+2, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("may sell units the edit itself releases", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 6))

		_, err := f.sales.UpdateDayEndReport(ctx, report.ID, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 10)},
		})
		require.NoError(t, err)
		assert.Zero(t, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("can move to a free date but not onto another report", func(t *testing.T) {
		f := stockedFixture(t)
		first := f.report(t, 2, sale("OM-750", 1))
		f.report(t, 3, sale("OM-750", 1))

		_, err := f.sales.UpdateDayEndReport(ctx, first.ID, settlement.DayEndReportInput{
			ReportDate: date(3),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 1)},
		})
		assert.True(t, shared.HasCode(err, shared.CodeDuplicateReportDate))

		moved, err := f.sales.UpdateDayEndReport(ctx, first.ID, settlement.DayEndReportInput{
			ReportDate: date(4),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 1)},
		})
		require.NoError(t, err)
		assert.Equal(t, date(4), moved.ReportDate)
	})

	t.Run("shortage leaves the original report intact", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 4))

		_, err := f.sales.UpdateDayEndReport(ctx, report.ID, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 11)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Old Monk 750ml (needs 11, has 10)")

		stored, err := f.sales.GetDayEndReport(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, stored.TotalUnitsSold)
		assert.Equal(t, 6, f.item(t, "OM-750").CurrentStockUnits)
	})

	t.Run("missing report is not found", func(t *testing.T) {
		f := stockedFixture(t)
		_, err := f.sales.UpdateDayEndReport(ctx, uuid.New(), settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 1)},
		})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestDeleteDayEndReport(t *testing.T) {
	ctx := context.Background()
	f := stockedFixture(t)
	report := f.report(t, 2, sale("OM-750", 7))
	assert.Equal(t, 3, f.item(t, "OM-750").CurrentStockUnits)

	require.NoError(t, f.sales.DeleteDayEndReport(ctx, report.ID))
	assert.Equal(t, 10, f.item(t, "OM-750").CurrentStockUnits)

	_, err := f.sales.GetDayEndReport(ctx, report.ID)
	assert.True(t, shared.IsNotFound(err))
	assert.True(t, shared.IsNotFound(f.sales.DeleteDayEndReport(ctx, report.ID)))

	// the date is free again
	f.report(t, 2, sale("OM-750", 1))
}

func TestPreviewDayEndReport(t *testing.T) {
	ctx := context.Background()

	t.Run("summarises without writing", func(t *testing.T) {
		f := stockedFixture(t)
		summary, err := f.sales.PreviewDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines: []settlement.SaleLineInput{
				sale("OM-750", 2),
				{SKU: "OM-750", Channel: "BELT", QuantitySoldUnits: 1},
			},
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.TotalUnits)
		requireMoney(t, "200", summary.RetailRevenue)
		requireMoney(t, "120", summary.BeltRevenue)
		requireMoney(t, "320", summary.TotalRevenue)
		requireMoney(t, "240", summary.TotalCost)
		requireMoney(t, "80", summary.TotalProfit)
		requireMoney(t, "25", summary.ProfitMargin)
		requireMoney(t, "20", summary.BeltMarkupRupees)
		assert.Empty(t, summary.Shortages)

		assert.Equal(t, 10, f.item(t, "OM-750").CurrentStockUnits)
		_, err = f.sales.GetDayEndReportByDate(ctx, date(2))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("records shortages instead of failing", func(t *testing.T) {
		f := stockedFixture(t)
		summary, err := f.sales.PreviewDayEndReport(ctx, settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 12)},
		}, nil)
		require.NoError(t, err)
		require.Len(t, summary.Shortages, 1)
		assert.Equal(t, settlement.Shortage{
			ItemID:    f.item(t, "OM-750").ID,
			ItemName:  "Old Monk 750ml",
			Needed:    12,
			Available: 10,
		}, summary.Shortages[0])
	})

	t.Run("counts the edited report's units as available", func(t *testing.T) {
		f := stockedFixture(t)
		report := f.report(t, 2, sale("OM-750", 5))
		input := settlement.DayEndReportInput{
			ReportDate: date(2),
			Lines:      []settlement.SaleLineInput{sale("OM-750", 8)},
		}

		summary, err := f.sales.PreviewDayEndReport(ctx, input, nil)
		require.NoError(t, err)
		assert.Len(t, summary.Shortages, 1)

		summary, err = f.sales.PreviewDayEndReport(ctx, input, &report.ID)
		require.NoError(t, err)
		assert.Empty(t, summary.Shortages)

		missing := uuid.New()
		_, err = f.sales.PreviewDayEndReport(ctx, input, &missing)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestListDayEndReports(t *testing.T) {
	f := stockedFixture(t)
	f.report(t, 2, sale("OM-750", 1))
	f.report(t, 3, sale("OM-750", 2))
	f.report(t, 4, sale("OM-750", 3))

	list, total, err := f.sales.ListDayEndReports(context.Background(), settlement.DateRangeFilter{
		To:       date(3),
		PageSize: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	assert.Equal(t, date(3), list[0].ReportDate)
	assert.Equal(t, 2, list[0].TotalUnitsSold)

	byDate, err := f.sales.GetDayEndReportByDate(context.Background(), date(4))
	require.NoError(t, err)
	assert.Equal(t, 3, byDate.TotalUnitsSold)
}

func TestStockConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stock := func() int { return f.item(t, "OM-750").CurrentStockUnits }

	p1 := f.purchase(t, 1, line("OM-750", "Old Monk 750ml", 10, "80", "120"))
	p2 := f.purchase(t, 2, line("OM-750", "Old Monk 750ml", 5, "90", "130"))
	assert.Equal(t, 15, stock())

	report := f.report(t, 3, sale("OM-750", 4))
	assert.Equal(t, 11, stock())

	_, err := f.purchases.UpdatePurchase(ctx, p1.ID, settlement.CreatePurchaseInput{
		PurchaseDate: date(1),
		LineItems:    []settlement.PurchaseLineInput{line("OM-750", "Old Monk 750ml", 6, "80", "120")},
	})
	require.NoError(t, err)
	assert.Equal(t, 6+5-4, stock())

	_, err = f.sales.UpdateDayEndReport(ctx, report.ID, settlement.DayEndReportInput{
		ReportDate: date(3),
		Lines:      []settlement.SaleLineInput{sale("OM-750", 1), sale("OM-750", 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 6+5-3, stock())

	require.NoError(t, f.sales.DeleteDayEndReport(ctx, report.ID))
	assert.Equal(t, 11, stock())

	require.NoError(t, f.purchases.DeletePurchase(ctx, p2.ID))
	assert.Equal(t, 6, stock())
	requireNullMoney(t, "80", f.item(t, "OM-750").WeightedAvgCostPrice)

	// the incremental ledger agrees with a full replay
	items, err := f.reconciler.ReconcileItems(ctx, []uuid.UUID{f.item(t, "OM-750").ID})
	require.NoError(t, err)
	assert.Equal(t, 6, items[0].CurrentStockUnits)
}

func strPtr(s string) *string {
	return &s
}

func TestCreateDayEndReport_ConcurrentSettlementsNeverOversell(t *testing.T) {
	f := stockedFixture(t)
	ctx := context.Background()

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sales.CreateDayEndReport(ctx, settlement.DayEndReportInput{
				ReportDate: date(10 + i),
				Lines:      []settlement.SaleLineInput{sale("OM-750", 6)},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			shared.HasCode(err, shared.CodeInsufficientStock) || shared.HasCode(err, shared.CodeConcurrencyConflict),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, f.item(t, "OM-750").CurrentStockUnits)

	reports, total, err := f.sales.ListDayEndReports(ctx, settlement.DateRangeFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, reports, 1)
}
