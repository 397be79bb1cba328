package settlement_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/liquorledger/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixture wires the settlement services to a private in-memory SQLite database
type fixture struct {
	repos      *settlement.Repositories
	purchases  *settlement.PurchaseSettlementService
	sales      *settlement.SalesSettlementService
	items      *settlement.ItemQueryService
	reconciler *settlement.ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, persistence.AutoMigrate(database.DB))

	scope := persistence.NewGormTransactionScope(database.DB)
	reads := persistence.NewRepositories(database.DB)
	reconciler := settlement.NewReconciliationService(scope)
	fallbacks := settlement.DefaultFallbacks()

	return &fixture{
		repos:      reads,
		purchases:  settlement.NewPurchaseSettlementService(scope, reads, reconciler),
		sales:      settlement.NewSalesSettlementService(scope, reads, fallbacks),
		items:      settlement.NewItemQueryService(reads, fallbacks),
		reconciler: reconciler,
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullMoney(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: money(s), Valid: true}
}

func date(d int) string {
	return fmt.Sprintf("2024-03-%02d", d)
}

// line builds a purchase line identifying its item by SKU
func line(sku, name string, qty int, cost, mrp string) settlement.PurchaseLineInput {
	return settlement.PurchaseLineInput{
		SKU:           sku,
		Name:          name,
		QuantityUnits: qty,
		UnitCostPrice: money(cost),
		MrpPrice:      nullMoney(mrp),
	}
}

func sale(sku string, qty int) settlement.SaleLineInput {
	return settlement.SaleLineInput{SKU: sku, QuantitySoldUnits: qty}
}

func (f *fixture) purchase(t *testing.T, day int, lines ...settlement.PurchaseLineInput) *settlement.PurchaseResult {
	t.Helper()
	result, err := f.purchases.CreatePurchase(context.Background(), settlement.CreatePurchaseInput{
		PurchaseDate: date(day),
		SupplierName: "Metro Spirits",
		LineItems:    lines,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) report(t *testing.T, day int, lines ...settlement.SaleLineInput) *settlement.DayEndReportResult {
	t.Helper()
	result, err := f.sales.CreateDayEndReport(context.Background(), settlement.DayEndReportInput{
		ReportDate: date(day),
		Lines:      lines,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) item(t *testing.T, sku string) *inventory.Item {
	t.Helper()
	item, err := f.repos.Items.FindBySKU(context.Background(), sku)
	require.NoError(t, err)
	return item
}

func requireMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, money(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func requireNullMoney(t *testing.T, expected string, actual decimal.NullDecimal) {
	t.Helper()
	require.True(t, actual.Valid, "expected %s, got null", expected)
	requireMoney(t, expected, actual.Decimal)
}
