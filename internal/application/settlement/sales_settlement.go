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
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Fallbacks are the process-level values used when the settings row leaves a field unset
type Fallbacks struct {
	BeltMarkupRupees  decimal.Decimal
	LowStockThreshold int
}

// DefaultFallbacks returns a belt markup of 20 rupees and a low-stock threshold of 10 units
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		BeltMarkupRupees:  trade.DefaultBeltMarkupRupees,
		LowStockThreshold: 10,
	}
}

// FallbacksFromConfig converts the settlement config section
func FallbacksFromConfig(cfg config.SettlementConfig) Fallbacks {
	f := DefaultFallbacks()
	if cfg.DefaultBeltMarkupRupees >= 0 {
		f.BeltMarkupRupees = shared.MoneyFromFloat(cfg.DefaultBeltMarkupRupees)
	}
	if cfg.DefaultLowStockThreshold > 0 {
		f.LowStockThreshold = cfg.DefaultLowStockThreshold
	}
	return f
}

// SalesSettlementService settles day-end reports: it prices the day's sales,
// takes the units out of stock and allocates purchase charges into net profit.
type SalesSettlementService struct {
	txScope   TransactionScope
	reads     TransactionalRepositories
	fallbacks Fallbacks
	recorder  Recorder
}

// NewSalesSettlementService creates a new SalesSettlementService
func NewSalesSettlementService(txScope TransactionScope, reads TransactionalRepositories, fallbacks Fallbacks) *SalesSettlementService {
	return &SalesSettlementService{
		txScope:   txScope,
		reads:     reads,
		fallbacks: fallbacks,
		recorder:  noopRecorder{},
	}
}

// SetRecorder sets the observer of settlement outcomes
func (s *SalesSettlementService) SetRecorder(r Recorder) {
	s.recorder = r
}

// preparedSale holds priced lines and the shortages they would cause
type preparedSale struct {
	lines     []trade.DayEndReportLine
	items     map[uuid.UUID]*inventory.Item
	itemOrder []uuid.UUID
	shortages []Shortage
}

// PreviewDayEndReport prices the input without writing anything. When
// editingReportID names an existing report, that report's units count as
// available again, as they would be once the edit reverses them.
func (s *SalesSettlementService) PreviewDayEndReport(ctx context.Context, input DayEndReportInput, editingReportID *uuid.UUID) (summary *ReportSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.preview_day_end_report",
		attribute.Int("lines", len(input.Lines)))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	var restored map[uuid.UUID]int
	if editingReportID != nil {
		report, err := findReport(ctx, s.reads, *editingReportID)
		if err != nil {
			return nil, err
		}
		restored = trade.ItemQuantities(report.Lines)
	}

	beltMarkup, err := s.resolveBeltMarkup(ctx, s.reads, input)
	if err != nil {
		return nil, err
	}
	prepared, err := prepareLines(ctx, s.reads, input, beltMarkup, restored, false)
	if err != nil {
		return nil, err
	}

	result := toSummary(trade.ComputeSalesTotals(prepared.lines), prepared.shortages, beltMarkup)
	return &result, nil
}

// CreateDayEndReport settles a new day. It fails with DUPLICATE_REPORT_DATE
// when the date is already settled and with INSUFFICIENT_STOCK listing every
// short item when stock does not cover the sales.
func (s *SalesSettlementService) CreateDayEndReport(ctx context.Context, input DayEndReportInput) (result *DayEndReportResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.create_day_end_report",
		attribute.String("report_date", input.ReportDate),
		attribute.Int("lines", len(input.Lines)))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindDayEndReport, "create", err)
	}()

	reportDate, err := reportDateOf(input)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureDateFree(ctx, repos, reportDate, nil); err != nil {
			return err
		}
		beltMarkup, err := s.resolveBeltMarkup(ctx, repos, input)
		if err != nil {
			return err
		}
		report, err := trade.NewDayEndReport(reportDate, beltMarkup, input.Notes)
		if err != nil {
			return err
		}

		items, err := s.settleReport(ctx, repos, report, input)
		if err != nil {
			return err
		}
		res := ToDayEndReportResult(report, items)
		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logSettledReport(ctx, "day-end report settled", result)
	return result, nil
}

// UpdateDayEndReport re-settles an existing report: its units go back to
// stock, then the new lines are settled as on create against that stock.
func (s *SalesSettlementService) UpdateDayEndReport(ctx context.Context, id uuid.UUID, input DayEndReportInput) (result *DayEndReportResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.update_day_end_report",
		attribute.String("report_id", id.String()),
		attribute.Int("lines", len(input.Lines)))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindDayEndReport, "update", err)
	}()

	reportDate, err := reportDateOf(input)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		report, err := findReport(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := ensureDateFree(ctx, repos, reportDate, &report.ID); err != nil {
			return err
		}

		if err := releaseReportLines(ctx, repos, report); err != nil {
			return err
		}
		if err := repos.ReportRepo().DeleteLines(ctx, report.ID); err != nil {
			return err
		}

		beltMarkup, err := s.resolveBeltMarkup(ctx, repos, input)
		if err != nil {
			return err
		}
		if err := report.UpdateHeader(reportDate, beltMarkup, input.Notes); err != nil {
			return err
		}

		items, err := s.settleReport(ctx, repos, report, input)
		if err != nil {
			return err
		}
		res := ToDayEndReportResult(report, items)
		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logSettledReport(ctx, "day-end report updated", result)
	return result, nil
}

// DeleteDayEndReport removes a report and returns its units to stock
func (s *SalesSettlementService) DeleteDayEndReport(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "settlement.delete_day_end_report",
		attribute.String("report_id", id.String()))
	defer func() {
		telemetry.EndSpan(span, err)
		s.recorder.RecordSettlement(ctx, KindDayEndReport, "delete", err)
	}()

	var units int
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		report, err := findReport(ctx, repos, id)
		if err != nil {
			return err
		}
		units = report.TotalUnitsSold

		if err := releaseReportLines(ctx, repos, report); err != nil {
			return err
		}
		return repos.ReportRepo().Delete(ctx, report.ID)
	})
	if err != nil {
		return err
	}

	logger.L(ctx).Info("day-end report deleted",
		zap.String("report_id", id.String()),
		zap.Int("units_restored", units),
	)
	return nil
}

// GetDayEndReport retrieves a report with its lines
func (s *SalesSettlementService) GetDayEndReport(ctx context.Context, id uuid.UUID) (*DayEndReportResult, error) {
	report, err := findReport(ctx, s.reads, id)
	if err != nil {
		return nil, err
	}
	return s.toResult(ctx, report)
}

// GetDayEndReportByDate retrieves the report settled for a YYYY-MM-DD date
func (s *SalesSettlementService) GetDayEndReportByDate(ctx context.Context, date string) (*DayEndReportResult, error) {
	reportDate, err := shared.ParseBusinessDate(date)
	if err != nil {
		return nil, err
	}
	report, err := s.reads.ReportRepo().FindByDate(ctx, reportDate)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Day-end report for", shared.FormatBusinessDate(reportDate))
		}
		return nil, err
	}
	return s.toResult(ctx, report)
}

// ListDayEndReports lists report headers
func (s *SalesSettlementService) ListDayEndReports(ctx context.Context, filter DateRangeFilter) ([]DayEndReportListItemResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "report_date"
	}
	domainFilter, err := dateRangeFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	reports, total, err := s.reads.ReportRepo().FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToDayEndReportListItemResponses(reports), total, nil
}

func (s *SalesSettlementService) toResult(ctx context.Context, report *trade.DayEndReport) (*DayEndReportResult, error) {
	items, err := s.reads.ItemRepo().FindByIDs(ctx, report.ItemIDs())
	if err != nil {
		return nil, err
	}
	result := ToDayEndReportResult(report, itemsByID(items))
	return &result, nil
}

// resolveBeltMarkup picks the report's belt markup: the input's, else the
// settings row's, else the configured fallback.
func (s *SalesSettlementService) resolveBeltMarkup(ctx context.Context, repos TransactionalRepositories, input DayEndReportInput) (decimal.Decimal, error) {
	if input.BeltMarkupRupees.Valid {
		if input.BeltMarkupRupees.Decimal.IsNegative() {
			return decimal.Zero, shared.NewValidationError("Belt markup cannot be negative")
		}
		return shared.RoundMoney(input.BeltMarkupRupees.Decimal), nil
	}
	settings, err := repos.SettingRepo().Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return shared.RoundMoney(settings.BeltMarkupOr(s.fallbacks.BeltMarkupRupees)), nil
}

// settleReport prices the input onto report, allocates purchase charges,
// persists the report and takes the sold units out of stock. It returns the
// sold items by ID.
func (s *SalesSettlementService) settleReport(ctx context.Context, repos TransactionalRepositories, report *trade.DayEndReport, input DayEndReportInput) (map[uuid.UUID]*inventory.Item, error) {
	if len(input.Lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeEmptyLines, "A day-end report needs at least one sale line")
	}

	prepared, err := prepareLines(ctx, repos, input, report.BeltMarkupRupees, nil, true)
	if err != nil {
		return nil, err
	}
	if len(prepared.shortages) > 0 {
		logger.L(ctx).Warn("day-end report rejected for insufficient stock",
			zap.String("report_date", shared.FormatBusinessDate(report.ReportDate)),
			zap.Int("shortages", len(prepared.shortages)),
		)
		return nil, shortageError(prepared.shortages)
	}

	report.ReplaceLines(prepared.lines)
	if err := allocatePurchaseCharges(ctx, repos, report); err != nil {
		return nil, err
	}

	if err := repos.ReportRepo().Save(ctx, report); err != nil {
		return nil, err
	}
	if err := repos.ReportRepo().SaveLines(ctx, report); err != nil {
		return nil, err
	}

	sold := trade.ItemQuantities(report.Lines)
	for _, itemID := range prepared.itemOrder {
		item := prepared.items[itemID]
		if err := item.RemoveStock(sold[itemID]); err != nil {
			return nil, err
		}
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return nil, err
		}
	}
	return prepared.items, nil
}

// prepareLines resolves and prices every sale line and collects, rather than
// throws, the shortages: units needed per item against its current stock plus
// any units restored by the report being edited. lock takes row locks on the
// items for a settlement; previews read without them.
func prepareLines(ctx context.Context, repos TransactionalRepositories, input DayEndReportInput, beltMarkup decimal.Decimal, restored map[uuid.UUID]int, lock bool) (*preparedSale, error) {
	prepared := &preparedSale{
		lines: make([]trade.DayEndReportLine, 0, len(input.Lines)),
		items: make(map[uuid.UUID]*inventory.Item, len(input.Lines)),
	}
	needed := make(map[uuid.UUID]int, len(input.Lines))

	for idx, lineIn := range input.Lines {
		item, err := resolveSaleItem(ctx, repos, lineIn, prepared.items, lock)
		if err != nil {
			return nil, lineError(idx, err)
		}
		if _, seen := needed[item.ID]; !seen {
			prepared.items[item.ID] = item
			prepared.itemOrder = append(prepared.itemOrder, item.ID)
		}

		channel, err := trade.ParseSalesChannel(lineIn.Channel)
		if err != nil {
			return nil, lineError(idx, err)
		}
		price := trade.SellingPrice(channel, lineIn.SellingPricePerUnit, item.MrpPrice, beltMarkup)
		line, err := trade.NewDayEndReportLine(item.ID, channel, lineIn.QuantitySoldUnits, price, item.CostBasis())
		if err != nil {
			return nil, lineError(idx, err)
		}
		prepared.lines = append(prepared.lines, *line)
		needed[item.ID] += lineIn.QuantitySoldUnits
	}

	for _, itemID := range prepared.itemOrder {
		item := prepared.items[itemID]
		available := item.CurrentStockUnits + restored[itemID]
		if needed[itemID] > available {
			prepared.shortages = append(prepared.shortages, Shortage{
				ItemID:    itemID,
				ItemName:  item.Name,
				Needed:    needed[itemID],
				Available: available,
			})
		}
	}
	return prepared, nil
}

func resolveSaleItem(ctx context.Context, repos TransactionalRepositories, line SaleLineInput, cache map[uuid.UUID]*inventory.Item, lock bool) (*inventory.Item, error) {
	var id uuid.UUID
	switch {
	case line.ItemID != nil:
		id = *line.ItemID
	case strings.TrimSpace(line.SKU) != "":
		found, err := repos.ItemRepo().FindBySKU(ctx, line.SKU)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.NewDomainError(shared.CodeUnknownItem, "Unknown item: "+strings.TrimSpace(line.SKU))
			}
			return nil, err
		}
		id = found.ID
	default:
		return nil, shared.NewDomainError(shared.CodeUnknownItem, "Unknown item: item ID or SKU is required")
	}

	if cached, ok := cache[id]; ok {
		return cached, nil
	}
	var (
		item *inventory.Item
		err  error
	)
	if lock {
		item, err = repos.ItemRepo().FindByIDForUpdate(ctx, id)
	} else {
		item, err = repos.ItemRepo().FindByID(ctx, id)
	}
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError(shared.CodeUnknownItem, "Unknown item: "+id.String())
		}
		return nil, err
	}
	return item, nil
}

// allocatePurchaseCharges charges the report its share of the tax and
// miscellaneous charges of every purchase dated on or before the report.
func allocatePurchaseCharges(ctx context.Context, repos TransactionalRepositories, report *trade.DayEndReport) error {
	purchases, err := repos.PurchaseRepo().FindOnOrBefore(ctx, report.ReportDate)
	if err != nil {
		return err
	}
	taxMisc, itemCost := decimal.Zero, decimal.Zero
	for i := range purchases {
		taxMisc = taxMisc.Add(purchases[i].TaxAndMisc())
		itemCost = itemCost.Add(purchases[i].ItemCost())
	}
	report.AllocateTaxMisc(taxMisc, itemCost)
	return nil
}

// releaseReportLines returns a report's sold units to stock, one locked save per item
func releaseReportLines(ctx context.Context, repos TransactionalRepositories, report *trade.DayEndReport) error {
	sold := trade.ItemQuantities(report.Lines)
	for _, itemID := range report.ItemIDs() {
		item, err := lockItem(ctx, repos, itemID)
		if err != nil {
			return err
		}
		item.ReleaseStock(sold[itemID])
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func ensureDateFree(ctx context.Context, repos TransactionalRepositories, reportDate time.Time, excludeID *uuid.UUID) error {
	exists, err := repos.ReportRepo().ExistsByDate(ctx, reportDate, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewConflictError(shared.CodeDuplicateReportDate,
			"A day-end report already exists for "+shared.FormatBusinessDate(reportDate))
	}
	return nil
}

func shortageError(shortages []Shortage) error {
	parts := make([]string, len(shortages))
	for i, sh := range shortages {
		parts[i] = fmt.Sprintf("%s (needs %d, has %d)", sh.ItemName, sh.Needed, sh.Available)
	}
	return shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient stock: "+strings.Join(parts, ", "))
}

func reportDateOf(input DayEndReportInput) (time.Time, error) {
	if err := validateInput(input); err != nil {
		return time.Time{}, err
	}
	return shared.ParseBusinessDate(input.ReportDate)
}

func findReport(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*trade.DayEndReport, error) {
	report, err := repos.ReportRepo().FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Day-end report", id.String())
		}
		return nil, err
	}
	return report, nil
}

func logSettledReport(ctx context.Context, msg string, r *DayEndReportResult) {
	logger.L(ctx).Info(msg,
		zap.String("report_id", r.ID.String()),
		zap.String("report_date", r.ReportDate),
		zap.Int("units", r.TotalUnitsSold),
		zap.String("sales", r.TotalSalesAmount.StringFixed(shared.MoneyPlaces)),
		zap.String("net_profit", r.TotalNetProfit.StringFixed(shared.MoneyPlaces)),
	)
}
