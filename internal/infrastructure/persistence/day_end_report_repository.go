package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/inventory"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/domain/trade"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDayEndReportRepository implements DayEndReportRepository using GORM
type GormDayEndReportRepository struct {
	db *gorm.DB
}

// NewGormDayEndReportRepository creates a new GormDayEndReportRepository
func NewGormDayEndReportRepository(db *gorm.DB) *GormDayEndReportRepository {
	return &GormDayEndReportRepository{db: db}
}

func preloadReportLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a report with its lines
func (r *GormDayEndReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.DayEndReport, error) {
	var report trade.DayEndReport
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadReportLines).
		First(&report, "id = ?", id).Error; err != nil {
		return nil, translateError("find day-end report", err)
	}
	return &report, nil
}

// FindByDate finds the report for a business date, with its lines
func (r *GormDayEndReportRepository) FindByDate(ctx context.Context, date time.Time) (*trade.DayEndReport, error) {
	var report trade.DayEndReport
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadReportLines).
		First(&report, "report_date = ?", shared.BusinessDate(date)).Error; err != nil {
		return nil, translateError("find day-end report by date", err)
	}
	return &report, nil
}

// ExistsByDate checks whether a report other than excludeID exists for the date
func (r *GormDayEndReportRepository) ExistsByDate(ctx context.Context, date time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&trade.DayEndReport{}).
		Where("report_date = ?", shared.BusinessDate(date))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translateError("check day-end report date", err)
	}
	return count > 0, nil
}

// FindAll finds report headers. Supported filters: from, to (time.Time, inclusive).
func (r *GormDayEndReportRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.DayEndReport, int64, error) {
	filter = filter.Normalize()
	scope := func(db *gorm.DB) *gorm.DB {
		if from, ok := filter.Filters["from"].(time.Time); ok {
			db = db.Where("report_date >= ?", shared.BusinessDate(from))
		}
		if to, ok := filter.Filters["to"].(time.Time); ok {
			db = db.Where("report_date <= ?", shared.BusinessDate(to))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&trade.DayEndReport{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError("count day-end reports", err)
	}

	var reports []trade.DayEndReport
	if err := r.db.WithContext(ctx).
		Scopes(scope, paginate(filter)).
		Order(orderClause(filter, DayEndReportSortFields, "report_date")).
		Find(&reports).Error; err != nil {
		return nil, 0, translateError("list day-end reports", err)
	}
	return reports, total, nil
}

// Save creates or updates the report header; lines are written by SaveLines.
// A second report for the same date is reported as DUPLICATE_REPORT_DATE.
func (r *GormDayEndReportRepository) Save(ctx context.Context, report *trade.DayEndReport) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(upsertByID).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError(shared.CodeDuplicateReportDate,
				"A day-end report already exists for "+shared.FormatBusinessDate(report.ReportDate))
		}
		return translateError("save day-end report", err)
	}
	return nil
}

// SaveLines inserts the report's lines
func (r *GormDayEndReportRepository) SaveLines(ctx context.Context, report *trade.DayEndReport) error {
	if len(report.Lines) == 0 {
		return nil
	}
	for idx := range report.Lines {
		report.Lines[idx].ReportID = report.ID
	}
	return translateError("save day-end report lines", r.db.WithContext(ctx).Create(&report.Lines).Error)
}

// DeleteLines deletes all lines of a report
func (r *GormDayEndReportRepository) DeleteLines(ctx context.Context, reportID uuid.UUID) error {
	return translateError("delete day-end report lines",
		r.db.WithContext(ctx).Where("report_id = ?", reportID).Delete(&trade.DayEndReportLine{}).Error)
}

// Delete deletes a report and its lines
func (r *GormDayEndReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&trade.DayEndReport{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete day-end report", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type saleMovementRow struct {
	ReportDate        time.Time
	CreatedAt         time.Time
	LineNo            int
	QuantitySoldUnits int
}

// FindMovementsByItem returns every sale line of an item as a dated movement
func (r *GormDayEndReportRepository) FindMovementsByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockMovement, error) {
	var rows []saleMovementRow
	if err := r.db.WithContext(ctx).
		Table("day_end_report_lines AS l").
		Select("d.report_date, l.created_at, l.line_no, l.quantity_sold_units").
		Joins("JOIN day_end_reports AS d ON d.id = l.report_id").
		Where("l.item_id = ?", itemID).
		Order("d.report_date ASC, l.created_at ASC, l.line_no ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError("find sale movements", err)
	}

	movements := make([]inventory.StockMovement, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, inventory.StockMovement{
			Kind:       inventory.MovementSale,
			Date:       row.ReportDate,
			RecordedAt: row.CreatedAt,
			Seq:        row.LineNo,
			Units:      row.QuantitySoldUnits,
		})
	}
	return movements, nil
}

// Ensure GormDayEndReportRepository implements DayEndReportRepository
var _ trade.DayEndReportRepository = (*GormDayEndReportRepository)(nil)
