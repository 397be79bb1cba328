package settlement

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "Summary"
	linesSheet   = "Lines"
)

var lineHeadings = []string{
	"Line", "SKU", "Item", "Channel", "Units", "Selling Price", "Cost Price",
	"Revenue", "Cost", "Profit", "Net Profit",
}

// ExportedReport is a rendered workbook ready to be sent as a download
type ExportedReport struct {
	FileName string
	Content  *bytes.Buffer
}

// ExportDayEndReport renders a committed report as an XLSX workbook with a
// summary sheet and one row per sale line.
func (s *SalesSettlementService) ExportDayEndReport(ctx context.Context, id uuid.UUID) (*ExportedReport, error) {
	report, err := s.GetDayEndReport(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := renderReportWorkbook(report)
	if err != nil {
		return nil, fmt.Errorf("export day-end report: %w", err)
	}
	return &ExportedReport{
		FileName: fmt.Sprintf("day-end-report-%s.xlsx", report.ReportDate),
		Content:  content,
	}, nil
}

func renderReportWorkbook(report *DayEndReportResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Report Date", report.ReportDate},
		{"Belt Markup", money(report.BeltMarkupRupees)},
		{"Units Sold", report.TotalUnitsSold},
		{"Total Sales", money(report.TotalSalesAmount)},
		{"Retail Revenue", money(report.RetailRevenue)},
		{"Belt Revenue", money(report.BeltRevenue)},
		{"Total Cost", money(report.TotalCost)},
		{"Gross Profit", money(report.TotalProfit)},
		{"Allocated Charges", money(report.AllocatedCharges)},
		{"Net Profit", money(report.TotalNetProfit)},
		{"Profit Margin %", money(report.ProfitMargin)},
		{"Notes", report.Notes},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}
	headings := make([]interface{}, len(lineHeadings))
	for i, h := range lineHeadings {
		headings[i] = h
	}
	if err := setRow(f, linesSheet, 1, headings); err != nil {
		return nil, err
	}
	for i, line := range report.Lines {
		row := []interface{}{
			line.LineNo,
			line.ItemSKU,
			line.ItemName,
			line.Channel,
			line.QuantitySoldUnits,
			money(line.SellingPricePerUnit),
			money(line.CostPriceAtSale),
			money(line.LineRevenue),
			money(line.LineCost),
			money(line.LineProfit),
			money(line.LineNetProfit),
		}
		if err := setRow(f, linesSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

func setRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// money renders an amount with the persisted four decimal places
func money(d decimal.Decimal) string {
	return d.StringFixed(shared.MoneyPlaces)
}
