package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/liquorledger/backend/internal/application/settlement"
	"github.com/liquorledger/backend/internal/interfaces/http/dto"
)

// DayEndReportHandler handles day-end sales settlement endpoints
type DayEndReportHandler struct {
	BaseHandler
	sales *settlement.SalesSettlementService
}

// NewDayEndReportHandler creates a new DayEndReportHandler
func NewDayEndReportHandler(sales *settlement.SalesSettlementService) *DayEndReportHandler {
	return &DayEndReportHandler{sales: sales}
}

// Preview godoc
// @ID           previewDayEndReport
// @Summary      Preview day-end report
// @Description  Compute revenue, cost, profit and shortages without persisting anything
// @Tags         day-end-reports
// @Accept       json
// @Produce      json
// @Param        editing_report_id query string false "Report being edited; its units count as available" format(uuid)
// @Param        request body settlement.DayEndReportInput true "Sales"
// @Success      200 {object} dto.Response{data=settlement.ReportSummary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/preview [post]
func (h *DayEndReportHandler) Preview(c *gin.Context) {
	var query dto.PreviewQuery
	if !h.bindQuery(c, &query) {
		return
	}
	var req settlement.DayEndReportInput
	if !h.bindJSON(c, &req) {
		return
	}

	var editing *uuid.UUID
	if query.EditingReportID != "" {
		id, err := uuid.Parse(query.EditingReportID)
		if err != nil {
			h.BadRequest(c, "Invalid editing report ID format")
			return
		}
		editing = &id
	}

	summary, err := h.sales.PreviewDayEndReport(c.Request.Context(), req, editing)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// Create godoc
// @ID           createDayEndReport
// @Summary      Create day-end report
// @Description  Settle a day of sales: decrements stock and allocates purchase tax and charges into net profit
// @Tags         day-end-reports
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Rejects a repeated create within the TTL"
// @Param        request body settlement.DayEndReportInput true "Sales"
// @Success      201 {object} dto.Response{data=settlement.DayEndReportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports [post]
func (h *DayEndReportHandler) Create(c *gin.Context) {
	var req settlement.DayEndReportInput
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.sales.CreateDayEndReport(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, report)
}

// Update godoc
// @ID           updateDayEndReport
// @Summary      Replace day-end report
// @Description  Restore the report's units, then settle the new lines in place
// @Tags         day-end-reports
// @Accept       json
// @Produce      json
// @Param        id path string true "Report ID" format(uuid)
// @Param        request body settlement.DayEndReportInput true "Sales"
// @Success      200 {object} dto.Response{data=settlement.DayEndReportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/{id} [put]
func (h *DayEndReportHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "report")
	if !ok {
		return
	}
	var req settlement.DayEndReportInput
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.sales.UpdateDayEndReport(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// Delete godoc
// @ID           deleteDayEndReport
// @Summary      Delete day-end report
// @Description  Return the report's units to stock and delete it
// @Tags         day-end-reports
// @Produce      json
// @Param        id path string true "Report ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/{id} [delete]
func (h *DayEndReportHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "report")
	if !ok {
		return
	}

	if err := h.sales.DeleteDayEndReport(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetByID godoc
// @ID           getDayEndReportById
// @Summary      Get day-end report by ID
// @Description  Retrieve a report with its lines
// @Tags         day-end-reports
// @Produce      json
// @Param        id path string true "Report ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.DayEndReportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/{id} [get]
func (h *DayEndReportHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "report")
	if !ok {
		return
	}

	report, err := h.sales.GetDayEndReport(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// GetByDate godoc
// @ID           getDayEndReportByDate
// @Summary      Get day-end report by date
// @Description  Retrieve the report of one business day
// @Tags         day-end-reports
// @Produce      json
// @Param        date path string true "Report date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=settlement.DayEndReportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/by-date/{date} [get]
func (h *DayEndReportHandler) GetByDate(c *gin.Context) {
	report, err := h.sales.GetDayEndReportByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// List godoc
// @ID           listDayEndReports
// @Summary      List day-end reports
// @Description  List report headers by date range
// @Tags         day-end-reports
// @Produce      json
// @Param        search query string false "Search text"
// @Param        from query string false "First date (YYYY-MM-DD)"
// @Param        to query string false "Last date (YYYY-MM-DD)"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]settlement.DayEndReportListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports [get]
func (h *DayEndReportHandler) List(c *gin.Context) {
	var filter settlement.DateRangeFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	reports, total, err := h.sales.ListDayEndReports(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, reports, total, filter.Page, filter.PageSize)
}

// Export godoc
// @ID           exportDayEndReport
// @Summary      Export day-end report
// @Description  Download the report as an XLSX workbook
// @Tags         day-end-reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Report ID" format(uuid)
// @Success      200 {file} file "XLSX workbook"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /day-end-reports/{id}/export [get]
func (h *DayEndReportHandler) Export(c *gin.Context) {
	id, ok := h.pathID(c, "report")
	if !ok {
		return
	}

	exported, err := h.sales.ExportDayEndReport(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exported.FileName))
	c.Data(http.StatusOK, settlement.XLSXContentType, exported.Content.Bytes())
}
