package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/application/settlement"
)

// ItemHandler serves item queries and the reconcile command
type ItemHandler struct {
	BaseHandler
	items      *settlement.ItemQueryService
	reconciler *settlement.ReconciliationService
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(items *settlement.ItemQueryService, reconciler *settlement.ReconciliationService) *ItemHandler {
	return &ItemHandler{items: items, reconciler: reconciler}
}

// List godoc
// @ID           listItems
// @Summary      List items
// @Description  List items with search, category and paging
// @Tags         items
// @Produce      json
// @Param        search query string false "SKU or name search"
// @Param        category query string false "Category"
// @Param        is_active query bool false "Active flag"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]settlement.ItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var filter settlement.ItemListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	items, total, err := h.items.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @ID           getItemById
// @Summary      Get item by ID
// @Description  Retrieve an item with its stock and cost figures
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.ItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /items/{id} [get]
func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "item")
	if !ok {
		return
	}

	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// LowStock godoc
// @ID           listLowStockItems
// @Summary      List low-stock items
// @Description  Active items at or below their reorder level, or the store threshold when they have none
// @Tags         items
// @Produce      json
// @Success      200 {object} dto.Response{data=[]settlement.ItemResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /items/low-stock [get]
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.items.ListLowStockItems(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// Valuation godoc
// @ID           getInventoryValuation
// @Summary      Inventory valuation
// @Description  Total value and units of stock on hand across active items
// @Tags         items
// @Produce      json
// @Success      200 {object} dto.Response{data=settlement.ValuationResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /items/valuation [get]
func (h *ItemHandler) Valuation(c *gin.Context) {
	valuation, err := h.items.GetInventoryValuation(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, valuation)
}

// Reconcile godoc
// @ID           reconcileItems
// @Summary      Rebuild items from history
// @Description  Recompute stock, latest prices and weighted average cost of the given items from purchases, sales and adjustments
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request body settlement.ReconcileItemsInput true "Items to rebuild"
// @Success      200 {object} dto.Response{data=[]settlement.ItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /items/reconcile [post]
func (h *ItemHandler) Reconcile(c *gin.Context) {
	var req settlement.ReconcileItemsInput
	if !h.bindJSON(c, &req) {
		return
	}

	items, err := h.reconciler.ReconcileItems(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, settlement.ToItemResponses(items))
}
