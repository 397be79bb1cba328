package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/application/settlement"
)

// PurchaseHandler handles purchase settlement endpoints
type PurchaseHandler struct {
	BaseHandler
	purchases *settlement.PurchaseSettlementService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchases *settlement.PurchaseSettlementService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// Create godoc
// @ID           createPurchase
// @Summary      Create purchase
// @Description  Receive stock: settles every line into item stock and weighted average cost in one transaction
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Rejects a repeated create within the TTL"
// @Param        request body settlement.CreatePurchaseInput true "Purchase"
// @Success      201 {object} dto.Response{data=settlement.PurchaseResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req settlement.CreatePurchaseInput
	if !h.bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchases.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, purchase)
}

// Update godoc
// @ID           updatePurchase
// @Summary      Replace purchase
// @Description  Reverse the old lines, apply the new ones and reconcile every affected item
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body settlement.CreatePurchaseInput true "Purchase"
// @Success      200 {object} dto.Response{data=settlement.PurchaseResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases/{id} [put]
func (h *PurchaseHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "purchase")
	if !ok {
		return
	}
	var req settlement.CreatePurchaseInput
	if !h.bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchases.UpdatePurchase(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, purchase)
}

// Delete godoc
// @ID           deletePurchase
// @Summary      Delete purchase
// @Description  Reverse the purchase stock and reconcile affected items
// @Tags         purchases
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases/{id} [delete]
func (h *PurchaseHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "purchase")
	if !ok {
		return
	}

	if err := h.purchases.DeletePurchase(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetByID godoc
// @ID           getPurchaseById
// @Summary      Get purchase by ID
// @Description  Retrieve a purchase with its lines and totals
// @Tags         purchases
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.PurchaseResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases/{id} [get]
func (h *PurchaseHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "purchase")
	if !ok {
		return
	}

	purchase, err := h.purchases.GetPurchase(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, purchase)
}

// List godoc
// @ID           listPurchases
// @Summary      List purchases
// @Description  List purchase headers by date range
// @Tags         purchases
// @Produce      json
// @Param        search query string false "Search text"
// @Param        from query string false "First date (YYYY-MM-DD)"
// @Param        to query string false "Last date (YYYY-MM-DD)"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]settlement.PurchaseListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	var filter settlement.DateRangeFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	purchases, total, err := h.purchases.ListPurchases(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, purchases, total, filter.Page, filter.PageSize)
}
