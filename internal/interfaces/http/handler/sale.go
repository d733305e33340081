package handler

import (
	"github.com/gin-gonic/gin"
	salesapp "github.com/salesapi/backend/internal/application/sales"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/salesapi/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader lets clients retry sale creation safely
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header before it reaches the store
const maxIdempotencyKeyLength = 255

// SaleHandler handles sale HTTP requests
type SaleHandler struct {
	BaseHandler
	saleService *salesapp.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *salesapp.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// DeleteSaleResponse is returned after a sale is removed
type DeleteSaleResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Create handles POST /sales.
// Answers 201 for a new sale and 200 when an Idempotency-Key replays an earlier one.
func (h *SaleHandler) Create(c *gin.Context) {
	var req salesapp.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
		return
	}

	idem := salesapp.IdempotencyKey{Owner: middleware.GetJWTUserID(c), Value: key}
	result, err := h.saleService.Create(c.Request.Context(), req, idem)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !result.Created {
		h.Success(c, result.Sale)
		return
	}
	h.Created(c, result.Sale)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q salesapp.ListSalesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, dto.ErrCodeBadRequest, "Invalid query parameters")
		return
	}

	page, err := h.saleService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID handles GET /sales/:id
func (h *SaleHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sale, err := h.saleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// Update handles PUT /sales/:id.
// The request carries the complete new item set.
func (h *SaleHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req salesapp.UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sale, err := h.saleService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sale, err := h.saleService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// Delete handles DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.saleService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DeleteSaleResponse{ID: id.String(), Deleted: true})
}
