package handlers

import (
	"github.com/gin-gonic/gin"

	"kedai/internal/core/apperror"
	"kedai/internal/domain/documents/sale"
	"kedai/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves the point-of-sale endpoints.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Register mounts the sale routes on the group.
func (h *SaleHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.GET("/:id/lines", h.Lines)
	rg.PATCH("/:id/lines", h.UpdateLine)
	rg.POST("/:id/payments", h.RecordPayment)
}

// Create handles POST /sales: the checkout transaction.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	saleID, err := h.service.CreateSale(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, saleID)
}

// Get handles GET /sales/:id, returning the sale with lines and payments.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List handles GET /sales with filtering.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := sale.ListFilter{ListFilter: q.ToFilter()}
	filter.Customer = c.Query("customer")
	if v := c.Query("paymentType"); v != "" {
		pt, err := sale.NormalizePaymentType(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.PaymentType = &pt
	}
	if v := c.Query("status"); v != "" {
		status := sale.Status(v)
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Update handles PATCH /sales/:id corrective edits.
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Update(c.Request.Context(), saleID, req.ToInput()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "sale updated")
}

// Lines handles GET /sales/:id/lines.
func (h *SaleHandler) Lines(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	lines, err := h.service.GetLineItems(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lines)
}

// UpdateLine handles PATCH /sales/:id/lines corrective edits.
func (h *SaleHandler) UpdateLine(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLineItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := h.service.GetLineItems(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var target *sale.LineItem
	for i := range lines {
		if lines[i].LineID.String() == req.LineID {
			target = &lines[i]
			break
		}
	}
	if target == nil {
		h.Error(c, apperror.NewNotFound("line item", req.LineID))
		return
	}

	req.ApplyTo(target)
	if err := h.service.UpdateLineItem(c.Request.Context(), saleID, *target); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "line item updated")
}

// RecordPayment handles POST /sales/:id/payments.
func (h *SaleHandler) RecordPayment(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	paymentID, err := h.service.RecordPayment(c.Request.Context(), saleID, req.Amount, req.Method)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, paymentID)
}
