package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"kedai/internal/core/types"
	"kedai/internal/domain/documents/sale"
	"kedai/internal/infrastructure/http/v1/dto"
)

// HutangHandler serves the credit ledger endpoints: outstanding credit
// sales and their per-customer totals.
type HutangHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewHutangHandler creates a new hutang handler.
func NewHutangHandler(base *BaseHandler, service *sale.Service) *HutangHandler {
	return &HutangHandler{BaseHandler: base, service: service}
}

// Register mounts the hutang routes on the group.
func (h *HutangHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/summary", h.Summary)
}

// List handles GET /hutang: unsettled credit sales, oldest debt first.
func (h *HutangHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := sale.ListFilter{ListFilter: q.ToFilter()}
	filter.Customer = c.Query("customer")
	status := sale.StatusHutang
	filter.Status = &status
	if filter.OrderBy == "" || filter.OrderBy == "created_at DESC" {
		filter.OrderBy = "created_at ASC"
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

// customerDebt is one row of the per-customer summary.
type customerDebt struct {
	Customer    string      `json:"customer"`
	SalesCount  int         `json:"salesCount"`
	Outstanding types.Money `json:"outstanding"`
}

// Summary handles GET /hutang/summary: outstanding debt per customer.
func (h *HutangHandler) Summary(c *gin.Context) {
	status := sale.StatusHutang
	filter := sale.ListFilter{Status: &status}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	byCustomer := make(map[string]*customerDebt)
	for _, doc := range result.Items {
		row, ok := byCustomer[doc.Customer]
		if !ok {
			row = &customerDebt{Customer: doc.Customer, Outstanding: types.Zero()}
			byCustomer[doc.Customer] = row
		}
		row.SalesCount++
		row.Outstanding = row.Outstanding.Add(doc.Remaining)
	}

	rows := make([]customerDebt, 0, len(byCustomer))
	for _, row := range byCustomer {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Outstanding.GreaterThan(rows[j].Outstanding)
	})

	h.OK(c, rows)
}
