package handlers

import (
	"github.com/gin-gonic/gin"

	"kedai/internal/domain/reports"
	"kedai/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the aggregation endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Register mounts the report routes on the group.
func (h *ReportsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/period", h.Period)
	rg.GET("/days", h.Days)
	rg.GET("/months", h.Months)
}

// Period handles GET /reports/period.
func (h *ReportsHandler) Period(c *gin.Context) {
	filter, ok := h.bindPeriod(c)
	if !ok {
		return
	}

	totals, err := h.service.Period(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, totals)
}

// Days handles GET /reports/days.
func (h *ReportsHandler) Days(c *gin.Context) {
	filter, ok := h.bindPeriod(c)
	if !ok {
		return
	}

	buckets, err := h.service.Days(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, buckets)
}

// Months handles GET /reports/months.
func (h *ReportsHandler) Months(c *gin.Context) {
	filter, ok := h.bindPeriod(c)
	if !ok {
		return
	}

	buckets, err := h.service.Months(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, buckets)
}

func (h *ReportsHandler) bindPeriod(c *gin.Context) (reports.PeriodFilter, bool) {
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return reports.PeriodFilter{}, false
	}

	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return reports.PeriodFilter{}, false
	}
	return filter, true
}
