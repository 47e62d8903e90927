// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"kedai/internal/core/id"
	"kedai/internal/domain"
)

// --- List ---

// ListQuery contains common list query parameters.
type ListQuery struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// ToFilter converts query parameters to a domain filter.
func (q *ListQuery) ToFilter() domain.ListFilter {
	filter := domain.DefaultListFilter()
	filter.Search = q.Search
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	if q.Offset > 0 {
		filter.Offset = q.Offset
	}
	return filter
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
