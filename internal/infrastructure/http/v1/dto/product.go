package dto

import (
	"kedai/internal/core/types"
	"kedai/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for adding a product.
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Supplier    string `json:"supplier"`
	Description string `json:"description"`

	UnitPrice      types.Money `json:"unitPrice"`
	SmallBulkQty   int64       `json:"smallBulkQty"`
	SmallBulkPrice types.Money `json:"smallBulkPrice"`
	BigBulkQty     int64       `json:"bigBulkQty"`
	BigBulkPrice   types.Money `json:"bigBulkPrice"`

	ReorderPoint  *int64 `json:"reorderPoint"`
	StartingStock int64  `json:"startingStock"`

	Status product.Status `json:"status"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.New(r.Name, r.StartingStock, r.UnitPrice)
	p.Supplier = r.Supplier
	p.Description = r.Description
	p.SmallBulkQty = r.SmallBulkQty
	p.SmallBulkPrice = r.SmallBulkPrice
	p.BigBulkQty = r.BigBulkQty
	p.BigBulkPrice = r.BigBulkPrice
	p.ReorderPoint = r.ReorderPoint
	if r.Status != "" {
		p.Status = r.Status
	}
	return p
}

// UpdateProductRequest is the request body for updating a product.
// Version is required for optimistic locking.
type UpdateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Supplier    string `json:"supplier"`
	Description string `json:"description"`

	UnitPrice      types.Money `json:"unitPrice"`
	SmallBulkQty   int64       `json:"smallBulkQty"`
	SmallBulkPrice types.Money `json:"smallBulkPrice"`
	BigBulkQty     int64       `json:"bigBulkQty"`
	BigBulkPrice   types.Money `json:"bigBulkPrice"`

	ReorderPoint *int64 `json:"reorderPoint"`

	Status  product.Status `json:"status"`
	Version int            `json:"version" binding:"required,min=1"`
}

// ApplyTo applies update DTO to existing entity. Stock counters are not
// editable here; they move only through sales and stock adjustments.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Name = r.Name
	p.Supplier = r.Supplier
	p.Description = r.Description
	p.UnitPrice = r.UnitPrice
	p.SmallBulkQty = r.SmallBulkQty
	p.SmallBulkPrice = r.SmallBulkPrice
	p.BigBulkQty = r.BigBulkQty
	p.BigBulkPrice = r.BigBulkPrice
	p.ReorderPoint = r.ReorderPoint
	if r.Status != "" {
		p.Status = r.Status
	}
	p.SetVersion(r.Version)
}

// AdjustStockRequest moves the purchase/sold counters by a delta, e.g.
// when a restock arrives.
type AdjustStockRequest struct {
	DeltaPurchased int64 `json:"deltaPurchased"`
	DeltaSold      int64 `json:"deltaSold"`
}
