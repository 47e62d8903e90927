// Package product provides the product catalog.
package product

import (
	"context"

	"kedai/internal/core/apperror"
	"kedai/internal/core/entity"
	"kedai/internal/core/types"
)

// Status reflects where a product is in its supply lifecycle.
// "Discontinued" is a status flag, not a deletion; hard delete is a
// separate repository operation.
type Status string

const (
	StatusInStore       Status = "In Store"
	StatusInTransitSome Status = "In Transit (Some)"
	StatusInTransitAll  Status = "In Transit (All)"
	StatusLowStock      Status = "Low Stock"
	StatusFinished      Status = "Finished"
	StatusDiscontinued  Status = "Discontinued"
	StatusError         Status = "Error"
)

// Product represents one catalog item with its pricing tiers and
// running stock counters.
type Product struct {
	entity.Base

	Name        string `db:"name" json:"name"`
	Supplier    string `db:"supplier" json:"supplier,omitempty"`
	Description string `db:"description" json:"description,omitempty"`
	Status      Status `db:"status" json:"status"`

	// Loose unit price
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Small-bulk tier: pack of SmallBulkQty units sold at SmallBulkPrice
	SmallBulkQty   int64       `db:"small_bulk_qty" json:"smallBulkQty"`
	SmallBulkPrice types.Money `db:"small_bulk_price" json:"smallBulkPrice"`

	// Big-bulk tier: box of BigBulkQty units sold at BigBulkPrice
	BigBulkQty   int64       `db:"big_bulk_qty" json:"bigBulkQty"`
	BigBulkPrice types.Money `db:"big_bulk_price" json:"bigBulkPrice"`

	// ReorderPoint is the low-stock threshold. Nil means the product is
	// never flagged, regardless of balance.
	ReorderPoint *int64 `db:"reorder_point" json:"reorderPoint,omitempty"`

	// Stock counters. Balance is the authoritative current-stock figure;
	// StartingStock is immutable after creation.
	StartingStock  int64 `db:"starting_stock" json:"startingStock"`
	TotalPurchased int64 `db:"total_purchased" json:"totalPurchased"`
	QuantitySold   int64 `db:"quantity_sold" json:"quantitySold"`
	Balance        int64 `db:"balance" json:"balance"`
}

// New creates a product with its balance derived from starting stock.
func New(name string, startingStock int64, unitPrice types.Money) *Product {
	return &Product{
		Base:          entity.NewBase(),
		Name:          name,
		Status:        StatusInStore,
		UnitPrice:     unitPrice,
		StartingStock: startingStock,
		Balance:       startingStock,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if !isValidStatus(p.Status) {
		return apperror.NewValidation("invalid product status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}

	if p.StartingStock < 0 {
		return apperror.NewValidation("starting stock cannot be negative").
			WithDetail("field", "startingStock")
	}

	if p.UnitPrice.IsNegative() || p.SmallBulkPrice.IsNegative() || p.BigBulkPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative")
	}

	if p.SmallBulkQty < 0 || p.BigBulkQty < 0 {
		return apperror.NewValidation("bulk pack sizes cannot be negative")
	}

	if p.ReorderPoint != nil && *p.ReorderPoint < 0 {
		return apperror.NewValidation("reorder point cannot be negative").
			WithDetail("field", "reorderPoint")
	}

	return nil
}

// ApplyStockDelta records purchased/sold units and re-derives the balance.
// Invariant: balance == startingStock + totalPurchased - quantitySold.
func (p *Product) ApplyStockDelta(deltaPurchased, deltaSold int64) {
	p.TotalPurchased += deltaPurchased
	p.QuantitySold += deltaSold
	p.Balance = p.StartingStock + p.TotalPurchased - p.QuantitySold
}

// CurrentStock returns the available stock, falling back to the starting
// figure for records created before balances were tracked.
func (p *Product) CurrentStock() int64 {
	if p.Balance != 0 || p.TotalPurchased != 0 || p.QuantitySold != 0 {
		return p.Balance
	}
	return p.StartingStock
}

// IsLowStock reports whether the product sits at or below its reorder
// point. Products without a reorder point are never flagged.
func (p *Product) IsLowStock() bool {
	if p.ReorderPoint == nil {
		return false
	}
	return p.CurrentStock() <= *p.ReorderPoint
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusInStore, StatusInTransitSome, StatusInTransitAll,
		StatusLowStock, StatusFinished, StatusDiscontinued, StatusError:
		return true
	}
	return false
}
