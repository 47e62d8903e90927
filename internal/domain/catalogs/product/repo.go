package product

import (
	"context"

	"kedai/internal/core/id"
	"kedai/internal/domain"
)

// Repository defines the interface for product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate retrieves a product with a row lock. Sale creation
	// reads every cart product through this before validating stock.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	Update(ctx context.Context, p *Product) error

	// Delete removes the product outright (hard delete).
	Delete(ctx context.Context, productID id.ID) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// FindLowStock retrieves products at or below their reorder point.
	FindLowStock(ctx context.Context) ([]*Product, error)
}
