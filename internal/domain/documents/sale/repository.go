package sale

import (
	"context"
	"time"

	"kedai/internal/core/id"
	"kedai/internal/domain"
)

// Repository defines operations for sale documents.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	Update(ctx context.Context, s *Sale) error

	GetLines(ctx context.Context, saleID id.ID) ([]LineItem, error)
	SaveLines(ctx context.Context, saleID id.ID, lines []LineItem) error
	UpdateLine(ctx context.Context, saleID id.ID, line LineItem) error

	// AppendPayment stores one settlement under the sale, oldest first.
	AppendPayment(ctx context.Context, payment Payment) error
	GetPayments(ctx context.Context, saleID id.ID) ([]Payment, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// PaymentRepository stores the top-level payments collection,
// denormalized for period range queries independent of the owning sale.
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) error
	ListByPeriod(ctx context.Context, from, to time.Time) ([]Payment, error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	Customer    string
	PaymentType *PaymentType
	Status      *Status
	DateFrom    *time.Time
	DateTo      *time.Time
}
