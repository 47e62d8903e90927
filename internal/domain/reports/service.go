package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kedai/internal/core/apperror"
	"kedai/internal/core/types"
	"kedai/internal/domain"
	"kedai/internal/domain/catalogs/product"
	"kedai/internal/domain/documents/sale"
)

// SaleSource yields the sales to aggregate. Satisfied by sale.Repository.
type SaleSource interface {
	List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error)
}

// PaymentSource yields credit settlements. Satisfied by sale.PaymentRepository.
type PaymentSource interface {
	ListByPeriod(ctx context.Context, from, to time.Time) ([]sale.Payment, error)
}

// ProductSource yields the low-stock watchlist. Satisfied by product.Repository.
type ProductSource interface {
	FindLowStock(ctx context.Context) ([]*product.Product, error)
}

// Service provides report generation operations.
type Service struct {
	sales    SaleSource
	payments PaymentSource
	products ProductSource
}

// NewService creates a new reports service.
func NewService(sales SaleSource, payments PaymentSource, products ProductSource) *Service {
	return &Service{sales: sales, payments: payments, products: products}
}

// Period generates revenue totals for one window.
func (s *Service) Period(ctx context.Context, filter PeriodFilter) (Totals, error) {
	sales, payments, err := s.fetch(ctx, filter)
	if err != nil {
		return Totals{}, err
	}
	return PeriodTotals(filter.From, filter.To, sales, payments), nil
}

// Days generates per-day totals, ordered chronologically.
func (s *Service) Days(ctx context.Context, filter PeriodFilter) ([]BucketTotals, error) {
	sales, payments, err := s.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}
	return DayTotals(filter.From, filter.To, filter.location(), sales, payments), nil
}

// Months generates per-month totals, ordered chronologically.
func (s *Service) Months(ctx context.Context, filter PeriodFilter) ([]BucketTotals, error) {
	sales, payments, err := s.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}
	return MonthTotals(filter.From, filter.To, filter.location(), sales, payments), nil
}

// LowStock returns products at or below their reorder point.
func (s *Service) LowStock(ctx context.Context) ([]*product.Product, error) {
	return s.products.FindLowStock(ctx)
}

func (s *Service) fetch(ctx context.Context, filter PeriodFilter) ([]*sale.Sale, []sale.Payment, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, nil, apperror.NewInvalidInput("from and to are required")
	}
	if filter.From.After(filter.To) {
		return nil, nil, apperror.NewInvalidInput("from must be before to")
	}

	saleFilter := sale.ListFilter{DateFrom: &filter.From, DateTo: &filter.To}
	result, err := s.sales.List(ctx, saleFilter)
	if err != nil {
		return nil, nil, fmt.Errorf("list sales: %w", err)
	}
	payments, err := s.payments.ListByPeriod(ctx, filter.From, filter.To)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}
	return result.Items, payments, nil
}

// PeriodTotals aggregates sales created in [from, to) and settlement
// payments recorded in the same window. Credit settlements count toward
// the period the payment occurs in, not the period of the sale.
func PeriodTotals(from, to time.Time, sales []*sale.Sale, payments []sale.Payment) Totals {
	t := zeroTotals()

	for _, doc := range sales {
		if !inRange(doc.CreatedAt, from, to) {
			continue
		}
		t.SalesCount++
		switch doc.PaymentType {
		case sale.PaymentCash:
			t.CashTotal = t.CashTotal.Add(doc.Total)
		case sale.PaymentOnline:
			t.OnlineTotal = t.OnlineTotal.Add(doc.Total)
		case sale.PaymentHutang:
			t.HutangOutstanding = t.HutangOutstanding.Add(doc.Remaining)
		}
	}

	for _, p := range payments {
		if !inRange(p.CreatedAt, from, to) {
			continue
		}
		t.PaymentCount++
		switch p.Method {
		case sale.PaymentCash:
			t.CashTotal = t.CashTotal.Add(p.Amount)
		case sale.PaymentOnline:
			t.OnlineTotal = t.OnlineTotal.Add(p.Amount)
		}
	}

	t.Received = t.CashTotal.Add(t.OnlineTotal)
	return t
}

// DayTotals buckets the window by calendar day in loc.
func DayTotals(from, to time.Time, loc *time.Location, sales []*sale.Sale, payments []sale.Payment) []BucketTotals {
	return bucketTotals(from, to, loc, "2006-01-02", sales, payments)
}

// MonthTotals buckets the window by calendar month in loc.
func MonthTotals(from, to time.Time, loc *time.Location, sales []*sale.Sale, payments []sale.Payment) []BucketTotals {
	return bucketTotals(from, to, loc, "2006-01", sales, payments)
}

func bucketTotals(from, to time.Time, loc *time.Location, layout string, sales []*sale.Sale, payments []sale.Payment) []BucketTotals {
	byBucket := make(map[string]*Totals)
	var order []string

	bucket := func(at time.Time) *Totals {
		key := at.In(loc).Format(layout)
		t, ok := byBucket[key]
		if !ok {
			zt := zeroTotals()
			t = &zt
			byBucket[key] = t
			order = append(order, key)
		}
		return t
	}

	for _, doc := range sales {
		if !inRange(doc.CreatedAt, from, to) {
			continue
		}
		t := bucket(doc.CreatedAt)
		t.SalesCount++
		switch doc.PaymentType {
		case sale.PaymentCash:
			t.CashTotal = t.CashTotal.Add(doc.Total)
		case sale.PaymentOnline:
			t.OnlineTotal = t.OnlineTotal.Add(doc.Total)
		case sale.PaymentHutang:
			t.HutangOutstanding = t.HutangOutstanding.Add(doc.Remaining)
		}
	}
	for _, p := range payments {
		if !inRange(p.CreatedAt, from, to) {
			continue
		}
		t := bucket(p.CreatedAt)
		t.PaymentCount++
		switch p.Method {
		case sale.PaymentCash:
			t.CashTotal = t.CashTotal.Add(p.Amount)
		case sale.PaymentOnline:
			t.OnlineTotal = t.OnlineTotal.Add(p.Amount)
		}
	}

	sort.Strings(order)
	out := make([]BucketTotals, 0, len(order))
	for _, key := range order {
		t := byBucket[key]
		t.Received = t.CashTotal.Add(t.OnlineTotal)
		out = append(out, BucketTotals{Bucket: key, Totals: *t})
	}
	return out
}

// LowStock filters to products at or below their reorder point. Products
// without a reorder point are never flagged.
func LowStock(products []*product.Product) []*product.Product {
	out := make([]*product.Product, 0)
	for _, p := range products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}

func inRange(at, from, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

func zeroTotals() Totals {
	return Totals{
		CashTotal:         types.Zero(),
		OnlineTotal:       types.Zero(),
		Received:          types.Zero(),
		HutangOutstanding: types.Zero(),
	}
}
