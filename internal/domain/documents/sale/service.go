package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kedai/internal/core/apperror"
	"kedai/internal/core/id"
	"kedai/internal/core/tx"
	"kedai/internal/core/types"
	"kedai/internal/core/watch"
	"kedai/internal/domain"
	"kedai/internal/domain/catalogs/product"
	"kedai/pkg/logger"
	"kedai/pkg/sequence"
)

// NumberGenerator issues receipt numbers. Satisfied by *sequence.Generator.
type NumberGenerator interface {
	Next(ctx context.Context, cfg sequence.Config, period time.Time) (string, error)
}

// Service provides business operations for sales: the create-sale
// transaction processor, the payment recorder, and corrective edits.
type Service struct {
	sales     Repository
	products  product.Repository
	payments  PaymentRepository
	numbers   NumberGenerator
	txManager tx.RetryableManager
	hub       *watch.Hub
}

// NewService creates a new sale service.
func NewService(
	sales Repository,
	products product.Repository,
	payments PaymentRepository,
	numbers NumberGenerator,
	txManager tx.RetryableManager,
	hub *watch.Hub,
) *Service {
	return &Service{
		sales:     sales,
		products:  products,
		payments:  payments,
		numbers:   numbers,
		txManager: txManager,
		hub:       hub,
	}
}

// CreateSaleInput is the cart accepted by CreateSale.
type CreateSaleInput struct {
	Customer    string
	PaymentType string
	Items       []CartItem

	// Total overrides the sum of line subtotals when supplied.
	Total *types.Money
}

// CreateSale atomically validates stock, decrements inventory, and records
// a multi-line sale with derived payment totals. The whole read-validate-
// write sequence runs in one retryable transaction: a write conflict
// re-runs it from the read phase, and no partial sale is ever visible.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (id.ID, error) {
	if len(input.Items) == 0 {
		return id.Nil(), apperror.NewInvalidInput("cart is empty")
	}

	paymentType, err := NormalizePaymentType(input.PaymentType)
	if err != nil {
		return id.Nil(), err
	}

	for _, item := range input.Items {
		if err := item.Validate(ctx); err != nil {
			return id.Nil(), err
		}
	}

	doc := NewSale(input.Customer, paymentType)

	if err := s.txManager.RunInRetryableTransaction(ctx, func(ctx context.Context) error {
		// Read phase: lock every distinct referenced product.
		locked := make(map[id.ID]*product.Product, len(input.Items))
		for _, item := range input.Items {
			ref := item.ProductRef()
			if _, ok := locked[ref]; ok {
				continue
			}
			p, err := s.products.GetForUpdate(ctx, ref)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewNotFound("product", ref.String())
				}
				return fmt.Errorf("read product %s: %w", ref, err)
			}
			locked[ref] = p
		}

		// Validate phase: resolve carts to units and check stock per
		// product across all lines before anything is written.
		required := make(map[id.ID]int64, len(locked))
		doc.Lines = doc.Lines[:0]
		for i, item := range input.Items {
			p := locked[item.ProductRef()]
			line := item.Resolve(p)
			line.LineNo = i + 1
			doc.Lines = append(doc.Lines, line)
			required[p.ID] += line.TotalUnits
		}

		for productID, units := range required {
			p := locked[productID]
			if available := p.CurrentStock(); units > available {
				return apperror.NewInsufficientStock(p.Name, units, available)
			}
		}

		// Compute totals and classify the payment.
		if input.Total != nil {
			doc.Total = *input.Total
		} else {
			doc.RecalculateTotal()
		}
		doc.SettleInitial()

		if err := doc.Validate(ctx); err != nil {
			return err
		}

		// Drawn inside the transaction: a rolled-back attempt releases
		// its number, so each retry must take a fresh one.
		number, err := s.numbers.Next(ctx, sequence.DefaultConfig("RCP"), time.Now())
		if err != nil {
			return fmt.Errorf("generate receipt number: %w", err)
		}
		doc.Number = number

		// Write phase: sale, lines, then stock decrements.
		if err := s.sales.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.sales.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		for productID, units := range required {
			p := locked[productID]
			p.ApplyStockDelta(0, units)
			if err := s.products.Update(ctx, p); err != nil {
				return fmt.Errorf("decrement stock for %s: %w", p.Name, err)
			}
		}

		return nil
	}); err != nil {
		return id.Nil(), err
	}

	logger.Info(ctx, "sale recorded",
		"id", doc.ID,
		"number", doc.Number,
		"customer", doc.Customer,
		"payment_type", doc.PaymentType,
		"total", doc.Total,
	)

	s.publishSales(ctx)
	s.publishProducts(ctx)
	return doc.ID, nil
}

// RecordPayment settles part of a credit sale: bumps paidAmount, re-derives
// remaining/status, credits the matching bucket, and appends both the
// sub-record under the sale and the top-level payment row for period
// reporting. Returns the new payment's identity.
func (s *Service) RecordPayment(ctx context.Context, saleID id.ID, amount types.Money, method string) (id.ID, error) {
	if !amount.IsPositive() {
		return id.Nil(), apperror.NewInvalidInput("payment amount must be positive").
			WithDetail("amount", amount)
	}

	payMethod, err := NormalizePaymentType(method)
	if err != nil {
		return id.Nil(), err
	}
	if payMethod == PaymentHutang {
		return id.Nil(), apperror.NewInvalidInput("payment method must be Cash or Online Transfer")
	}

	payment := Payment{
		ID:        id.New(),
		SaleID:    saleID,
		Amount:    amount,
		Method:    payMethod,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.txManager.RunInRetryableTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.sales.GetForUpdate(ctx, saleID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("sale", saleID.String())
			}
			return fmt.Errorf("read sale: %w", err)
		}

		doc.ApplyPayment(amount, payMethod)

		if err := s.sales.Update(ctx, doc); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if err := s.sales.AppendPayment(ctx, payment); err != nil {
			return fmt.Errorf("append sale payment: %w", err)
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		return nil
	}); err != nil {
		return id.Nil(), err
	}

	logger.Info(ctx, "payment recorded",
		"sale_id", saleID,
		"payment_id", payment.ID,
		"amount", amount,
		"method", payMethod,
	)

	s.publishSales(ctx)
	s.publishPayments(ctx)
	return payment.ID, nil
}

// GetByID retrieves a sale with its lines and payments.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if doc.Lines, err = s.sales.GetLines(ctx, saleID); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	if doc.Payments, err = s.sales.GetPayments(ctx, saleID); err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	return doc, nil
}

// GetLineItems returns the ordered line items of a sale.
func (s *Service) GetLineItems(ctx context.Context, saleID id.ID) ([]LineItem, error) {
	if _, err := s.sales.GetByID(ctx, saleID); err != nil {
		return nil, err
	}
	return s.sales.GetLines(ctx, saleID)
}

// UpdateSaleInput carries manual corrective edits.
type UpdateSaleInput struct {
	Customer    *string
	PaymentType *string
}

// Update applies manual corrective edits to customer/paymentType. This is
// an escape hatch: no re-validation against stock.
func (s *Service) Update(ctx context.Context, saleID id.ID, input UpdateSaleInput) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}

		if input.Customer != nil {
			doc.Customer = *input.Customer
		}
		if input.PaymentType != nil {
			pt, err := NormalizePaymentType(*input.PaymentType)
			if err != nil {
				return err
			}
			doc.PaymentType = pt
		}

		return s.sales.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	s.publishSales(ctx)
	return nil
}

// UpdateLineItem applies manual corrective edits to one line. Subtotal and
// units are recomputed from the edited fields; stock is not re-validated.
func (s *Service) UpdateLineItem(ctx context.Context, saleID id.ID, line LineItem) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.sales.GetByID(ctx, saleID); err != nil {
			return err
		}

		line.TotalUnits = line.BigBoxes*line.BigBoxQty + line.SmallPacks*line.SmallPackQty + line.LooseUnits
		line.Subtotal = line.BigBoxPrice.Mul(types.NewMoney(float64(line.BigBoxes))).
			Add(line.SmallPackPrice.Mul(types.NewMoney(float64(line.SmallPacks)))).
			Add(line.UnitPrice.Mul(types.NewMoney(float64(line.LooseUnits))))

		return s.sales.UpdateLine(ctx, saleID, line)
	})
	if err != nil {
		return err
	}

	s.publishSales(ctx)
	return nil
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.sales.List(ctx, filter)
}

// Subscribe registers a listener for the full sales history.
func (s *Service) Subscribe(fn func([]*Sale)) (cancel func()) {
	return s.hub.Subscribe(watch.TopicSales, func(ev watch.Event) {
		var items []*Sale
		if err := json.Unmarshal(ev.Snapshot, &items); err != nil {
			return
		}
		fn(items)
	})
}

// SubscribeHutang registers a listener for outstanding credit sales only.
func (s *Service) SubscribeHutang(fn func([]*Sale)) (cancel func()) {
	return s.hub.Subscribe(watch.TopicHutang, func(ev watch.Event) {
		var items []*Sale
		if err := json.Unmarshal(ev.Snapshot, &items); err != nil {
			return
		}
		fn(items)
	})
}

func (s *Service) publishSales(ctx context.Context) {
	if s.hub == nil {
		return
	}

	result, err := s.sales.List(ctx, ListFilter{ListFilter: domain.ListFilter{OrderBy: "created_at DESC"}})
	if err != nil {
		logger.Warn(ctx, "sales snapshot fetch failed", "error", err)
		return
	}

	if payload, err := json.Marshal(result.Items); err == nil {
		s.hub.Publish(ctx, watch.TopicSales, payload)
	}

	outstanding := make([]*Sale, 0)
	for _, doc := range result.Items {
		if doc.Status == StatusHutang {
			outstanding = append(outstanding, doc)
		}
	}
	if payload, err := json.Marshal(outstanding); err == nil {
		s.hub.Publish(ctx, watch.TopicHutang, payload)
	}
}

func (s *Service) publishPayments(ctx context.Context) {
	if s.hub == nil {
		return
	}

	// The payments snapshot is the full register, oldest first.
	items, err := s.payments.ListByPeriod(ctx, time.Time{}, time.Now().UTC().Add(time.Hour))
	if err != nil {
		logger.Warn(ctx, "payments snapshot fetch failed", "error", err)
		return
	}
	if payload, err := json.Marshal(items); err == nil {
		s.hub.Publish(ctx, watch.TopicPayments, payload)
	}
}

func (s *Service) publishProducts(ctx context.Context) {
	if s.hub == nil {
		return
	}

	result, err := s.products.List(ctx, domain.ListFilter{OrderBy: "created_at DESC"})
	if err != nil {
		logger.Warn(ctx, "product snapshot fetch failed", "error", err)
		return
	}
	if payload, err := json.Marshal(result.Items); err == nil {
		s.hub.Publish(ctx, watch.TopicProducts, payload)
	}
}
