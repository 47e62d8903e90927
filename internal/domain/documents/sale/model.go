// Package sale provides the Sale document: one point-of-sale transaction
// with its line items and payment history.
package sale

import (
	"context"
	"strings"
	"time"

	"kedai/internal/core/apperror"
	"kedai/internal/core/entity"
	"kedai/internal/core/id"
	"kedai/internal/core/types"
	"kedai/internal/domain/catalogs/product"
)

// PaymentType classifies how a sale is settled.
type PaymentType string

const (
	PaymentCash   PaymentType = "Cash"
	PaymentOnline PaymentType = "Online Transfer"
	PaymentHutang PaymentType = "Hutang"
)

// NormalizePaymentType maps free-form input onto exactly one payment type.
func NormalizePaymentType(s string) (PaymentType, error) {
	switch t := strings.TrimSpace(s); {
	case strings.EqualFold(t, string(PaymentCash)):
		return PaymentCash, nil
	case strings.EqualFold(t, string(PaymentHutang)):
		return PaymentHutang, nil
	case strings.EqualFold(t, string(PaymentOnline)),
		strings.Contains(strings.ToLower(t), "online"),
		strings.Contains(strings.ToLower(t), "transfer"):
		return PaymentOnline, nil
	}
	return "", apperror.NewInvalidInput("unknown payment type").
		WithDetail("value", s)
}

// Status of a sale, derived from the remaining amount.
type Status string

const (
	StatusPaid   Status = "Paid"
	StatusHutang Status = "Hutang"
)

// DefaultCustomer is recorded when the buyer leaves no name.
const DefaultCustomer = "Walk-in"

// Sale represents a completed point-of-sale transaction.
type Sale struct {
	entity.Base

	// Number is the receipt number (auto-generated)
	Number string `db:"number" json:"number"`

	Customer    string      `db:"customer" json:"customer"`
	PaymentType PaymentType `db:"payment_type" json:"paymentType"`

	Total types.Money `db:"total" json:"total"`

	// Settled money by channel, for period reporting
	CashTotal   types.Money `db:"cash_total" json:"cashTotal"`
	OnlineTotal types.Money `db:"online_total" json:"onlineTotal"`

	PaidAmount types.Money `db:"paid_amount" json:"paidAmount"`
	Remaining  types.Money `db:"remaining" json:"remaining"`
	Status     Status      `db:"status" json:"status"`

	// Table part: one line per product sold
	Lines []LineItem `db:"-" json:"lines"`

	// Partial settlements of credit sales, oldest first
	Payments []Payment `db:"-" json:"payments,omitempty"`
}

// LineItem is one product's quantity/price breakdown within a sale.
// Pack sizes and prices are snapshots taken at sale time; the product
// record may change afterwards.
type LineItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID  `db:"product_id" json:"productId"`
	ProductName string `db:"product_name" json:"productName"`

	BigBoxes    int64       `db:"big_boxes" json:"bigBoxes"`
	BigBoxQty   int64       `db:"big_box_qty" json:"bigBoxQty"`
	BigBoxPrice types.Money `db:"big_box_price" json:"bigBoxPrice"`

	SmallPacks     int64       `db:"small_packs" json:"smallPacks"`
	SmallPackQty   int64       `db:"small_pack_qty" json:"smallPackQty"`
	SmallPackPrice types.Money `db:"small_pack_price" json:"smallPackPrice"`

	LooseUnits int64       `db:"loose_units" json:"looseUnits"`
	UnitPrice  types.Money `db:"unit_price" json:"unitPrice"`

	// Discount overrides as entered, kept for corrective edits.
	// The effective prices above already reflect them.
	DiscountedBigPrice   *types.Money `db:"discounted_big_price" json:"discountedBigPrice,omitempty"`
	DiscountedSmallPrice *types.Money `db:"discounted_small_price" json:"discountedSmallPrice,omitempty"`
	DiscountedUnitPrice  *types.Money `db:"discounted_unit_price" json:"discountedUnitPrice,omitempty"`

	TotalUnits int64       `db:"total_units" json:"totalUnits"`
	Subtotal   types.Money `db:"subtotal" json:"subtotal"`
}

// Payment records one partial settlement of a credit sale.
type Payment struct {
	ID        id.ID       `db:"id" json:"id"`
	SaleID    id.ID       `db:"sale_id" json:"saleId"`
	Amount    types.Money `db:"amount" json:"amount"`
	Method    PaymentType `db:"method" json:"paymentType"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// --- Cart input ---

// CartItem is the tagged union accepted by CreateSale. Exactly one of
// Flat or Tiered is set; both shapes resolve to a canonical unit count
// and subtotal against the product's pack sizes.
type CartItem struct {
	Flat   *FlatQuantity    `json:"flat,omitempty"`
	Tiered *TieredBreakdown `json:"tiered,omitempty"`
}

// FlatQuantity sells a plain unit count at the product's unit price,
// optionally overridden.
type FlatQuantity struct {
	ProductID     id.ID        `json:"productId"`
	Quantity      int64        `json:"quantity"`
	PriceOverride *types.Money `json:"priceOverride,omitempty"`
}

// TieredBreakdown sells big boxes, small packs and loose units, each at
// its tier price unless a discount override is supplied.
type TieredBreakdown struct {
	ProductID  id.ID `json:"productId"`
	BigBoxes   int64 `json:"bigBoxes"`
	SmallPacks int64 `json:"smallPacks"`
	LooseUnits int64 `json:"looseUnits"`

	DiscountedBigPrice   *types.Money `json:"discountedBigPrice,omitempty"`
	DiscountedSmallPrice *types.Money `json:"discountedSmallPrice,omitempty"`
	DiscountedUnitPrice  *types.Money `json:"discountedUnitPrice,omitempty"`
}

// Validate checks the union shape.
func (c CartItem) Validate(ctx context.Context) error {
	switch {
	case c.Flat != nil && c.Tiered != nil:
		return apperror.NewInvalidInput("cart item cannot be both flat and tiered")
	case c.Flat != nil:
		if id.IsNil(c.Flat.ProductID) {
			return apperror.NewInvalidInput("cart item product is required")
		}
		if c.Flat.Quantity <= 0 {
			return apperror.NewInvalidInput("quantity must be positive")
		}
	case c.Tiered != nil:
		if id.IsNil(c.Tiered.ProductID) {
			return apperror.NewInvalidInput("cart item product is required")
		}
		if c.Tiered.BigBoxes < 0 || c.Tiered.SmallPacks < 0 || c.Tiered.LooseUnits < 0 {
			return apperror.NewInvalidInput("tier quantities cannot be negative")
		}
		if c.Tiered.BigBoxes == 0 && c.Tiered.SmallPacks == 0 && c.Tiered.LooseUnits == 0 {
			return apperror.NewInvalidInput("cart item has no quantity")
		}
	default:
		return apperror.NewInvalidInput("cart item must be flat or tiered")
	}
	return nil
}

// ProductRef returns the referenced product id.
func (c CartItem) ProductRef() id.ID {
	if c.Flat != nil {
		return c.Flat.ProductID
	}
	if c.Tiered != nil {
		return c.Tiered.ProductID
	}
	return id.Nil()
}

// Resolve converts a cart item into a line item against the product's
// current pack sizes and prices. Effective price is the caller-supplied
// discount override when present, else the standard tier price.
func (c CartItem) Resolve(p *product.Product) LineItem {
	line := LineItem{
		LineID:      id.New(),
		ProductID:   p.ID,
		ProductName: p.Name,
	}

	if c.Flat != nil {
		price := p.UnitPrice
		if c.Flat.PriceOverride != nil {
			price = *c.Flat.PriceOverride
			line.DiscountedUnitPrice = c.Flat.PriceOverride
		}
		line.LooseUnits = c.Flat.Quantity
		line.UnitPrice = price
		line.TotalUnits = c.Flat.Quantity
		line.Subtotal = price.Mul(types.NewMoney(float64(c.Flat.Quantity)))
		return line
	}

	t := c.Tiered

	bigPrice := p.BigBulkPrice
	if t.DiscountedBigPrice != nil {
		bigPrice = *t.DiscountedBigPrice
	}
	smallPrice := p.SmallBulkPrice
	if t.DiscountedSmallPrice != nil {
		smallPrice = *t.DiscountedSmallPrice
	}
	unitPrice := p.UnitPrice
	if t.DiscountedUnitPrice != nil {
		unitPrice = *t.DiscountedUnitPrice
	}

	line.BigBoxes = t.BigBoxes
	line.BigBoxQty = p.BigBulkQty
	line.BigBoxPrice = bigPrice
	line.SmallPacks = t.SmallPacks
	line.SmallPackQty = p.SmallBulkQty
	line.SmallPackPrice = smallPrice
	line.LooseUnits = t.LooseUnits
	line.UnitPrice = unitPrice
	line.DiscountedBigPrice = t.DiscountedBigPrice
	line.DiscountedSmallPrice = t.DiscountedSmallPrice
	line.DiscountedUnitPrice = t.DiscountedUnitPrice

	line.TotalUnits = t.BigBoxes*p.BigBulkQty + t.SmallPacks*p.SmallBulkQty + t.LooseUnits

	line.Subtotal = bigPrice.Mul(types.NewMoney(float64(t.BigBoxes))).
		Add(smallPrice.Mul(types.NewMoney(float64(t.SmallPacks)))).
		Add(unitPrice.Mul(types.NewMoney(float64(t.LooseUnits))))

	return line
}

// --- Sale invariants ---

// NewSale creates a sale shell; lines and money fields are filled by the
// transaction processor.
func NewSale(customer string, paymentType PaymentType) *Sale {
	if strings.TrimSpace(customer) == "" {
		customer = DefaultCustomer
	}
	return &Sale{
		Base:        entity.NewBase(),
		Customer:    strings.TrimSpace(customer),
		PaymentType: paymentType,
		Total:       types.Zero(),
		CashTotal:   types.Zero(),
		OnlineTotal: types.Zero(),
		PaidAmount:  types.Zero(),
		Remaining:   types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if len(s.Lines) == 0 {
		return apperror.NewInvalidInput("cart is empty")
	}
	if s.PaymentType == PaymentHutang && (s.Customer == "" || s.Customer == DefaultCustomer) {
		return apperror.NewInvalidInput("customer name is required for Hutang sales").
			WithDetail("field", "customer")
	}
	return nil
}

// SettleInitial classifies the payment at sale time. Cash and Online
// Transfer settle the full amount immediately into their bucket; Hutang
// leaves everything outstanding.
func (s *Sale) SettleInitial() {
	switch s.PaymentType {
	case PaymentCash:
		s.PaidAmount = s.Total
		s.CashTotal = s.Total
	case PaymentOnline:
		s.PaidAmount = s.Total
		s.OnlineTotal = s.Total
	case PaymentHutang:
		s.PaidAmount = types.Zero()
	}
	s.Reconcile()
}

// ApplyPayment records a partial settlement and keeps the derived fields
// consistent: remaining == max(0, total - paid), status follows remaining.
func (s *Sale) ApplyPayment(amount types.Money, method PaymentType) {
	s.PaidAmount = s.PaidAmount.Add(amount)
	switch method {
	case PaymentOnline:
		s.OnlineTotal = s.OnlineTotal.Add(amount)
	default:
		s.CashTotal = s.CashTotal.Add(amount)
	}
	s.Reconcile()
}

// Reconcile re-derives remaining and status from total and paidAmount.
func (s *Sale) Reconcile() {
	s.Remaining = types.MaxZero(s.Total.Sub(s.PaidAmount))
	if s.Remaining.IsZero() {
		s.Status = StatusPaid
	} else {
		s.Status = StatusHutang
	}
}

// RecalculateTotal sums line subtotals. Used when the caller supplies no
// explicit total.
func (s *Sale) RecalculateTotal() {
	total := types.Zero()
	for _, line := range s.Lines {
		total = total.Add(line.Subtotal)
	}
	s.Total = total
}
