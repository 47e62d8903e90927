package dto

import (
	"kedai/internal/core/apperror"
	"kedai/internal/core/id"
	"kedai/internal/core/types"
	"kedai/internal/domain/documents/sale"
)

// --- Request DTOs ---

// CartItemRequest is one cart entry. Either the flat quantity or the
// tiered breakdown is supplied, never both.
type CartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`

	// Flat shape
	Quantity      int64        `json:"quantity"`
	PriceOverride *types.Money `json:"priceOverride"`

	// Tiered shape
	BigBoxes   int64 `json:"bigBoxes"`
	SmallPacks int64 `json:"smallPacks"`
	LooseUnits int64 `json:"looseUnits"`

	DiscountedBigPrice   *types.Money `json:"discountedBigPrice"`
	DiscountedSmallPrice *types.Money `json:"discountedSmallPrice"`
	DiscountedUnitPrice  *types.Money `json:"discountedUnitPrice"`
}

// ToCartItem resolves the request shape into the domain tagged union.
func (r *CartItemRequest) ToCartItem() (sale.CartItem, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return sale.CartItem{}, apperror.NewInvalidInput("invalid product id").
			WithDetail("productId", r.ProductID)
	}

	tiered := r.BigBoxes != 0 || r.SmallPacks != 0 || r.LooseUnits != 0 ||
		r.DiscountedBigPrice != nil || r.DiscountedSmallPrice != nil || r.DiscountedUnitPrice != nil

	if tiered && r.Quantity != 0 {
		return sale.CartItem{}, apperror.NewInvalidInput("cart item mixes flat quantity with tiered breakdown").
			WithDetail("productId", r.ProductID)
	}

	if tiered {
		return sale.CartItem{Tiered: &sale.TieredBreakdown{
			ProductID:            productID,
			BigBoxes:             r.BigBoxes,
			SmallPacks:           r.SmallPacks,
			LooseUnits:           r.LooseUnits,
			DiscountedBigPrice:   r.DiscountedBigPrice,
			DiscountedSmallPrice: r.DiscountedSmallPrice,
			DiscountedUnitPrice:  r.DiscountedUnitPrice,
		}}, nil
	}

	return sale.CartItem{Flat: &sale.FlatQuantity{
		ProductID:     productID,
		Quantity:      r.Quantity,
		PriceOverride: r.PriceOverride,
	}}, nil
}

// CreateSaleRequest is the request body for creating a sale.
type CreateSaleRequest struct {
	Customer    string            `json:"customer"`
	PaymentType string            `json:"paymentType" binding:"required"`
	Items       []CartItemRequest `json:"items" binding:"required"`

	// Total overrides the computed sum when the cashier rounds at the till.
	Total *types.Money `json:"total"`
}

// ToInput converts the request to the service input.
func (r *CreateSaleRequest) ToInput() (sale.CreateSaleInput, error) {
	input := sale.CreateSaleInput{
		Customer:    r.Customer,
		PaymentType: r.PaymentType,
		Total:       r.Total,
	}
	for _, item := range r.Items {
		cartItem, err := item.ToCartItem()
		if err != nil {
			return sale.CreateSaleInput{}, err
		}
		input.Items = append(input.Items, cartItem)
	}
	return input, nil
}

// RecordPaymentRequest settles part of a credit sale.
type RecordPaymentRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
	Method string      `json:"paymentType" binding:"required"`
}

// UpdateSaleRequest carries corrective edits to the sale header.
type UpdateSaleRequest struct {
	Customer    *string `json:"customer"`
	PaymentType *string `json:"paymentType"`
}

// ToInput converts the request to the service input.
func (r *UpdateSaleRequest) ToInput() sale.UpdateSaleInput {
	return sale.UpdateSaleInput{
		Customer:    r.Customer,
		PaymentType: r.PaymentType,
	}
}

// UpdateLineItemRequest carries corrective edits to one line item.
// Derived fields (units, subtotal) are recomputed server-side.
type UpdateLineItemRequest struct {
	LineID string `json:"lineId" binding:"required"`

	BigBoxes   int64 `json:"bigBoxes"`
	SmallPacks int64 `json:"smallPacks"`
	LooseUnits int64 `json:"looseUnits"`

	BigBoxPrice    *types.Money `json:"bigBoxPrice"`
	SmallPackPrice *types.Money `json:"smallPackPrice"`
	UnitPrice      *types.Money `json:"unitPrice"`
}

// ApplyTo applies the edit to an existing line.
func (r *UpdateLineItemRequest) ApplyTo(line *sale.LineItem) {
	line.BigBoxes = r.BigBoxes
	line.SmallPacks = r.SmallPacks
	line.LooseUnits = r.LooseUnits
	if r.BigBoxPrice != nil {
		line.BigBoxPrice = *r.BigBoxPrice
	}
	if r.SmallPackPrice != nil {
		line.SmallPackPrice = *r.SmallPackPrice
	}
	if r.UnitPrice != nil {
		line.UnitPrice = *r.UnitPrice
	}
}
