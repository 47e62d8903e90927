package product

import (
	"context"
	"testing"

	"kedai/internal/core/types"
)

func intPtr(v int64) *int64 { return &v }

func TestApplyStockDelta_BalanceInvariant(t *testing.T) {
	p := New("Milo 3-in-1", 100, types.MustMoney("1.50"))

	p.ApplyStockDelta(50, 0) // goods receipt
	p.ApplyStockDelta(0, 30) // sale

	if p.TotalPurchased != 50 {
		t.Errorf("totalPurchased = %d, want 50", p.TotalPurchased)
	}
	if p.QuantitySold != 30 {
		t.Errorf("quantitySold = %d, want 30", p.QuantitySold)
	}
	want := p.StartingStock + p.TotalPurchased - p.QuantitySold
	if p.Balance != want {
		t.Errorf("balance = %d, want %d", p.Balance, want)
	}
	if p.Balance != 120 {
		t.Errorf("balance = %d, want 120", p.Balance)
	}
}

func TestIsLowStock(t *testing.T) {
	tests := []struct {
		name         string
		balance      int64
		reorderPoint *int64
		want         bool
	}{
		{"below threshold", 3, intPtr(5), true},
		{"at threshold", 5, intPtr(5), true},
		{"above threshold", 6, intPtr(5), false},
		{"no reorder point", 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("Gardenia", tt.balance, types.MustMoney("2.00"))
			p.ReorderPoint = tt.reorderPoint
			if got := p.IsLowStock(); got != tt.want {
				t.Errorf("IsLowStock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	p := New("Nescafe", 10, types.MustMoney("3.20"))
	if err := p.Validate(ctx); err != nil {
		t.Errorf("valid product rejected: %v", err)
	}

	nameless := New("", 10, types.MustMoney("1.00"))
	if err := nameless.Validate(ctx); err == nil {
		t.Error("expected error for missing name")
	}

	badStatus := New("Jasmine Rice", 10, types.MustMoney("28.00"))
	badStatus.Status = Status("Sold Out")
	if err := badStatus.Validate(ctx); err == nil {
		t.Error("expected error for unknown status")
	}

	negative := New("Sugar", -1, types.MustMoney("2.80"))
	if err := negative.Validate(ctx); err == nil {
		t.Error("expected error for negative starting stock")
	}
}

func TestCurrentStock_StartingStockFallback(t *testing.T) {
	// Legacy rows may carry counters that were never initialized; reads
	// fall back to the starting figure.
	p := &Product{Name: "Kicap", StartingStock: 12}
	if got := p.CurrentStock(); got != 12 {
		t.Errorf("CurrentStock() = %d, want 12", got)
	}

	p.ApplyStockDelta(0, 12)
	if got := p.CurrentStock(); got != 0 {
		t.Errorf("CurrentStock() after selling out = %d, want 0", got)
	}
}
