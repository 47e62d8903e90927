package sale

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kedai/internal/core/apperror"
	"kedai/internal/core/id"
	"kedai/internal/core/types"
	"kedai/internal/core/watch"
	"kedai/internal/domain"
	"kedai/internal/domain/catalogs/product"
	"kedai/pkg/sequence"
)

// --- Fakes ---

// fakeTxManager mirrors the postgres implementation's contract: fn runs,
// and a write conflict re-runs the whole fn from the top.
type fakeTxManager struct{}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *fakeTxManager) RunInRetryableTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = fn(ctx); err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
	}
	return err
}

type fakeProductRepo struct {
	items map[id.ID]*product.Product

	// conflictsLeft makes the next Update calls fail with a write
	// conflict, emulating backing-store contention.
	conflictsLeft int
}

func newFakeProductRepo(items ...*product.Product) *fakeProductRepo {
	repo := &fakeProductRepo{items: make(map[id.ID]*product.Product)}
	for _, p := range items {
		cp := *p
		repo.items[p.ID] = &cp
	}
	return repo
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.items[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return apperror.NewConcurrentModification("products", p.ID)
	}
	if _, ok := r.items[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, productID id.ID) error {
	delete(r.items, productID)
	return nil
}

func (r *fakeProductRepo) List(_ context.Context, _ domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{}
	for _, p := range r.items {
		cp := *p
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeProductRepo) FindLowStock(_ context.Context) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range r.items {
		if p.IsLowStock() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSaleRepo struct {
	sales    map[id.ID]*Sale
	lines    map[id.ID][]LineItem
	payments map[id.ID][]Payment
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{
		sales:    make(map[id.ID]*Sale),
		lines:    make(map[id.ID][]LineItem),
		payments: make(map[id.ID][]Payment),
	}
}

func (r *fakeSaleRepo) Create(_ context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	cp.Payments = nil
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *fakeSaleRepo) Update(_ context.Context, s *Sale) error {
	if _, ok := r.sales[s.ID]; !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	cp := *s
	cp.Lines = nil
	cp.Payments = nil
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeSaleRepo) GetLines(_ context.Context, saleID id.ID) ([]LineItem, error) {
	return r.lines[saleID], nil
}

func (r *fakeSaleRepo) SaveLines(_ context.Context, saleID id.ID, lines []LineItem) error {
	r.lines[saleID] = append([]LineItem(nil), lines...)
	return nil
}

func (r *fakeSaleRepo) UpdateLine(_ context.Context, saleID id.ID, line LineItem) error {
	for i, existing := range r.lines[saleID] {
		if existing.LineID == line.LineID {
			r.lines[saleID][i] = line
			return nil
		}
	}
	return apperror.NewNotFound("line item", line.LineID.String())
}

func (r *fakeSaleRepo) AppendPayment(_ context.Context, payment Payment) error {
	r.payments[payment.SaleID] = append(r.payments[payment.SaleID], payment)
	return nil
}

func (r *fakeSaleRepo) GetPayments(_ context.Context, saleID id.ID) ([]Payment, error) {
	return r.payments[saleID], nil
}

func (r *fakeSaleRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Sale], error) {
	result := domain.ListResult[*Sale]{}
	for _, s := range r.sales {
		cp := *s
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type fakePaymentRepo struct {
	records []Payment
}

func (r *fakePaymentRepo) Create(_ context.Context, payment Payment) error {
	r.records = append(r.records, payment)
	return nil
}

func (r *fakePaymentRepo) ListByPeriod(_ context.Context, from, to time.Time) ([]Payment, error) {
	var out []Payment
	for _, p := range r.records {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeNumbers struct{ n int64 }

func (g *fakeNumbers) Next(_ context.Context, _ sequence.Config, _ time.Time) (string, error) {
	g.n++
	return fmt.Sprintf("RCP-2026-%05d", g.n), nil
}

// --- Test harness ---

type fixture struct {
	svc      *Service
	products *fakeProductRepo
	sales    *fakeSaleRepo
	payments *fakePaymentRepo
}

func newFixture(items ...*product.Product) *fixture {
	products := newFakeProductRepo(items...)
	sales := newFakeSaleRepo()
	payments := &fakePaymentRepo{}
	svc := NewService(sales, products, payments, &fakeNumbers{}, &fakeTxManager{}, watch.NewHub())
	return &fixture{svc: svc, products: products, sales: sales, payments: payments}
}

func stockedProduct(balance int64, reorderPoint int64) *product.Product {
	p := product.New("100 Plus", balance, types.MustMoney("2.50"))
	p.SmallBulkQty = 6
	p.SmallBulkPrice = types.MustMoney("13.00")
	p.BigBulkQty = 24
	p.BigBulkPrice = types.MustMoney("48.00")
	p.ReorderPoint = &reorderPoint
	return p
}

// --- Tests ---

func TestCreateSale_CashDecrementsStock(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	ctx := context.Background()

	saleID, err := f.svc.CreateSale(ctx, CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 4}}},
	})
	require.NoError(t, err)

	got, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Balance)
	assert.Equal(t, int64(4), got.QuantitySold)
	assert.False(t, got.IsLowStock(), "balance 6 > reorder point 5")

	doc, err := f.svc.GetByID(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, doc.Total.Equal(types.MustMoney("10.00")), "4 x 2.50, got %s", doc.Total)
	assert.Equal(t, StatusPaid, doc.Status)
	assert.Equal(t, DefaultCustomer, doc.Customer)
	assert.True(t, doc.CashTotal.Equal(doc.Total))
	assert.True(t, doc.Remaining.IsZero())
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, int64(4), doc.Lines[0].TotalUnits)
	assert.NotEmpty(t, doc.Number)
}

func TestCreateSale_InsufficientStockLeavesStateUnchanged(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 12}}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err), "got %v", err)

	got, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(10), got.Balance)
	assert.Equal(t, int64(0), got.QuantitySold)
	assert.Empty(t, f.sales.sales, "no sale must be committed")
}

func TestCreateSale_StockCheckedAcrossLinesOfSameProduct(t *testing.T) {
	p := stockedProduct(10, 0)
	f := newFixture(p)

	// 6 + 6 units of the same product exceeds the balance of 10 even
	// though each line alone would fit.
	_, err := f.svc.CreateSale(context.Background(), CreateSaleInput{
		PaymentType: "Cash",
		Items: []CartItem{
			{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 6}},
			{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 6}},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err), "got %v", err)
}

func TestCreateSale_ProductNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateSale(context.Background(), CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: id.New(), Quantity: 1}}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
}

func TestCreateSale_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateSale(context.Background(), CreateSaleInput{PaymentType: "Cash"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
}

func TestCreateSale_HutangRequiresCustomer(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)

	_, err := f.svc.CreateSale(context.Background(), CreateSaleInput{
		PaymentType: "Hutang",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 1}}},
	})
	require.Error(t, err)

	// Nothing written, stock untouched.
	got, _ := f.products.GetByID(context.Background(), p.ID)
	assert.Equal(t, int64(10), got.Balance)
}

func TestCreateSale_CallerTotalOverride(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	override := types.MustMoney("9.00")

	saleID, err := f.svc.CreateSale(context.Background(), CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 4}}},
		Total:       &override,
	})
	require.NoError(t, err)

	doc, _ := f.svc.GetByID(context.Background(), saleID)
	assert.True(t, doc.Total.Equal(override))
}

func TestCreateSale_RetriesOnWriteConflict(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	f.products.conflictsLeft = 1

	saleID, err := f.svc.CreateSale(context.Background(), CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 4}}},
	})
	require.NoError(t, err, "one conflict must be retried transparently")

	got, _ := f.products.GetByID(context.Background(), p.ID)
	assert.Equal(t, int64(6), got.Balance)
	assert.NotEqual(t, id.Nil(), saleID)
}

func TestHutangLifecycle(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	ctx := context.Background()

	saleID, err := f.svc.CreateSale(ctx, CreateSaleInput{
		Customer:    "Ah Seng",
		PaymentType: "Hutang",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 6, PriceOverride: moneyPtr("10.00")}}},
	})
	require.NoError(t, err)

	doc, err := f.svc.GetByID(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, doc.Total.Equal(types.MustMoney("60.00")))
	assert.True(t, doc.PaidAmount.IsZero())
	assert.True(t, doc.Remaining.Equal(types.MustMoney("60.00")))
	assert.Equal(t, StatusHutang, doc.Status)

	payID, err := f.svc.RecordPayment(ctx, saleID, types.MustMoney("60.00"), "Cash")
	require.NoError(t, err)
	assert.NotEqual(t, id.Nil(), payID)

	doc, err = f.svc.GetByID(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, doc.PaidAmount.Equal(types.MustMoney("60.00")))
	assert.True(t, doc.Remaining.IsZero())
	assert.Equal(t, StatusPaid, doc.Status)
	assert.True(t, doc.CashTotal.Equal(types.MustMoney("60.00")))

	// Settlement lands under the sale and in the top-level collection.
	require.Len(t, doc.Payments, 1)
	require.Len(t, f.payments.records, 1)
	assert.Equal(t, saleID, f.payments.records[0].SaleID)
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, id.New(), types.MustMoney("0"), "Cash")
	require.Error(t, err, "non-positive amount")

	_, err = f.svc.RecordPayment(ctx, id.New(), types.MustMoney("-5"), "Cash")
	require.Error(t, err)

	_, err = f.svc.RecordPayment(ctx, id.New(), types.MustMoney("5"), "Hutang")
	require.Error(t, err, "Hutang is not a settlement method")

	_, err = f.svc.RecordPayment(ctx, id.New(), types.MustMoney("5"), "Cash")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
}

func TestUpdateSale_CorrectiveEdit(t *testing.T) {
	p := stockedProduct(10, 5)
	f := newFixture(p)
	ctx := context.Background()

	saleID, err := f.svc.CreateSale(ctx, CreateSaleInput{
		PaymentType: "Cash",
		Items:       []CartItem{{Flat: &FlatQuantity{ProductID: p.ID, Quantity: 2}}},
	})
	require.NoError(t, err)

	customer := "Mei Ling"
	require.NoError(t, f.svc.Update(ctx, saleID, UpdateSaleInput{Customer: &customer}))

	doc, err := f.svc.GetByID(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, "Mei Ling", doc.Customer)

	// Stock is not re-validated by corrective edits.
	got, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(8), got.Balance)
}

func TestUpdateLineItem_RecomputesDerivedFields(t *testing.T) {
	p := stockedProduct(50, 5)
	f := newFixture(p)
	ctx := context.Background()

	saleID, err := f.svc.CreateSale(ctx, CreateSaleInput{
		PaymentType: "Cash",
		Items: []CartItem{{Tiered: &TieredBreakdown{
			ProductID: p.ID,
			BigBoxes:  1,
		}}},
	})
	require.NoError(t, err)

	lines, err := f.svc.GetLineItems(ctx, saleID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	edited := lines[0]
	edited.BigBoxes = 2
	require.NoError(t, f.svc.UpdateLineItem(ctx, saleID, edited))

	lines, err = f.svc.GetLineItems(ctx, saleID)
	require.NoError(t, err)
	assert.Equal(t, int64(48), lines[0].TotalUnits)
	assert.True(t, lines[0].Subtotal.Equal(types.MustMoney("96.00")), "2 x 48.00, got %s", lines[0].Subtotal)
}
