package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kedai/internal/core/entity"
	"kedai/internal/core/id"
	"kedai/internal/core/types"
	"kedai/internal/domain/catalogs/product"
	"kedai/internal/domain/documents/sale"
)

func makeSale(t *testing.T, paymentType sale.PaymentType, total string, at time.Time) *sale.Sale {
	t.Helper()
	doc := &sale.Sale{
		Base:        entity.NewBase(),
		Customer:    sale.DefaultCustomer,
		PaymentType: paymentType,
		Total:       types.MustMoney(total),
	}
	doc.CreatedAt = at
	doc.SettleInitial()
	return doc
}

func makePayment(method sale.PaymentType, amount string, at time.Time) sale.Payment {
	return sale.Payment{
		ID:        id.New(),
		SaleID:    id.New(),
		Amount:    types.MustMoney(amount),
		Method:    method,
		CreatedAt: at,
	}
}

func TestPeriodTotals(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sales := []*sale.Sale{
		makeSale(t, sale.PaymentCash, "10.00", from.Add(2*time.Hour)),
		makeSale(t, sale.PaymentOnline, "25.50", from.Add(26*time.Hour)),
		makeSale(t, sale.PaymentHutang, "60.00", from.Add(48*time.Hour)),
		// Outside the window, must not count.
		makeSale(t, sale.PaymentCash, "99.00", from.Add(-time.Hour)),
		makeSale(t, sale.PaymentCash, "99.00", to),
	}
	payments := []sale.Payment{
		makePayment(sale.PaymentCash, "20.00", from.Add(72*time.Hour)),
		makePayment(sale.PaymentOnline, "5.00", from.Add(73*time.Hour)),
		makePayment(sale.PaymentCash, "99.00", to.Add(time.Hour)),
	}

	got := PeriodTotals(from, to, sales, payments)

	assert.Equal(t, 3, got.SalesCount)
	assert.Equal(t, 2, got.PaymentCount)
	assert.True(t, got.CashTotal.Equal(types.MustMoney("30.00")), "10 sale + 20 settlement, got %s", got.CashTotal)
	assert.True(t, got.OnlineTotal.Equal(types.MustMoney("30.50")), "25.50 sale + 5 settlement, got %s", got.OnlineTotal)
	assert.True(t, got.Received.Equal(types.MustMoney("60.50")))
	assert.True(t, got.HutangOutstanding.Equal(types.MustMoney("60.00")))
}

func TestPeriodTotals_Idempotent(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	sales := []*sale.Sale{makeSale(t, sale.PaymentCash, "10.00", from)}
	payments := []sale.Payment{makePayment(sale.PaymentCash, "5.00", from)}

	first := PeriodTotals(from, to, sales, payments)
	second := PeriodTotals(from, to, sales, payments)

	assert.Equal(t, first.SalesCount, second.SalesCount)
	assert.True(t, first.Received.Equal(second.Received))
	assert.True(t, first.CashTotal.Equal(second.CashTotal))
}

func TestDayTotals_BucketsByCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	from := time.Date(2026, 8, 31, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 3)

	sales := []*sale.Sale{
		// 2026-08-31 23:00 UTC+8.
		makeSale(t, sale.PaymentCash, "10.00", time.Date(2026, 8, 31, 23, 0, 0, 0, loc)),
		// 17:00 UTC is 2026-09-02 01:00 in UTC+8: the local calendar
		// day decides the bucket.
		makeSale(t, sale.PaymentCash, "7.00", time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)),
		makeSale(t, sale.PaymentOnline, "3.00", time.Date(2026, 9, 2, 9, 0, 0, 0, loc)),
	}

	got := DayTotals(from, to, loc, sales, nil)
	require.Len(t, got, 2)

	assert.Equal(t, "2026-08-31", got[0].Bucket)
	assert.True(t, got[0].CashTotal.Equal(types.MustMoney("10.00")))

	assert.Equal(t, "2026-09-02", got[1].Bucket)
	assert.Equal(t, 2, got[1].SalesCount)
	assert.True(t, got[1].Received.Equal(types.MustMoney("10.00")))
}

func TestMonthTotals(t *testing.T) {
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	sales := []*sale.Sale{
		makeSale(t, sale.PaymentCash, "10.00", time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)),
		makeSale(t, sale.PaymentCash, "20.00", time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)),
	}
	payments := []sale.Payment{
		makePayment(sale.PaymentOnline, "15.00", time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)),
	}

	got := MonthTotals(from, to, time.UTC, sales, payments)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"2026-07", "2026-08", "2026-09"},
		[]string{got[0].Bucket, got[1].Bucket, got[2].Bucket})
	assert.True(t, got[1].OnlineTotal.Equal(types.MustMoney("15.00")))
}

func TestLowStock(t *testing.T) {
	threshold := int64(5)

	atThreshold := product.New("Kopi O", 5, types.MustMoney("1.50"))
	atThreshold.ReorderPoint = &threshold

	above := product.New("Teh Tarik", 6, types.MustMoney("2.00"))
	above.ReorderPoint = &threshold

	noPoint := product.New("Milo", 0, types.MustMoney("3.00"))

	got := LowStock([]*product.Product{atThreshold, above, noPoint})
	require.Len(t, got, 1)
	assert.Equal(t, "Kopi O", got[0].Name)
}
