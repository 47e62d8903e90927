// Package reports provides shop-level aggregations: period revenue
// totals, day/month breakdowns, and the low-stock watchlist.
package reports

import (
	"time"

	"kedai/internal/core/types"
)

// Totals carries the revenue figures for one reporting window.
//
// CashTotal and OnlineTotal count money actually received: immediate
// sales by their payment type plus credit settlements recorded inside
// the window. HutangOutstanding is the unpaid remainder of credit sales
// opened inside the window.
type Totals struct {
	SalesCount        int         `json:"salesCount"`
	PaymentCount      int         `json:"paymentCount"`
	CashTotal         types.Money `json:"cashTotal"`
	OnlineTotal       types.Money `json:"onlineTotal"`
	Received          types.Money `json:"received"`
	HutangOutstanding types.Money `json:"hutangOutstanding"`
}

// BucketTotals is Totals keyed by a calendar bucket ("2026-09-01" for
// days, "2026-09" for months).
type BucketTotals struct {
	Bucket string `json:"bucket"`
	Totals
}

// PeriodFilter bounds a reporting request. Location controls which
// calendar day/month a timestamp falls into; nil means time.Local.
type PeriodFilter struct {
	From     time.Time
	To       time.Time
	Location *time.Location
}

func (f PeriodFilter) location() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}
