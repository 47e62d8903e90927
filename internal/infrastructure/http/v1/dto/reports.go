package dto

import (
	"time"

	"kedai/internal/core/apperror"
	"kedai/internal/domain/reports"
)

// PeriodQuery bounds a report request. Dates are inclusive start,
// exclusive end of day, interpreted in tz (IANA name, default local).
type PeriodQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
	TZ   string `form:"tz"`
}

// ToFilter parses the query into a reports filter. A bare date means
// midnight at the start of that day; the end bound covers the whole
// named day.
func (q *PeriodQuery) ToFilter() (reports.PeriodFilter, error) {
	loc := time.Local
	if q.TZ != "" {
		var err error
		if loc, err = time.LoadLocation(q.TZ); err != nil {
			return reports.PeriodFilter{}, apperror.NewInvalidInput("unknown timezone").
				WithDetail("tz", q.TZ)
		}
	}

	from, err := parseBound(q.From, loc, false)
	if err != nil {
		return reports.PeriodFilter{}, apperror.NewInvalidInput("invalid from date").
			WithDetail("from", q.From)
	}
	to, err := parseBound(q.To, loc, true)
	if err != nil {
		return reports.PeriodFilter{}, apperror.NewInvalidInput("invalid to date").
			WithDetail("to", q.To)
	}

	return reports.PeriodFilter{From: from, To: to, Location: loc}, nil
}

func parseBound(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
