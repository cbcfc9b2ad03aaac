// Package aggregate derives per-series investor counts and funds raised
// from the investor list. Everything here is a pure function of its inputs.
package aggregate

import (
	"math"
	"time"

	"ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
)

type Metrics struct {
	Investors   int
	FundsRaised float64
}

// ForSeries counts non-deleted investors holding s and sums their
// investments in s, plus the series' seed amount.
func ForSeries(investors []investor.Investor, s series.Series) Metrics {
	m := Metrics{}
	var funds float64
	for _, inv := range investors {
		if inv.Deleted() || !inv.Holds(s.ID) {
			continue
		}
		m.Investors++
		funds += inv.AmountIn(s.ID)
	}
	m.FundsRaised = round2(funds + s.SeedAmount)
	return m
}

// Recalculate returns a copy of list with Investors/FundsRaised refreshed.
// When only is non-nil just that series is touched. Touched rows get
// LastUpdated = now even if the numbers did not move.
func Recalculate(list []series.Series, investors []investor.Investor, only *int64, now time.Time) []series.Series {
	out := make([]series.Series, len(list))
	copy(out, list)
	for i := range out {
		if only != nil && out[i].ID != *only {
			continue
		}
		m := ForSeries(investors, out[i])
		out[i].Investors = m.Investors
		out[i].FundsRaised = m.FundsRaised
		out[i].LastUpdated = now
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
