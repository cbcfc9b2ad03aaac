package investor

import (
	"errors"
	"math"
	"strings"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

type KYCStatus string

const (
	KYCPending   KYCStatus = "Pending"
	KYCCompleted KYCStatus = "Completed"
	KYCRejected  KYCStatus = "Rejected"
)

var (
	ErrNotFound            = errors.New("investor not found")
	ErrDuplicateInvestorID = errors.New("investor id already exists")
	ErrBelowMinimum        = errors.New("amount is below the series minimum investment")
	ErrSeriesClosed        = errors.New("series is not accepting investments")
)

// Investment is one booking into a series. Investments are the source of
// truth for per-series amounts.
type Investment struct {
	SeriesID int64   `json:"seriesId"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

type Investor struct {
	ID         int64  `json:"id"`
	InvestorID string `json:"investorId"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PAN        string `json:"pan,omitempty"`

	// Series holds the ids of series this investor is in, in booking order.
	Series      []int64      `json:"series"`
	Investments []Investment `json:"investments"`
	// Investment is the denormalised sum of Investments[].Amount.
	Investment float64 `json:"investment"`

	Status    Status    `json:"status"`
	KYCStatus KYCStatus `json:"kycStatus"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i Investor) Deleted() bool { return i.Status == StatusDeleted }

func (i Investor) Holds(seriesID int64) bool {
	for _, s := range i.Series {
		if s == seriesID {
			return true
		}
	}
	return false
}

// AmountIn sums every investment the investor booked into seriesID.
func (i Investor) AmountIn(seriesID int64) float64 {
	var sum float64
	for _, inv := range i.Investments {
		if inv.SeriesID == seriesID {
			sum += inv.Amount
		}
	}
	return sum
}

// Book appends an investment and keeps Series and Investment consistent.
func (i *Investor) Book(inv Investment) {
	if !i.Holds(inv.SeriesID) {
		i.Series = append(i.Series, inv.SeriesID)
	}
	i.Investments = append(i.Investments, inv)
	i.Recompute()
}

// Drop removes every trace of seriesID and recomputes the total.
func (i *Investor) Drop(seriesID int64) {
	series := i.Series[:0:0]
	for _, s := range i.Series {
		if s != seriesID {
			series = append(series, s)
		}
	}
	investments := i.Investments[:0:0]
	for _, inv := range i.Investments {
		if inv.SeriesID != seriesID {
			investments = append(investments, inv)
		}
	}
	i.Series = series
	i.Investments = investments
	i.Recompute()
}

// Recompute resets Investment to the sum of Investments, rounded to paise.
func (i *Investor) Recompute() {
	var sum float64
	for _, inv := range i.Investments {
		sum += inv.Amount
	}
	i.Investment = math.Round(sum*100) / 100
}

// SameInvestorID compares business keys case-insensitively.
func SameInvestorID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
