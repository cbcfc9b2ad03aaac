// Package payout computes the monthly interest owed to each investor in an
// active series.
package payout

import (
	"context"
	"errors"
	"math"
	"time"

	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/pkg/dateparse"
)

var ErrNotPayable = errors.New("interest is only paid on active series")

type Line struct {
	InvestorID      string  `json:"investorId"`
	Name            string  `json:"name"`
	Principal       float64 `json:"principal"`
	MonthlyInterest float64 `json:"monthlyInterest"`
}

type Schedule struct {
	SeriesID        int64   `json:"seriesId"`
	SeriesName      string  `json:"seriesName"`
	InterestRate    float64 `json:"interestRate"`
	NextPaymentDate string  `json:"nextPaymentDate,omitempty"`
	Lines           []Line  `json:"lines"`
	Total           float64 `json:"total"`
}

type Usecase struct {
	uow uow.UnitOfWork
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, now func() time.Time) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{uow: tx, now: now}
}

func (u *Usecase) ForSeries(ctx context.Context, seriesID int64) (*Schedule, error) {
	d := u.uow.Read(ctx)
	i := d.SeriesIndex(seriesID)
	if i < 0 {
		return nil, series.ErrNotFound
	}
	s := d.Series[i]
	today := dateparse.Day(u.now())
	if series.DeriveStatus(s, today) != series.StatusActive {
		return nil, ErrNotPayable
	}

	out := &Schedule{
		SeriesID:     s.ID,
		SeriesName:   s.Name,
		InterestRate: s.InterestRate,
		Lines:        []Line{},
	}
	if next, ok := NextPaymentDate(today, s.InterestPaymentDay); ok {
		out.NextPaymentDate = dateparse.Format(next)
	}
	var total float64
	for _, inv := range d.Investors {
		if inv.Deleted() || !inv.Holds(s.ID) {
			continue
		}
		principal := inv.AmountIn(s.ID)
		interest := MonthlyInterest(principal, s.InterestRate)
		out.Lines = append(out.Lines, Line{
			InvestorID:      inv.InvestorID,
			Name:            inv.Name,
			Principal:       principal,
			MonthlyInterest: interest,
		})
		total += interest
	}
	out.Total = round2(total)
	return out, nil
}

// MonthlyInterest is amount × annual rate / 12, in rupees and paise.
func MonthlyInterest(amount, ratePercent float64) float64 {
	return round2(amount * ratePercent / 100 / 12)
}

// NextPaymentDate is the next payDay on or after today. A payDay past the
// end of a month falls on that month's last day. ok is false when payDay is
// not a day of the month (an unset day is 0).
func NextPaymentDate(today time.Time, payDay int) (time.Time, bool) {
	if payDay < 1 || payDay > 31 {
		return time.Time{}, false
	}
	today = dateparse.Day(today)
	this := onDay(today.Year(), today.Month(), payDay)
	if !this.Before(today) {
		return this, true
	}
	next := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, time.Local)
	return onDay(next.Year(), next.Month(), payDay), true
}

func onDay(y int, m time.Month, day int) time.Time {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.Local).Day()
	if day > last {
		day = last
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.Local)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
