package uow

import (
	"context"
	"errors"

	"ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
)

// ErrNoChange may be returned from a WithinTx callback to abort without
// writing and without signalling a refresh. WithinTx then returns nil.
var ErrNoChange = errors.New("uow: no change")

// ErrConflict reports that another writer committed first and the change
// could not be reapplied on top of it.
var ErrConflict = errors.New("uow: concurrent modification")

// Dataset is the series/investor pair that every change operates on.
type Dataset struct {
	Series    []series.Series     `json:"series"`
	Investors []investor.Investor `json:"investors"`
}

func (d *Dataset) SeriesIndex(id int64) int {
	for i := range d.Series {
		if d.Series[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Dataset) InvestorIndex(id int64) int {
	for i := range d.Investors {
		if d.Investors[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone deep-copies the dataset so callers can mutate freely.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Series:    make([]series.Series, len(d.Series)),
		Investors: make([]investor.Investor, len(d.Investors)),
	}
	copy(out.Series, d.Series)
	for i, inv := range d.Investors {
		inv.Series = append([]int64(nil), inv.Series...)
		inv.Investments = append([]investor.Investment(nil), inv.Investments...)
		out.Investors[i] = inv
	}
	return out
}

type UnitOfWork interface {
	// WithinTx applies fn to a private copy of the dataset, re-derives
	// series metrics and commits the result as one write. Any error from
	// fn discards the copy. fn may run twice when another writer commits
	// in between, so it must not carry state across calls.
	WithinTx(ctx context.Context, reason string, fn func(d *Dataset) error) error
	// Read returns a deep copy of the committed dataset.
	Read(ctx context.Context) Dataset
}
