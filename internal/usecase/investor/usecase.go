package investor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ncd-admin-backend/internal/domain/audit"
	domain "ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/pkg/dateparse"
	"ncd-admin-backend/pkg/id"
)

var (
	ErrInvestorIDRequired = errors.New("investor id is required")
	ErrNameRequired       = errors.New("investor name is required")
	ErrInvalidAmount      = errors.New("investment amount must be positive")
	ErrInvalidDate        = errors.New("invalid investment date")
	ErrInvalidKYC         = errors.New("invalid kyc status")
)

type Usecase struct {
	uow   uow.UnitOfWork
	audit audit.Recorder
	now   func() time.Time
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

func NewUsecase(tx uow.UnitOfWork, rec audit.Recorder, opts ...Option) *Usecase {
	u := &Usecase{uow: tx, audit: rec, now: time.Now}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *Usecase) record(ctx context.Context, actor audit.Actor, e audit.Entry) {
	if u.audit == nil {
		return
	}
	e.EntityType = audit.EntityInvestor
	u.audit.Record(ctx, actor, e)
}

// List returns investors in id order. Deleted investors are left out
// unless includeDeleted is set.
func (u *Usecase) List(ctx context.Context, includeDeleted bool) []domain.Investor {
	d := u.uow.Read(ctx)
	out := make([]domain.Investor, 0, len(d.Investors))
	for _, inv := range d.Investors {
		if inv.Deleted() && !includeDeleted {
			continue
		}
		out = append(out, inv)
	}
	return out
}

func (u *Usecase) Get(ctx context.Context, investorID int64) (*Detail, error) {
	d := u.uow.Read(ctx)
	i := d.InvestorIndex(investorID)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	inv := d.Investors[i]

	out := &Detail{Investor: inv, Holdings: []Holding{}}
	for _, sid := range inv.Series {
		h := Holding{SeriesID: sid, Amount: inv.AmountIn(sid)}
		if j := d.SeriesIndex(sid); j >= 0 {
			h.SeriesName = d.Series[j].Name
		}
		out.Holdings = append(out.Holdings, h)
	}
	return out, nil
}

func (u *Usecase) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*Detail, error) {
	inv := domain.Investor{
		InvestorID: strings.TrimSpace(in.InvestorID),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		PAN:        strings.ToUpper(strings.TrimSpace(in.PAN)),
		Status:     domain.StatusActive,
		KYCStatus:  in.KYCStatus,
		Series:     []int64{},
	}
	if inv.InvestorID == "" {
		return nil, ErrInvestorIDRequired
	}
	if inv.Name == "" {
		return nil, ErrNameRequired
	}
	if inv.KYCStatus == "" {
		inv.KYCStatus = domain.KYCPending
	}
	if !validKYC(inv.KYCStatus) {
		return nil, ErrInvalidKYC
	}

	var created domain.Investor
	err := u.uow.WithinTx(ctx, "investor.create", func(d *uow.Dataset) error {
		for _, other := range d.Investors {
			if domain.SameInvestorID(other.InvestorID, inv.InvestorID) {
				return domain.ErrDuplicateInvestorID
			}
		}
		rec := inv
		for _, in := range in.Investments {
			booking, err := u.booking(d, in)
			if err != nil {
				return err
			}
			rec.Book(booking)
		}
		rec.ID = id.NextInt(d.Investors, func(x domain.Investor) int64 { return x.ID })
		rec.CreatedAt = u.now().UTC()
		d.Investors = append(d.Investors, rec)
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionInvestorCreated,
		EntityID: created.InvestorID,
		Details:  fmt.Sprintf("Added investor %s with %d investments", created.Name, len(created.Investments)),
	})
	return u.Get(ctx, created.ID)
}

// Invest books a new investment into an open series.
func (u *Usecase) Invest(ctx context.Context, actor audit.Actor, investorID int64, in InvestmentInput) (*Detail, error) {
	var publicID, seriesName string
	err := u.uow.WithinTx(ctx, "investor.invest", func(d *uow.Dataset) error {
		i := d.InvestorIndex(investorID)
		if i < 0 || d.Investors[i].Deleted() {
			return domain.ErrNotFound
		}
		booking, err := u.booking(d, in)
		if err != nil {
			return err
		}
		d.Investors[i].Book(booking)
		publicID = d.Investors[i].InvestorID
		seriesName = d.Series[d.SeriesIndex(in.SeriesID)].Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionInvestmentAdded,
		EntityID: publicID,
		Details:  fmt.Sprintf("Invested %.2f in %s", in.Amount, seriesName),
		Changes:  map[string]any{"seriesId": in.SeriesID, "amount": in.Amount},
	})
	return u.Get(ctx, investorID)
}

func (u *Usecase) Update(ctx context.Context, actor audit.Actor, investorID int64, in UpdateInput) (*Detail, error) {
	if in.KYCStatus != nil && !validKYC(*in.KYCStatus) {
		return nil, ErrInvalidKYC
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameRequired
	}

	changes := map[string]any{}
	var publicID string
	err := u.uow.WithinTx(ctx, "investor.update", func(d *uow.Dataset) error {
		clear(changes)
		i := d.InvestorIndex(investorID)
		if i < 0 || d.Investors[i].Deleted() {
			return domain.ErrNotFound
		}
		inv := &d.Investors[i]
		set := func(key string, dst *string, v *string) {
			if v == nil {
				return
			}
			nv := strings.TrimSpace(*v)
			if nv != *dst {
				changes[key] = map[string]any{"from": *dst, "to": nv}
				*dst = nv
			}
		}
		set("name", &inv.Name, in.Name)
		set("email", &inv.Email, in.Email)
		set("phone", &inv.Phone, in.Phone)
		set("pan", &inv.PAN, in.PAN)
		if in.KYCStatus != nil && *in.KYCStatus != inv.KYCStatus {
			changes["kycStatus"] = map[string]any{"from": inv.KYCStatus, "to": *in.KYCStatus}
			inv.KYCStatus = *in.KYCStatus
		}
		publicID = inv.InvestorID
		if len(changes) == 0 {
			return uow.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		u.record(ctx, actor, audit.Entry{
			Action:   audit.ActionInvestorUpdated,
			EntityID: publicID,
			Details:  "Updated investor profile",
			Changes:  changes,
		})
	}
	return u.Get(ctx, investorID)
}

// Delete marks the investor deleted. Their investments stay on record but
// no longer count toward series metrics.
func (u *Usecase) Delete(ctx context.Context, actor audit.Actor, investorID int64) error {
	var inv domain.Investor
	err := u.uow.WithinTx(ctx, "investor.delete", func(d *uow.Dataset) error {
		i := d.InvestorIndex(investorID)
		if i < 0 || d.Investors[i].Deleted() {
			return domain.ErrNotFound
		}
		d.Investors[i].Status = domain.StatusDeleted
		inv = d.Investors[i]
		return nil
	})
	if err != nil {
		return err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionInvestorDeleted,
		EntityID: inv.InvestorID,
		Details:  fmt.Sprintf("Deleted investor %s", inv.Name),
	})
	return nil
}

// booking validates in against the current dataset.
func (u *Usecase) booking(d *uow.Dataset, in InvestmentInput) (domain.Investment, error) {
	if in.Amount <= 0 {
		return domain.Investment{}, ErrInvalidAmount
	}
	j := d.SeriesIndex(in.SeriesID)
	if j < 0 {
		return domain.Investment{}, series.ErrNotFound
	}
	s := d.Series[j]
	today := dateparse.Day(u.now())
	if !series.Open(series.DeriveStatus(s, today)) {
		return domain.Investment{}, domain.ErrSeriesClosed
	}
	if in.Amount < s.MinInvestment {
		return domain.Investment{}, domain.ErrBelowMinimum
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = dateparse.Format(today)
	} else if !dateparse.Valid(date) {
		return domain.Investment{}, ErrInvalidDate
	}
	return domain.Investment{SeriesID: in.SeriesID, Amount: in.Amount, Date: date}, nil
}

func validKYC(k domain.KYCStatus) bool {
	switch k {
	case domain.KYCPending, domain.KYCCompleted, domain.KYCRejected:
		return true
	}
	return false
}
