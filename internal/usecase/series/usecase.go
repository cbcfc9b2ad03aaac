package series

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ncd-admin-backend/internal/domain/audit"
	domain "ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/pkg/dateparse"
	"ncd-admin-backend/pkg/id"
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
	e.EntityType = audit.EntitySeries
	u.audit.Record(ctx, actor, e)
}

// List returns every series with its status derived for today.
func (u *Usecase) List(ctx context.Context) []domain.Series {
	d := u.uow.Read(ctx)
	today := dateparse.Day(u.now())
	for i := range d.Series {
		d.Series[i].Status = domain.DeriveStatus(d.Series[i], today)
	}
	return d.Series
}

// Get returns one series and the non-deleted investors holding it.
func (u *Usecase) Get(ctx context.Context, seriesID int64) (*Detail, error) {
	d := u.uow.Read(ctx)
	i := d.SeriesIndex(seriesID)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	s := d.Series[i]
	s.Status = domain.DeriveStatus(s, dateparse.Day(u.now()))

	out := &Detail{Series: s, Holders: []Holder{}}
	for _, inv := range d.Investors {
		if inv.Deleted() || !inv.Holds(seriesID) {
			continue
		}
		out.Holders = append(out.Holders, Holder{
			InvestorID: inv.InvestorID,
			Name:       inv.Name,
			Amount:     inv.AmountIn(seriesID),
		})
	}
	return out, nil
}

func (u *Usecase) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*domain.Series, error) {
	s := domain.Series{
		Name:                  strings.TrimSpace(in.Name),
		Status:                domain.StatusDraft,
		IssueDate:             in.IssueDate,
		MaturityDate:          in.MaturityDate,
		SubscriptionStartDate: in.SubscriptionStartDate,
		SubscriptionEndDate:   in.SubscriptionEndDate,
		LockInDate:            in.LockInDate,
		FaceValue:             in.FaceValue,
		MinInvestment:         in.MinInvestment,
		TargetAmount:          in.TargetAmount,
		TotalIssueSize:        in.TotalIssueSize,
		InterestRate:          in.InterestRate,
		InterestFrequency:     in.InterestFrequency,
		InterestPaymentDay:    in.InterestPaymentDay,
		LockInMonths:          in.LockInMonths,
		TenureMonths:          in.TenureMonths,
		SeedAmount:            in.SeedAmount,
	}
	if err := validate(s); err != nil {
		return nil, err
	}

	var created domain.Series
	err := u.uow.WithinTx(ctx, "series.create", func(d *uow.Dataset) error {
		if nameTaken(d.Series, s.Name, 0) {
			return domain.ErrDuplicateName
		}
		s.ID = id.NextInt(d.Series, func(x domain.Series) int64 { return x.ID })
		s.CreatedAt = u.now().UTC()
		d.Series = append(d.Series, s)
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionSeriesCreated,
		EntityID: strconv.FormatInt(created.ID, 10),
		Details:  fmt.Sprintf("Created series %s", created.Name),
	})
	return u.reload(ctx, created.ID)
}

func (u *Usecase) Update(ctx context.Context, actor audit.Actor, seriesID int64, in UpdateInput) (*domain.Series, error) {
	changes := map[string]any{}
	err := u.uow.WithinTx(ctx, "series.update", func(d *uow.Dataset) error {
		clear(changes)
		i := d.SeriesIndex(seriesID)
		if i < 0 {
			return domain.ErrNotFound
		}
		s := d.Series[i]

		setStr := func(key string, dst *string, v *string) {
			if v != nil && *v != *dst {
				changes[key] = map[string]any{"from": *dst, "to": *v}
				*dst = *v
			}
		}
		setF := func(key string, dst *float64, v *float64) {
			if v != nil && *v != *dst {
				changes[key] = map[string]any{"from": *dst, "to": *v}
				*dst = *v
			}
		}
		setI := func(key string, dst *int, v *int) {
			if v != nil && *v != *dst {
				changes[key] = map[string]any{"from": *dst, "to": *v}
				*dst = *v
			}
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			in.Name = &name
		}
		setStr("name", &s.Name, in.Name)
		setStr("issueDate", &s.IssueDate, in.IssueDate)
		setStr("maturityDate", &s.MaturityDate, in.MaturityDate)
		setStr("subscriptionStartDate", &s.SubscriptionStartDate, in.SubscriptionStartDate)
		setStr("subscriptionEndDate", &s.SubscriptionEndDate, in.SubscriptionEndDate)
		setStr("lockInDate", &s.LockInDate, in.LockInDate)
		setStr("interestFrequency", &s.InterestFrequency, in.InterestFrequency)
		setF("faceValue", &s.FaceValue, in.FaceValue)
		setF("minInvestment", &s.MinInvestment, in.MinInvestment)
		setF("targetAmount", &s.TargetAmount, in.TargetAmount)
		setF("totalIssueSize", &s.TotalIssueSize, in.TotalIssueSize)
		setF("interestRate", &s.InterestRate, in.InterestRate)
		setI("interestPaymentDay", &s.InterestPaymentDay, in.InterestPaymentDay)
		setI("lockInMonths", &s.LockInMonths, in.LockInMonths)
		setI("tenureMonths", &s.TenureMonths, in.TenureMonths)

		if len(changes) == 0 {
			return uow.ErrNoChange
		}
		if err := validate(s); err != nil {
			return err
		}
		if nameTaken(d.Series, s.Name, s.ID) {
			return domain.ErrDuplicateName
		}
		if s.ApprovedAt != nil {
			s.ReleaseDate = s.IssueDate
		}
		d.Series[i] = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		u.record(ctx, actor, audit.Entry{
			Action:   audit.ActionSeriesUpdated,
			EntityID: strconv.FormatInt(seriesID, 10),
			Details:  "Updated series details",
			Changes:  changes,
		})
	}
	return u.reload(ctx, seriesID)
}

// Approve moves a draft into its date-derived status.
func (u *Usecase) Approve(ctx context.Context, actor audit.Actor, seriesID int64, in ApproveInput) (*domain.Series, error) {
	var name string
	var status domain.Status
	err := u.uow.WithinTx(ctx, "series.approve", func(d *uow.Dataset) error {
		i := d.SeriesIndex(seriesID)
		if i < 0 {
			return domain.ErrNotFound
		}
		s := d.Series[i]

		// State guard: only DRAFT → approved
		if s.Status != domain.StatusDraft {
			if s.ApprovedAt != nil {
				return domain.ErrAlreadyApproved
			}
			return domain.ErrInvalidTransition
		}

		if !dateparse.Valid(in.SubscriptionStartDate) || !dateparse.Valid(in.SubscriptionEndDate) {
			return domain.ErrInvalidDates
		}
		s.SubscriptionStartDate = in.SubscriptionStartDate
		s.SubscriptionEndDate = in.SubscriptionEndDate
		if in.IssueDate != "" {
			s.IssueDate = in.IssueDate
		}
		if in.MaturityDate != "" {
			s.MaturityDate = in.MaturityDate
		}
		if err := validate(s); err != nil {
			return err
		}

		now := u.now()
		approvedAt := now.UTC()
		s.ApprovedAt = &approvedAt
		s.ReleaseDate = s.IssueDate
		s.Status = domain.InitialStatus(s, dateparse.Day(now))
		d.Series[i] = s

		name, status = s.Name, s.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionSeriesApproved,
		EntityID: strconv.FormatInt(seriesID, 10),
		Details:  fmt.Sprintf("Approved series %s", name),
		Changes:  map[string]any{"status": map[string]any{"from": domain.StatusDraft, "to": status}},
	})
	return u.reload(ctx, seriesID)
}

func (u *Usecase) Reject(ctx context.Context, actor audit.Actor, seriesID int64, reason string) (*domain.Series, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrRejectionReasonRequired
	}

	var name string
	err := u.uow.WithinTx(ctx, "series.reject", func(d *uow.Dataset) error {
		i := d.SeriesIndex(seriesID)
		if i < 0 {
			return domain.ErrNotFound
		}
		s := d.Series[i]
		if s.Status != domain.StatusDraft {
			return domain.ErrInvalidTransition
		}
		rejectedAt := u.now().UTC()
		s.Status = domain.StatusRejected
		s.RejectedAt = &rejectedAt
		s.RejectionReason = reason
		d.Series[i] = s
		name = s.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionSeriesRejected,
		EntityID: strconv.FormatInt(seriesID, 10),
		Details:  fmt.Sprintf("Rejected series %s: %s", name, reason),
	})
	return u.reload(ctx, seriesID)
}

// Delete removes a draft or upcoming series and strips it from every
// investor, recomputing their totals.
func (u *Usecase) Delete(ctx context.Context, actor audit.Actor, seriesID int64) error {
	var name string
	var affected int
	err := u.uow.WithinTx(ctx, "series.delete", func(d *uow.Dataset) error {
		affected = 0
		i := d.SeriesIndex(seriesID)
		if i < 0 {
			return domain.ErrNotFound
		}
		s := d.Series[i]
		if !domain.Deletable(domain.DeriveStatus(s, dateparse.Day(u.now()))) {
			return domain.ErrNotDeletable
		}

		d.Series = append(d.Series[:i:i], d.Series[i+1:]...)
		for j := range d.Investors {
			if d.Investors[j].Holds(seriesID) {
				d.Investors[j].Drop(seriesID)
				affected++
			}
		}
		name = s.Name
		return nil
	})
	if err != nil {
		return err
	}

	u.record(ctx, actor, audit.Entry{
		Action:   audit.ActionSeriesDeleted,
		EntityID: strconv.FormatInt(seriesID, 10),
		Details:  fmt.Sprintf("Deleted series %s (%d investors affected)", name, affected),
	})
	return nil
}

// Recalculate forces a metrics refresh. With seriesID nil every series is
// refreshed; otherwise the id must exist.
func (u *Usecase) Recalculate(ctx context.Context, actor audit.Actor, seriesID *int64) ([]domain.Series, error) {
	err := u.uow.WithinTx(ctx, "series.recalculate", func(d *uow.Dataset) error {
		if seriesID != nil && d.SeriesIndex(*seriesID) < 0 {
			return domain.ErrNotFound
		}
		// the commit re-derives metrics
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := audit.Entry{Action: audit.ActionSeriesRecalculated, Details: "Recalculated all series metrics"}
	if seriesID != nil {
		e.EntityID = strconv.FormatInt(*seriesID, 10)
		e.Details = "Recalculated series metrics"
	}
	u.record(ctx, actor, e)

	list := u.List(ctx)
	if seriesID == nil {
		return list, nil
	}
	for _, s := range list {
		if s.ID == *seriesID {
			return []domain.Series{s}, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (u *Usecase) reload(ctx context.Context, seriesID int64) (*domain.Series, error) {
	d, err := u.Get(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return &d.Series, nil
}

func nameTaken(list []domain.Series, name string, except int64) bool {
	for _, s := range list {
		if s.ID != except && strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return true
		}
	}
	return false
}

func validate(s domain.Series) error {
	if s.Name == "" {
		return domain.ErrNameRequired
	}
	for _, raw := range []string{s.IssueDate, s.MaturityDate, s.SubscriptionStartDate, s.SubscriptionEndDate, s.LockInDate} {
		if raw != "" && !dateparse.Valid(raw) {
			return domain.ErrInvalidDates
		}
	}
	if issue, ok := dateparse.Parse(s.IssueDate); ok {
		if maturity, ok := dateparse.Parse(s.MaturityDate); ok && !maturity.After(issue) {
			return domain.ErrInvalidDates
		}
	}
	if start, ok := dateparse.Parse(s.SubscriptionStartDate); ok {
		if end, ok := dateparse.Parse(s.SubscriptionEndDate); ok && end.Before(start) {
			return domain.ErrInvalidDates
		}
	}
	if s.TargetAmount > 0 && s.MinInvestment > s.TargetAmount {
		return domain.ErrInvalidAmounts
	}
	// 0 means no payment day has been set yet
	if s.InterestPaymentDay < 0 || s.InterestPaymentDay > 31 {
		return domain.ErrInvalidPaymentDay
	}
	return nil
}
