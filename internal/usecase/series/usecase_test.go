package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"ncd-admin-backend/internal/domain/audit"
	"ncd-admin-backend/internal/domain/investor"
	domain "ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/internal/testutil/auditmock"
	"ncd-admin-backend/internal/testutil/uowmock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = audit.Actor{Name: "Asha", Role: "Super Admin"}

// 15/01/2025 local noon
var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.Local)

func ptr[T any](v T) *T { return &v }

func newUC(t *testing.T, d uow.Dataset) (*Usecase, *uowmock.Memory, *auditmock.Recorder) {
	t.Helper()
	mem := uowmock.NewMemory(d)
	mem.Now = func() time.Time { return fixedNow }
	rec := &auditmock.Recorder{}
	return NewUsecase(mem, rec, WithClock(func() time.Time { return fixedNow })), mem, rec
}

func draft(id int64, name string) domain.Series {
	return domain.Series{
		ID: id, Name: name, Status: domain.StatusDraft,
		IssueDate: "01/03/2025", MaturityDate: "01/03/2030",
		MinInvestment: 10000, TargetAmount: 1000000, InterestRate: 10,
	}
}

func holder(id int64, seriesAmounts map[int64]float64, order ...int64) investor.Investor {
	inv := investor.Investor{ID: id, InvestorID: "INV-" + string(rune('0'+id)), Name: "Investor", Status: investor.StatusActive}
	for _, sid := range order {
		inv.Book(investor.Investment{SeriesID: sid, Amount: seriesAmounts[sid], Date: "01/01/2025"})
	}
	return inv
}

func TestCreate(t *testing.T) {
	uc, mem, rec := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series A")}})
	ctx := context.Background()

	s, err := uc.Create(ctx, admin, CreateInput{
		Name: "  Series F  ", IssueDate: "01/03/2025", MaturityDate: "01/03/2030",
		MinInvestment: 10000, TargetAmount: 500000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ID)
	assert.Equal(t, "Series F", s.Name)
	assert.Equal(t, domain.StatusDraft, s.Status)
	assert.Equal(t, []string{audit.ActionSeriesCreated}, rec.Actions())
	assert.Equal(t, audit.EntitySeries, rec.Entries[0].EntityType)
	assert.Len(t, mem.Commits, 1)

	t.Run("duplicate name is case-insensitive", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "series a"})
		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})
	t.Run("bad date", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "G", IssueDate: "31/02/2025"})
		assert.ErrorIs(t, err, domain.ErrInvalidDates)
	})
	t.Run("maturity before issue", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "G", IssueDate: "01/03/2025", MaturityDate: "01/03/2024"})
		assert.ErrorIs(t, err, domain.ErrInvalidDates)
	})
	t.Run("min above target", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "G", MinInvestment: 10, TargetAmount: 5})
		assert.ErrorIs(t, err, domain.ErrInvalidAmounts)
	})
	t.Run("payment day out of range", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "G", InterestPaymentDay: 32})
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentDay)
	})
	t.Run("empty name", func(t *testing.T) {
		_, err := uc.Create(ctx, admin, CreateInput{Name: "  "})
		assert.ErrorIs(t, err, domain.ErrNameRequired)
	})
	assert.Len(t, mem.Commits, 1, "failed creates must not commit")
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription window open today → accepting", func(t *testing.T) {
		uc, mem, rec := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series F")}})
		s, err := uc.Approve(ctx, admin, 1, ApproveInput{
			SubscriptionStartDate: "01/01/2025",
			SubscriptionEndDate:   "31/01/2025",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepting, s.Status)
		assert.NotNil(t, s.ApprovedAt)
		assert.Equal(t, "01/03/2025", s.ReleaseDate)
		assert.Equal(t, domain.StatusAccepting, mem.Snapshot().Series[0].Status)
		assert.Equal(t, []string{audit.ActionSeriesApproved}, rec.Actions())
	})

	t.Run("future window → upcoming", func(t *testing.T) {
		uc, _, _ := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series F")}})
		s, err := uc.Approve(ctx, admin, 1, ApproveInput{
			SubscriptionStartDate: "2025-02-01",
			SubscriptionEndDate:   "2025-02-28",
			IssueDate:             "2025-03-05",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUpcoming, s.Status)
		assert.Equal(t, "2025-03-05", s.IssueDate)
		assert.Equal(t, "2025-03-05", s.ReleaseDate)
	})

	t.Run("missing window", func(t *testing.T) {
		uc, _, _ := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series F")}})
		_, err := uc.Approve(ctx, admin, 1, ApproveInput{SubscriptionStartDate: "01/01/2025"})
		assert.ErrorIs(t, err, domain.ErrInvalidDates)
	})

	t.Run("already approved", func(t *testing.T) {
		uc, _, _ := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series F")}})
		in := ApproveInput{SubscriptionStartDate: "01/01/2025", SubscriptionEndDate: "31/01/2025"}
		_, err := uc.Approve(ctx, admin, 1, in)
		require.NoError(t, err)
		_, err = uc.Approve(ctx, admin, 1, in)
		assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	})

	t.Run("rejected cannot be approved", func(t *testing.T) {
		s := draft(1, "Series F")
		s.Status = domain.StatusRejected
		uc, _, _ := newUC(t, uow.Dataset{Series: []domain.Series{s}})
		_, err := uc.Approve(ctx, admin, 1, ApproveInput{SubscriptionStartDate: "01/01/2025", SubscriptionEndDate: "31/01/2025"})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("not found", func(t *testing.T) {
		uc, _, _ := newUC(t, uow.Dataset{})
		_, err := uc.Approve(ctx, admin, 9, ApproveInput{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	uc, mem, rec := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series F")}})

	_, err := uc.Reject(ctx, admin, 1, "   ")
	assert.ErrorIs(t, err, domain.ErrRejectionReasonRequired)

	s, err := uc.Reject(ctx, admin, 1, "coupon too high")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, s.Status)
	assert.Equal(t, "coupon too high", s.RejectionReason)
	assert.NotNil(t, s.RejectedAt)

	// date logic never overrides a rejection
	assert.Equal(t, domain.StatusRejected, uc.List(ctx)[0].Status)

	_, err = uc.Reject(ctx, admin, 1, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Len(t, mem.Commits, 1)
	assert.Equal(t, []string{audit.ActionSeriesRejected}, rec.Actions())
}

func TestDelete_CascadesToInvestors(t *testing.T) {
	ctx := context.Background()
	x := draft(1, "X")
	x.Status = domain.StatusUpcoming
	x.SubscriptionStartDate, x.SubscriptionEndDate = "01/02/2025", "28/02/2025"
	y := draft(2, "Y")
	y.Status = domain.StatusActive
	y.SubscriptionStartDate, y.SubscriptionEndDate = "01/12/2024", "31/12/2024"
	inv := holder(1, map[int64]float64{1: 5000, 2: 7000}, 1, 2)

	uc, mem, rec := newUC(t, uow.Dataset{Series: []domain.Series{x, y}, Investors: []investor.Investor{inv}})
	require.NoError(t, uc.Delete(ctx, admin, 1))

	got := mem.Snapshot()
	require.Len(t, got.Series, 1)
	assert.Equal(t, "Y", got.Series[0].Name)
	assert.Equal(t, []int64{2}, got.Investors[0].Series)
	assert.Equal(t, []investor.Investment{{SeriesID: 2, Amount: 7000, Date: "01/01/2025"}}, got.Investors[0].Investments)
	assert.Equal(t, 7000.0, got.Investors[0].Investment)
	assert.Equal(t, 7000.0, got.Series[0].FundsRaised)
	assert.Equal(t, []string{audit.ActionSeriesDeleted}, rec.Actions())
}

func TestDelete_GuardedByDerivedStatus(t *testing.T) {
	ctx := context.Background()
	// stored as upcoming but its window is open today
	s := draft(1, "Live")
	s.Status = domain.StatusUpcoming
	s.SubscriptionStartDate, s.SubscriptionEndDate = "01/01/2025", "31/01/2025"
	inv := holder(1, map[int64]float64{1: 5000}, 1)

	uc, mem, _ := newUC(t, uow.Dataset{Series: []domain.Series{s}, Investors: []investor.Investor{inv}})
	err := uc.Delete(ctx, admin, 1)
	assert.ErrorIs(t, err, domain.ErrNotDeletable)

	got := mem.Snapshot()
	assert.Len(t, got.Series, 1)
	assert.Equal(t, []int64{1}, got.Investors[0].Series)
	assert.Empty(t, mem.Commits)

	assert.ErrorIs(t, uc.Delete(ctx, admin, 42), domain.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	uc, mem, rec := newUC(t, uow.Dataset{Series: []domain.Series{draft(1, "Series A"), draft(2, "Series B")}})

	s, err := uc.Update(ctx, admin, 1, UpdateInput{Name: ptr("Series A1"), InterestRate: ptr(11.0)})
	require.NoError(t, err)
	assert.Equal(t, "Series A1", s.Name)
	assert.Equal(t, 11.0, s.InterestRate)
	require.Len(t, rec.Entries, 1)
	assert.Contains(t, rec.Entries[0].Changes, "name")
	assert.Contains(t, rec.Entries[0].Changes, "interestRate")

	_, err = uc.Update(ctx, admin, 1, UpdateInput{Name: ptr("SERIES B")})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	// nothing changed → no commit, no audit
	_, err = uc.Update(ctx, admin, 1, UpdateInput{InterestRate: ptr(11.0)})
	require.NoError(t, err)
	assert.Len(t, mem.Commits, 1)
	assert.Len(t, rec.Entries, 1)

	_, err = uc.Update(ctx, admin, 7, UpdateInput{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenameKeepsInvestorLinks(t *testing.T) {
	ctx := context.Background()
	s := draft(1, "Old")
	s.Status = domain.StatusActive
	inv := holder(1, map[int64]float64{1: 2500}, 1)
	uc, _, _ := newUC(t, uow.Dataset{Series: []domain.Series{s}, Investors: []investor.Investor{inv}})

	_, err := uc.Update(ctx, admin, 1, UpdateInput{Name: ptr("New")})
	require.NoError(t, err)

	d, err := uc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New", d.Name)
	require.Len(t, d.Holders, 1)
	assert.Equal(t, 2500.0, d.Holders[0].Amount)
	assert.Equal(t, 1, d.Investors)
}

func TestList_DerivesStatusOnRead(t *testing.T) {
	ctx := context.Background()
	s := draft(1, "Window")
	s.Status = domain.StatusUpcoming // stale
	s.SubscriptionStartDate, s.SubscriptionEndDate = "01/01/2025", "31/01/2025"
	m := draft(2, "Old")
	m.Status = domain.StatusActive
	m.MaturityDate = "01/01/2020"
	m.IssueDate = "01/01/2015"
	m.SubscriptionEndDate = "01/01/2030"

	uc, mem, _ := newUC(t, uow.Dataset{Series: []domain.Series{s, m}})
	list := uc.List(ctx)
	assert.Equal(t, domain.StatusAccepting, list[0].Status)
	assert.Equal(t, domain.StatusMatured, list[1].Status)
	assert.Empty(t, mem.Commits, "reads never write")
}

func TestRecalculate(t *testing.T) {
	ctx := context.Background()
	s := draft(1, "A")
	s.Status = domain.StatusActive
	s.Investors, s.FundsRaised = 99, 1 // stale
	inv := holder(1, map[int64]float64{1: 10000}, 1)
	deleted := holder(2, map[int64]float64{1: 99999}, 1)
	deleted.Status = investor.StatusDeleted

	uc, _, rec := newUC(t, uow.Dataset{Series: []domain.Series{s}, Investors: []investor.Investor{inv, deleted}})

	list, err := uc.Recalculate(ctx, admin, ptr(int64(1)))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Investors)
	assert.Equal(t, 10000.0, list[0].FundsRaised)

	all, err := uc.Recalculate(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = uc.Recalculate(ctx, admin, ptr(int64(5)))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{audit.ActionSeriesRecalculated, audit.ActionSeriesRecalculated}, rec.Actions())
}

func TestCommitErrorPropagates(t *testing.T) {
	boom := errors.New("kv down")
	tx := &uowmock.UoW{
		WithinTxFn: func(context.Context, string, func(*uow.Dataset) error) error { return boom },
		ReadFn:     func(context.Context) uow.Dataset { return uow.Dataset{} },
	}
	rec := &auditmock.Recorder{}
	uc := NewUsecase(tx, rec)
	_, err := uc.Create(context.Background(), admin, CreateInput{Name: "Z"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.Actions(), "no audit for failed commits")
}
