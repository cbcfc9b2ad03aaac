package investor

import (
	"context"
	"testing"
	"time"

	"ncd-admin-backend/internal/domain/audit"
	domain "ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/internal/testutil/auditmock"
	"ncd-admin-backend/internal/testutil/uowmock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = audit.Actor{Name: "Ravi", Role: "Manager"}

var fixedNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local)

func ptr[T any](v T) *T { return &v }

// A is accepting on 15/01/2025, B is a legacy active row, C has not opened.
func fixture() uow.Dataset {
	return uow.Dataset{
		Series: []series.Series{
			{ID: 1, Name: "A", Status: series.StatusUpcoming, SubscriptionStartDate: "01/01/2025", SubscriptionEndDate: "31/01/2025", MinInvestment: 10000},
			{ID: 2, Name: "B", Status: series.StatusActive, IssueDate: "01/01/2023", MinInvestment: 5000, SeedAmount: 1000},
			{ID: 3, Name: "C", Status: series.StatusUpcoming, SubscriptionStartDate: "01/03/2025", SubscriptionEndDate: "31/03/2025", MinInvestment: 10000},
		},
		Investors: []domain.Investor{},
	}
}

func newUC(t *testing.T) (*Usecase, *uowmock.Memory, *auditmock.Recorder) {
	t.Helper()
	mem := uowmock.NewMemory(fixture())
	rec := &auditmock.Recorder{}
	return NewUsecase(mem, rec, WithClock(func() time.Time { return fixedNow })), mem, rec
}

func TestCreate_WithInitialInvestments(t *testing.T) {
	uc, mem, rec := newUC(t)
	ctx := context.Background()

	d, err := uc.Create(ctx, admin, CreateInput{
		InvestorID: "INV-001", Name: "Meera", PAN: "abcde1234f",
		Investments: []InvestmentInput{
			{SeriesID: 1, Amount: 10000},
			{SeriesID: 2, Amount: 5000, Date: "2024-12-01"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, "ABCDE1234F", d.PAN)
	assert.Equal(t, domain.KYCPending, d.KYCStatus)
	assert.Equal(t, []int64{1, 2}, d.Series)
	assert.Equal(t, 15000.0, d.Investment)
	assert.Equal(t, "15/01/2025", d.Investments[0].Date)
	require.Len(t, d.Holdings, 2)
	assert.Equal(t, "A", d.Holdings[0].SeriesName)

	snap := mem.Snapshot()
	assert.Equal(t, 1, snap.Series[0].Investors)
	assert.Equal(t, 10000.0, snap.Series[0].FundsRaised)
	assert.Equal(t, 6000.0, snap.Series[1].FundsRaised)
	assert.Equal(t, []string{audit.ActionInvestorCreated}, rec.Actions())
}

func TestCreate_ReappliedCommitBooksOnce(t *testing.T) {
	uc, mem, _ := newUC(t)
	mem.Rerun = true

	d, err := uc.Create(context.Background(), admin, CreateInput{
		InvestorID: "INV-001", Name: "Meera",
		Investments: []InvestmentInput{
			{SeriesID: 1, Amount: 10000},
			{SeriesID: 2, Amount: 5000},
		},
	})
	require.NoError(t, err)
	assert.Len(t, d.Investments, 2)
	assert.Equal(t, []int64{1, 2}, d.Series)
	assert.Equal(t, 15000.0, d.Investment)

	snap := mem.Snapshot()
	require.Len(t, snap.Investors, 1)
	assert.Equal(t, 10000.0, snap.Series[0].FundsRaised)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"missing id", CreateInput{Name: "x"}, ErrInvestorIDRequired},
		{"missing name", CreateInput{InvestorID: "I"}, ErrNameRequired},
		{"bad kyc", CreateInput{InvestorID: "I", Name: "x", KYCStatus: "Maybe"}, ErrInvalidKYC},
		{"unknown series", CreateInput{InvestorID: "I", Name: "x", Investments: []InvestmentInput{{SeriesID: 9, Amount: 1}}}, series.ErrNotFound},
		{"series not open", CreateInput{InvestorID: "I", Name: "x", Investments: []InvestmentInput{{SeriesID: 3, Amount: 50000}}}, domain.ErrSeriesClosed},
		{"below minimum", CreateInput{InvestorID: "I", Name: "x", Investments: []InvestmentInput{{SeriesID: 1, Amount: 999}}}, domain.ErrBelowMinimum},
		{"zero amount", CreateInput{InvestorID: "I", Name: "x", Investments: []InvestmentInput{{SeriesID: 1}}}, ErrInvalidAmount},
		{"bad date", CreateInput{InvestorID: "I", Name: "x", Investments: []InvestmentInput{{SeriesID: 1, Amount: 10000, Date: "32/01/2025"}}}, ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, mem, rec := newUC(t)
			_, err := uc.Create(ctx, admin, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, mem.Commits)
			assert.Empty(t, rec.Actions())
		})
	}
}

func TestCreate_DuplicateInvestorIDIgnoresCase(t *testing.T) {
	uc, _, _ := newUC(t)
	ctx := context.Background()
	_, err := uc.Create(ctx, admin, CreateInput{InvestorID: "inv-7", Name: "a"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, admin, CreateInput{InvestorID: " INV-7 ", Name: "b"})
	assert.ErrorIs(t, err, domain.ErrDuplicateInvestorID)
}

func TestInvest(t *testing.T) {
	uc, mem, rec := newUC(t)
	ctx := context.Background()
	_, err := uc.Create(ctx, admin, CreateInput{InvestorID: "INV-1", Name: "Meera"})
	require.NoError(t, err)

	d, err := uc.Invest(ctx, admin, 1, InvestmentInput{SeriesID: 1, Amount: 25000})
	require.NoError(t, err)
	assert.Equal(t, 25000.0, d.Investment)

	d, err = uc.Invest(ctx, admin, 1, InvestmentInput{SeriesID: 1, Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, d.Series, "series listed once")
	assert.Equal(t, 35000.0, d.Holdings[0].Amount)
	assert.Equal(t, 35000.0, mem.Snapshot().Series[0].FundsRaised)

	_, err = uc.Invest(ctx, admin, 1, InvestmentInput{SeriesID: 3, Amount: 10000})
	assert.ErrorIs(t, err, domain.ErrSeriesClosed)
	_, err = uc.Invest(ctx, admin, 99, InvestmentInput{SeriesID: 1, Amount: 10000})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{audit.ActionInvestorCreated, audit.ActionInvestmentAdded, audit.ActionInvestmentAdded}, rec.Actions())
}

func TestDelete_SoftAndExcludedFromMetrics(t *testing.T) {
	uc, mem, rec := newUC(t)
	ctx := context.Background()
	_, err := uc.Create(ctx, admin, CreateInput{InvestorID: "INV-1", Name: "Meera",
		Investments: []InvestmentInput{{SeriesID: 1, Amount: 10000}}})
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, admin, 1))
	assert.ErrorIs(t, uc.Delete(ctx, admin, 1), domain.ErrNotFound)

	snap := mem.Snapshot()
	assert.Equal(t, domain.StatusDeleted, snap.Investors[0].Status)
	assert.Len(t, snap.Investors[0].Investments, 1, "history kept")
	assert.Equal(t, 0, snap.Series[0].Investors)
	assert.Equal(t, 0.0, snap.Series[0].FundsRaised)

	assert.Empty(t, uc.List(ctx, false))
	assert.Len(t, uc.List(ctx, true), 1)
	assert.Equal(t, audit.ActionInvestorDeleted, rec.Actions()[1])

	_, err = uc.Invest(ctx, admin, 1, InvestmentInput{SeriesID: 1, Amount: 10000})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	uc, mem, rec := newUC(t)
	ctx := context.Background()
	_, err := uc.Create(ctx, admin, CreateInput{InvestorID: "INV-1", Name: "Meera"})
	require.NoError(t, err)

	d, err := uc.Update(ctx, admin, 1, UpdateInput{Email: ptr("m@example.com"), KYCStatus: ptr(domain.KYCCompleted)})
	require.NoError(t, err)
	assert.Equal(t, "m@example.com", d.Email)
	assert.Equal(t, domain.KYCCompleted, d.KYCStatus)
	require.Len(t, rec.Entries, 2)
	assert.Contains(t, rec.Entries[1].Changes, "kycStatus")

	_, err = uc.Update(ctx, admin, 1, UpdateInput{Email: ptr("m@example.com")})
	require.NoError(t, err)
	assert.Len(t, mem.Commits, 2, "no-op update does not commit")

	_, err = uc.Update(ctx, admin, 1, UpdateInput{KYCStatus: ptr(domain.KYCStatus("nope"))})
	assert.ErrorIs(t, err, ErrInvalidKYC)
	_, err = uc.Update(ctx, admin, 1, UpdateInput{Name: ptr(" ")})
	assert.ErrorIs(t, err, ErrNameRequired)
}
