package http

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ncd-admin-backend/internal/adapter/middleware"
	"ncd-admin-backend/internal/domain/investor"
	permDomain "ncd-admin-backend/internal/domain/permission"
	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/internal/state"
	"ncd-admin-backend/internal/testutil/auditmock"
	"ncd-admin-backend/internal/testutil/permissionmock"
	"ncd-admin-backend/internal/testutil/uowmock"
	auditUC "ncd-admin-backend/internal/usecase/audit"
	investorUC "ncd-admin-backend/internal/usecase/investor"
	"ncd-admin-backend/internal/usecase/payout"
	permUC "ncd-admin-backend/internal/usecase/permission"
	seriesUC "ncd-admin-backend/internal/usecase/series"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testSecret = []byte("test-secret")

// 15/01/2025 local noon
var apiNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.Local)

type fakeState struct {
	version uint64
	events  chan state.RefreshEvent
}

func (f *fakeState) Version() uint64 { return f.version }
func (f *fakeState) Subscribe(int) (<-chan state.RefreshEvent, func()) {
	return f.events, func() {}
}

type api struct {
	e         *echo.Echo
	mem       *uowmock.Memory
	auditRepo *auditmock.Repo
	audit     *auditUC.Usecase
	perms     map[string]*permDomain.Permission
}

// fixture: series 1 is accepting, 2 is a draft, 3 is active with one holder.
func fixtureData() uow.Dataset {
	return uow.Dataset{
		Series: []series.Series{
			{
				ID: 1, Name: "Series A", Status: series.StatusAccepting,
				SubscriptionStartDate: "01/01/2025", SubscriptionEndDate: "31/01/2025",
				IssueDate: "01/02/2025", MaturityDate: "01/02/2030",
				MinInvestment: 10000, TargetAmount: 1000000, InterestRate: 12,
			},
			{
				ID: 2, Name: "Series B", Status: series.StatusDraft,
				IssueDate: "01/03/2025", MaturityDate: "01/03/2030",
				MinInvestment: 10000, TargetAmount: 500000, InterestRate: 10,
			},
			{
				ID: 3, Name: "Series C", Status: series.StatusActive,
				SubscriptionStartDate: "01/11/2024", SubscriptionEndDate: "30/11/2024",
				IssueDate: "01/12/2024", MaturityDate: "01/12/2029",
				MinInvestment: 5000, InterestRate: 12, InterestPaymentDay: 20,
			},
		},
		Investors: []investor.Investor{
			{
				ID: 1, InvestorID: "INV001", Name: "Ravi", Status: investor.StatusActive,
				KYCStatus: investor.KYCCompleted, Series: []int64{3},
				Investments: []investor.Investment{{SeriesID: 3, Amount: 100000, Date: "05/11/2024"}},
				Investment:  100000,
			},
		},
	}
}

func newAPI(t *testing.T) *api {
	t.Helper()
	clock := func() time.Time { return apiNow }

	mem := uowmock.NewMemory(fixtureData())
	mem.Now = clock

	a := &api{
		mem:       mem,
		auditRepo: &auditmock.Repo{},
		perms:     map[string]*permDomain.Permission{},
	}
	a.audit = auditUC.NewUsecase(a.auditRepo, zap.NewNop(), nil, time.Second)

	permRepo := &permissionmock.Repo{
		GetFn: func(_ context.Context, role, module string) (*permDomain.Permission, error) {
			p, ok := a.perms[role+"/"+module]
			if !ok {
				return nil, gorm.ErrRecordNotFound
			}
			cp := *p
			return &cp, nil
		},
		UpsertFn: func(_ context.Context, p *permDomain.Permission) error {
			cp := *p
			a.perms[p.Role+"/"+p.Module] = &cp
			return nil
		},
		ListFn: func(context.Context) ([]permDomain.Permission, error) {
			var out []permDomain.Permission
			for _, p := range a.perms {
				out = append(out, *p)
			}
			return out, nil
		},
	}
	perms := permUC.NewUsecase(permRepo, a.audit)
	log := zap.NewNop()

	a.e = echo.New()
	a.e.Validator = NewValidator()
	Register(a.e, Deps{
		Base:        NewHandler(&fakeState{version: 7}),
		Series:      NewSeriesHandler(seriesUC.NewUsecase(mem, a.audit, seriesUC.WithClock(clock)), payout.NewUsecase(mem, clock), log),
		Investors:   NewInvestorHandler(investorUC.NewUsecase(mem, a.audit, investorUC.WithClock(clock)), log),
		Audit:       NewAuditHandler(a.audit, log),
		Permissions: NewPermissionHandler(perms, log),
		Checker:     perms,
		JWTSecret:   testSecret,
		Log:         log,
	})
	return a
}

func (a *api) callAs(t *testing.T, role, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, "u-1", "Asha", role, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) call(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return a.callAs(t, permDomain.SuperAdmin, method, path, body)
}

// auditActions waits for background audit writes and returns their actions.
func (a *api) auditActions() []string {
	a.audit.Wait()
	return a.auditRepo.Actions()
}

func (a *api) series(t *testing.T, id int64) series.Series {
	t.Helper()
	d := a.mem.Snapshot()
	i := d.SeriesIndex(id)
	if i < 0 {
		t.Fatalf("series %d not found", id)
	}
	return d.Series[i]
}
