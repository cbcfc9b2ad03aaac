package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	domain "ncd-admin-backend/internal/domain/audit"
	"ncd-admin-backend/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrActionRequired = errors.New("audit action is required")

// Observer counts writes that were dropped.
type Observer interface {
	ObserveAuditFailure()
}

// Guard runs repository writes; a *gobreaker.CircuitBreaker satisfies it.
type Guard interface {
	Execute(req func() (any, error)) (any, error)
}

type Option func(*Usecase)

// WithGuard routes background writes through g so a failing database is
// skipped quickly instead of holding a goroutine for the full timeout.
func WithGuard(g Guard) Option { return func(u *Usecase) { u.guard = g } }

var _ domain.Recorder = (*Usecase)(nil)

type Usecase struct {
	repo    domain.Repository
	log     *zap.Logger
	obs     Observer
	timeout time.Duration
	now     func() time.Time
	guard   Guard

	wg sync.WaitGroup
}

func NewUsecase(repo domain.Repository, log *zap.Logger, obs Observer, timeout time.Duration, opts ...Option) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	u := &Usecase{repo: repo, log: log, obs: obs, timeout: timeout, now: time.Now}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Record writes e in the background. A failed write is logged and counted;
// the action that produced it is never rolled back.
func (u *Usecase) Record(ctx context.Context, actor domain.Actor, e domain.Entry) {
	l, err := u.build(actor, e)
	if err != nil {
		u.fail(e.Action, err)
		return
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
		defer cancel()
		if err := u.write(wctx, l); err != nil {
			u.fail(e.Action, err)
		}
	}()
}

// Create writes e synchronously and returns the stored row.
func (u *Usecase) Create(ctx context.Context, actor domain.Actor, e domain.Entry) (*domain.Log, error) {
	if strings.TrimSpace(e.Action) == "" {
		return nil, ErrActionRequired
	}
	l, err := u.build(actor, e)
	if err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Wait blocks until every pending Record has finished.
func (u *Usecase) Wait() { u.wg.Wait() }

func (u *Usecase) List(ctx context.Context, f domain.Filter) ([]domain.Log, error) {
	return u.repo.List(ctx, f)
}

func (u *Usecase) Get(ctx context.Context, logID string) (*domain.Log, error) {
	l, err := u.repo.GetByLogID(ctx, logID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return l, err
}

func (u *Usecase) build(actor domain.Actor, e domain.Entry) (*domain.Log, error) {
	l := &domain.Log{
		LogID:      id.NewID32(),
		Timestamp:  u.now().UTC(),
		Action:     strings.TrimSpace(e.Action),
		AdminName:  actor.Name,
		AdminRole:  actor.Role,
		Details:    e.Details,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
	}
	if len(e.Changes) > 0 {
		raw, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, err
		}
		l.Changes = string(raw)
	}
	return l, nil
}

func (u *Usecase) fail(action string, err error) {
	if u.obs != nil {
		u.obs.ObserveAuditFailure()
	}
	u.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
}

func (u *Usecase) write(ctx context.Context, l *domain.Log) error {
	if u.guard == nil {
		return u.repo.Create(ctx, l)
	}
	_, err := u.guard.Execute(func() (any, error) {
		return nil, u.repo.Create(ctx, l)
	})
	return err
}
