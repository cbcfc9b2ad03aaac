package permissionmock

import (
	"context"

	domain "ncd-admin-backend/internal/domain/permission"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Tx defaults to running fn against the mock itself.
type Repo struct {
	ListFn   func(ctx context.Context) ([]domain.Permission, error)
	GetFn    func(ctx context.Context, role, module string) (*domain.Permission, error)
	UpsertFn func(ctx context.Context, p *domain.Permission) error
	TxFn     func(ctx context.Context, fn func(r domain.Repository) error) error
}

func (m *Repo) List(ctx context.Context) ([]domain.Permission, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *Repo) Get(ctx context.Context, role, module string) (*domain.Permission, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, role, module)
	}
	return nil, context.Canceled
}

func (m *Repo) Upsert(ctx context.Context, p *domain.Permission) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, p)
	}
	return nil
}

func (m *Repo) Tx(ctx context.Context, fn func(r domain.Repository) error) error {
	if m.TxFn != nil {
		return m.TxFn(ctx, fn)
	}
	return fn(m)
}
