package uowmock

import (
	"context"
	"errors"
	"sync"
	"time"

	"ncd-admin-backend/internal/domain/aggregate"
	"ncd-admin-backend/internal/domain/uow"
)

var (
	_ uow.UnitOfWork = (*UoW)(nil)
	_ uow.UnitOfWork = (*Memory)(nil)
)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW stubs uow.UnitOfWork with plain funcs. A nil WithinTxFn fails with
// errUnimplemented; a nil ReadFn yields an empty dataset.
type UoW struct {
	WithinTxFn func(ctx context.Context, reason string, fn func(d *uow.Dataset) error) error
	ReadFn     func(ctx context.Context) uow.Dataset
}

func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, string, func(*uow.Dataset) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithRead(fn func(context.Context) uow.Dataset) *UoW {
	m.ReadFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, reason string, fn func(d *uow.Dataset) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, reason, fn)
	}
	return errUnimplemented
}
func (m *UoW) Read(ctx context.Context) uow.Dataset {
	if m.ReadFn != nil {
		return m.ReadFn(ctx)
	}
	return uow.Dataset{}
}

// Memory is an in-memory dataset behind a UoW. It applies the same
// copy / recalculate / swap steps as the real store, without persistence.
type Memory struct {
	*UoW

	mu      sync.Mutex
	data    uow.Dataset
	Commits []string
	Now     func() time.Time
	// Rerun makes every commit run fn twice, discarding the first result,
	// the way state.Store does after losing a race to another process.
	Rerun bool
}

func NewMemory(d uow.Dataset) *Memory {
	m := &Memory{data: d.Clone(), Now: time.Now}
	m.UoW = &UoW{
		WithinTxFn: m.apply,
		ReadFn: func(context.Context) uow.Dataset {
			m.mu.Lock()
			defer m.mu.Unlock()
			return m.data.Clone()
		},
	}
	return m
}

func (m *Memory) apply(_ context.Context, reason string, fn func(d *uow.Dataset) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.Clone()
	if m.Rerun {
		if err := fn(&work); err != nil {
			if errors.Is(err, uow.ErrNoChange) {
				return nil
			}
			return err
		}
		work = m.data.Clone()
	}
	if err := fn(&work); err != nil {
		if errors.Is(err, uow.ErrNoChange) {
			return nil
		}
		return err
	}
	work.Series = aggregate.Recalculate(work.Series, work.Investors, nil, m.Now())
	m.data = work
	m.Commits = append(m.Commits, reason)
	return nil
}

// Snapshot returns the committed dataset without going through ReadFn.
func (m *Memory) Snapshot() uow.Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}
