package auditmock

import (
	"context"
	"sync"

	domain "ncd-admin-backend/internal/domain/audit"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Create also keeps what it was given so async writers can be inspected.
type Repo struct {
	CreateFn     func(ctx context.Context, l *domain.Log) error
	ListFn       func(ctx context.Context, f domain.Filter) ([]domain.Log, error)
	GetByLogIDFn func(ctx context.Context, logID string) (*domain.Log, error)

	mu      sync.Mutex
	created []domain.Log
}

func (m *Repo) Create(ctx context.Context, l *domain.Log) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, l); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.created = append(m.created, *l)
	m.mu.Unlock()
	return nil
}

func (m *Repo) List(ctx context.Context, f domain.Filter) ([]domain.Log, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, nil
}

func (m *Repo) GetByLogID(ctx context.Context, logID string) (*domain.Log, error) {
	if m.GetByLogIDFn != nil {
		return m.GetByLogIDFn(ctx, logID)
	}
	return nil, domain.ErrNotFound
}

// Created returns a copy of every successfully created row.
func (m *Repo) Created() []domain.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Log(nil), m.created...)
}

// Actions lists the Action of every created row, in order.
func (m *Repo) Actions() []string {
	var out []string
	for _, l := range m.Created() {
		out = append(out, l.Action)
	}
	return out
}
