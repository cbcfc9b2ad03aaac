package audit

import "context"

type Repository interface {
	// Create appends a log row
	Create(ctx context.Context, l *Log) error

	// List returns rows newest first
	List(ctx context.Context, f Filter) ([]Log, error)

	GetByLogID(ctx context.Context, logID string) (*Log, error)
}
