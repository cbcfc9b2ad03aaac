package permission

import "context"

type Repository interface {
	List(ctx context.Context) ([]Permission, error)
	Get(ctx context.Context, role, module string) (*Permission, error)
	// Upsert writes the row keyed by (role, module)
	Upsert(ctx context.Context, p *Permission) error
	// Tx binds a repository to one transaction
	Tx(ctx context.Context, fn func(r Repository) error) error
}
