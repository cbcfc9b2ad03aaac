package mysql

import (
	"context"

	permDomain "ncd-admin-backend/internal/domain/permission"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository struct{ db *gorm.DB }

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *PermissionRepository) Tx(ctx context.Context, fn func(repo permDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PermissionRepository{db: tx})
	})
}

func (r *PermissionRepository) List(ctx context.Context) ([]permDomain.Permission, error) {
	out := []permDomain.Permission{}
	res := r.db.WithContext(ctx).Order("role, module").Find(&out)
	return out, res.Error
}

func (r *PermissionRepository) Get(ctx context.Context, role, module string) (*permDomain.Permission, error) {
	var out permDomain.Permission
	res := r.db.WithContext(ctx).
		Where("role = ? AND module = ?", role, module).
		First(&out)
	return &out, res.Error
}

func (r *PermissionRepository) Upsert(ctx context.Context, p *permDomain.Permission) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role"}, {Name: "module"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_view", "can_create", "can_edit", "can_delete", "updated_at"}),
		}).
		Create(p).Error
}
