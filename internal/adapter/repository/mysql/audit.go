package mysql

import (
	"context"

	auditDomain "ncd-admin-backend/internal/domain/audit"

	"gorm.io/gorm"
)

type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Create(ctx context.Context, l *auditDomain.Log) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *AuditRepository) List(ctx context.Context, f auditDomain.Filter) ([]auditDomain.Log, error) {
	q := r.db.WithContext(ctx).Model(&auditDomain.Log{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	out := []auditDomain.Log{}
	res := q.Order("timestamp DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *AuditRepository) GetByLogID(ctx context.Context, logID string) (*auditDomain.Log, error) {
	var out auditDomain.Log
	res := r.db.WithContext(ctx).Where("log_id = ?", logID).First(&out)
	return &out, res.Error
}
