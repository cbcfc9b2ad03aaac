package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ncd-admin-backend/internal/domain/audit"
	domain "ncd-admin-backend/internal/domain/permission"

	"gorm.io/gorm"
)

var ErrRoleRequired = errors.New("role is required")

type Usecase struct {
	repo  domain.Repository
	audit audit.Recorder
}

func NewUsecase(repo domain.Repository, rec audit.Recorder) *Usecase {
	return &Usecase{repo: repo, audit: rec}
}

func (u *Usecase) Matrix(ctx context.Context) (domain.Matrix, error) {
	rows, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewMatrix(rows), nil
}

// Toggle flips one flag and returns the row as stored after the write.
func (u *Usecase) Toggle(ctx context.Context, actor audit.Actor, role, module, action string) (*domain.Permission, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, ErrRoleRequired
	}
	if role == domain.SuperAdmin {
		return nil, domain.ErrForbidden
	}
	if !domain.KnownModule(module) {
		return nil, domain.ErrUnknownModule
	}
	a, err := domain.ParseAction(action)
	if err != nil {
		return nil, err
	}

	var stored *domain.Permission
	var before bool
	err = u.repo.Tx(ctx, func(r domain.Repository) error {
		p, err := r.Get(ctx, role, module)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p = &domain.Permission{Role: role, Module: module}
		case err != nil:
			return err
		}
		before = p.Allows(a)
		p.Set(a, !before)
		if err := r.Upsert(ctx, p); err != nil {
			return err
		}
		stored, err = r.Get(ctx, role, module)
		return err
	})
	if err != nil {
		return nil, err
	}

	if u.audit != nil {
		u.audit.Record(ctx, actor, audit.Entry{
			Action:     audit.ActionPermissionUpdated,
			EntityType: audit.EntityPermission,
			EntityID:   role + "/" + module,
			Details:    fmt.Sprintf("Set %s %s on %s to %t", role, a, module, stored.Allows(a)),
			Changes:    map[string]any{string(a): map[string]any{"from": before, "to": stored.Allows(a)}},
		})
	}
	return stored, nil
}

// Allowed reports whether role may perform action on module. A missing
// row denies.
func (u *Usecase) Allowed(ctx context.Context, role, module string, action domain.Action) (bool, error) {
	if role == domain.SuperAdmin {
		return true, nil
	}
	p, err := u.repo.Get(ctx, role, module)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Allows(action), nil
}
