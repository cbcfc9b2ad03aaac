package permission

import (
	"errors"
	"time"
)

var (
	ErrUnknownAction = errors.New("unknown permission action")
	ErrUnknownModule = errors.New("unknown permission module")
	ErrForbidden     = errors.New("permission denied")
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Modules guarded by the matrix.
const (
	ModuleSeries        = "ncdSeries"
	ModuleInvestors     = "investors"
	ModuleAudit         = "auditLogs"
	ModulePermissions   = "administrator"
	ModuleInterest      = "interestPayout"
	ModuleCommunication = "communication"
)

var Modules = []string{
	ModuleSeries, ModuleInvestors, ModuleAudit, ModulePermissions, ModuleInterest, ModuleCommunication,
}

// SuperAdmin always passes permission checks.
const SuperAdmin = "Super Admin"

// Table: role_permissions, one row per (role, module).
type Permission struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Role      string    `gorm:"column:role;size:64;not null;uniqueIndex:ux_role_module" json:"role"`
	Module    string    `gorm:"column:module;size:64;not null;uniqueIndex:ux_role_module" json:"module"`
	View      bool      `gorm:"column:can_view;not null;default:false" json:"view"`
	Create    bool      `gorm:"column:can_create;not null;default:false" json:"create"`
	Edit      bool      `gorm:"column:can_edit;not null;default:false" json:"edit"`
	Delete    bool      `gorm:"column:can_delete;not null;default:false" json:"delete"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Permission) TableName() string { return "role_permissions" }

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return a, nil
	}
	return "", ErrUnknownAction
}

func KnownModule(m string) bool {
	for _, k := range Modules {
		if k == m {
			return true
		}
	}
	return false
}

func (p Permission) Allows(a Action) bool {
	switch a {
	case ActionView:
		return p.View
	case ActionCreate:
		return p.Create
	case ActionEdit:
		return p.Edit
	case ActionDelete:
		return p.Delete
	}
	return false
}

// Set flips a single flag.
func (p *Permission) Set(a Action, v bool) {
	switch a {
	case ActionView:
		p.View = v
	case ActionCreate:
		p.Create = v
	case ActionEdit:
		p.Edit = v
	case ActionDelete:
		p.Delete = v
	}
}

// Matrix is role → module → permission row.
type Matrix map[string]map[string]Permission

func NewMatrix(rows []Permission) Matrix {
	m := Matrix{}
	for _, r := range rows {
		if m[r.Role] == nil {
			m[r.Role] = map[string]Permission{}
		}
		m[r.Role][r.Module] = r
	}
	return m
}
