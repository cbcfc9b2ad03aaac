package mysql

import (
	"context"

	auditDomain "ncd-admin-backend/internal/domain/audit"
	permDomain "ncd-admin-backend/internal/domain/permission"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates the tables this service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&auditDomain.Log{}, &permDomain.Permission{})
}

// default role grants; Super Admin is implicit and never stored
var defaultGrants = map[string]map[string][4]bool{
	"Manager": {
		permDomain.ModuleSeries:        {true, true, true, false},
		permDomain.ModuleInvestors:     {true, true, true, false},
		permDomain.ModuleAudit:         {true, false, false, false},
		permDomain.ModuleInterest:      {true, true, true, false},
		permDomain.ModuleCommunication: {true, true, false, false},
		permDomain.ModulePermissions:   {false, false, false, false},
	},
	"Viewer": {
		permDomain.ModuleSeries:        {true, false, false, false},
		permDomain.ModuleInvestors:     {true, false, false, false},
		permDomain.ModuleAudit:         {true, false, false, false},
		permDomain.ModuleInterest:      {true, false, false, false},
		permDomain.ModuleCommunication: {false, false, false, false},
		permDomain.ModulePermissions:   {false, false, false, false},
	},
}

// SeedPermissions inserts default rows that do not exist yet. Existing rows
// are left alone so operator edits survive restarts.
func SeedPermissions(ctx context.Context, db *gorm.DB) error {
	rows := make([]permDomain.Permission, 0, 12)
	for role, modules := range defaultGrants {
		for module, g := range modules {
			rows = append(rows, permDomain.Permission{
				Role: role, Module: module,
				View: g[0], Create: g[1], Edit: g[2], Delete: g[3],
			})
		}
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
