package audit

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("audit log not found")

// Table: audit_logs. Rows are append-only; the repository exposes no update
// or delete.
type Log struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	LogID      string    `gorm:"column:log_id;type:char(32);not null;uniqueIndex" json:"id"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Action     string    `gorm:"column:action;size:64;not null;index" json:"action"`
	AdminName  string    `gorm:"column:admin_name;size:128" json:"adminName"`
	AdminRole  string    `gorm:"column:admin_role;size:64" json:"adminRole"`
	Details    string    `gorm:"column:details;type:text" json:"details"`
	EntityType string    `gorm:"column:entity_type;size:32;index:idx_audit_entity" json:"entityType"`
	EntityID   string    `gorm:"column:entity_id;size:64;index:idx_audit_entity" json:"entityId"`
	// Changes is a JSON object of before/after values, stored as text.
	Changes string `gorm:"column:changes;type:text" json:"changes,omitempty"`
}

func (Log) TableName() string { return "audit_logs" }

// Entity types recorded by the service.
const (
	EntitySeries     = "series"
	EntityInvestor   = "investor"
	EntityPermission = "permission"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	Since      time.Time
	Limit      int
}

// Actor is the admin a change is attributed to.
type Actor struct {
	Name string
	Role string
}

// Entry is what a use case asks to have recorded. Changes, when set, is
// stored as a JSON object.
type Entry struct {
	Action     string
	Details    string
	EntityType string
	EntityID   string
	Changes    map[string]any
}

// Recorder persists entries without making the caller wait on the write.
type Recorder interface {
	Record(ctx context.Context, actor Actor, e Entry)
}

// Actions recorded by the service.
const (
	ActionSeriesCreated      = "SERIES_CREATED"
	ActionSeriesUpdated      = "SERIES_UPDATED"
	ActionSeriesApproved     = "SERIES_APPROVED"
	ActionSeriesRejected     = "SERIES_REJECTED"
	ActionSeriesDeleted      = "SERIES_DELETED"
	ActionSeriesRecalculated = "SERIES_RECALCULATED"
	ActionInvestorCreated    = "INVESTOR_CREATED"
	ActionInvestorUpdated    = "INVESTOR_UPDATED"
	ActionInvestorDeleted    = "INVESTOR_DELETED"
	ActionInvestmentAdded    = "INVESTMENT_ADDED"
	ActionPermissionUpdated  = "PERMISSION_UPDATED"
)
