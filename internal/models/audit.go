package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded for schedule and lab mutations.
const (
	AuditActionScheduleCreate = "SCHEDULE_CREATE"
	AuditActionScheduleUpdate = "SCHEDULE_UPDATE"
	AuditActionScheduleCancel = "SCHEDULE_CANCEL"
	AuditActionLabCreate      = "LAB_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	Payload    types.JSONText `db:"payload" json:"payload,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ip_address"`
	UserAgent  string         `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
