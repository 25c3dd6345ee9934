package models

import (
	"time"
)

// AuditAction represents the type of audit action
type AuditAction string

// Only mutating actions are audited; downloads leave no entry.
const (
	AuditActionUpload           AuditAction = "upload"
	AuditActionUpdate           AuditAction = "update"
	AuditActionSoftDelete       AuditAction = "soft_delete"
	AuditActionPermanentDelete  AuditAction = "permanent_delete"
	AuditActionQuotaResync      AuditAction = "quota_resync"
	AuditActionQuotaLimitUpdate AuditAction = "quota_limit_update"
)

// AuditLog is an append-only record of a mutating action's outcome.
// Rows are only ever inserted, never updated or deleted.
type AuditLog struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       string      `gorm:"size:36;index" json:"user_id"`
	Action       AuditAction `gorm:"size:50;not null;index" json:"action"`
	EntityType   string      `gorm:"size:50;index" json:"entity_type"`
	EntityID     string      `gorm:"size:36;index" json:"entity_id"`
	IsSuccess    bool        `gorm:"not null" json:"is_success"`
	Details      string      `gorm:"size:500" json:"details"`
	ErrorMessage string      `gorm:"size:500" json:"error_message"`
	IPAddress    string      `gorm:"size:50" json:"ip_address"`
	UserAgent    string      `gorm:"size:255" json:"user_agent"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
