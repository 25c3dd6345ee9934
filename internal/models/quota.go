package models

import (
	"time"
)

// StorageQuota tracks per-owner byte usage against a limit.
// UsedBytes never goes below zero but may transiently diverge from the
// true sum of active file sizes until a resync repairs the drift.
type StorageQuota struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    string    `gorm:"size:36;uniqueIndex;not null" json:"owner_id"`
	UsedBytes  int64     `gorm:"not null;default:0" json:"used_bytes"`
	LimitBytes int64     `gorm:"not null" json:"limit_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (StorageQuota) TableName() string {
	return "storage_quotas"
}

// AvailableBytes returns the remaining headroom, floored at zero.
func (q *StorageQuota) AvailableBytes() int64 {
	if q.UsedBytes >= q.LimitBytes {
		return 0
	}
	return q.LimitBytes - q.UsedBytes
}
