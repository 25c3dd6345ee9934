package models

import (
	"time"
)

// FileRecord is the authoritative metadata row for a stored file.
// SizeBytes always equals the byte count persisted at StorageKey when the
// row was created. IsDeleted=true implies DeletedAt is set.
type FileRecord struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	FileName    string     `gorm:"size:255;not null" json:"file_name"`
	ContentType string     `gorm:"size:100" json:"content_type"`
	SizeBytes   int64      `gorm:"not null" json:"size_bytes"`
	StorageKey  string     `gorm:"size:512;uniqueIndex;not null" json:"storage_key"`
	OwnerID     string     `gorm:"size:36;not null;index" json:"owner_id"`
	FolderID    *string    `gorm:"size:36;index" json:"folder_id"`
	Extension   string     `gorm:"size:20" json:"extension"`
	Description string     `gorm:"size:5000" json:"description"`
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (FileRecord) TableName() string {
	return "files"
}
