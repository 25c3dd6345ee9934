// Package catalog is the authoritative metadata store for files.
// Every owner-scoped read except the internal/hard-delete paths filters
// out soft-deleted rows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/filedock/backend/internal/models"
	"gorm.io/gorm"
)

type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Create(ctx context.Context, rec *models.FileRecord) error {
	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create file record %s: %w", rec.ID, err)
	}
	return nil
}

// GetByOwner fetches a file by id and owner regardless of its delete
// state. Used by the permanent-delete path, which may target rows that
// are already in the trash.
func (c *Catalog) GetByOwner(ctx context.Context, id, ownerID string) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := c.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "file %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &rec, nil
}

// GetActiveByOwner fetches a non-deleted file by id and owner.
func (c *Catalog) GetActiveByOwner(ctx context.Context, id, ownerID string) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := c.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND is_deleted = false", id, ownerID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "file %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &rec, nil
}

// ListByOwner returns the owner's active files, newest first, folder
// scoped when folderID is set.
func (c *Catalog) ListByOwner(ctx context.Context, ownerID string, folderID *string, limit, offset int) ([]*models.FileRecord, int64, error) {
	query := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("owner_id = ? AND is_deleted = false", ownerID)
	query = scopeFolder(query, folderID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count files for owner %s: %w", ownerID, err)
	}

	var files []*models.FileRecord
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&files).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list files for owner %s: %w", ownerID, err)
	}
	return files, total, nil
}

// Search does a case-insensitive substring match over name and
// description, ANDed with the folder scope. No relevance ranking.
func (c *Catalog) Search(ctx context.Context, ownerID, term string, folderID *string, limit, offset int) ([]*models.FileRecord, int64, error) {
	query := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("owner_id = ? AND is_deleted = false", ownerID)
	query = scopeFolder(query, folderID)

	if term != "" {
		pattern := "%" + term + "%"
		query = query.Where("file_name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count search results for owner %s: %w", ownerID, err)
	}

	var files []*models.FileRecord
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&files).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search files for owner %s: %w", ownerID, err)
	}
	return files, total, nil
}

// UpdateMeta applies the given column updates to an active file.
func (c *Catalog) UpdateMeta(ctx context.Context, id, ownerID string, updates map[string]interface{}) error {
	result := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("id = ? AND owner_id = ? AND is_deleted = false", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update file %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "file %s not found", id)
	}
	return nil
}

// SoftDelete flags the row as deleted. The bytes stay in place and the
// row remains fetchable by id, but it drops out of listings and search.
// Flagging an already-deleted row is harmless.
func (c *Catalog) SoftDelete(ctx context.Context, id, ownerID string) error {
	now := time.Now().UTC()
	result := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("soft delete file %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "file %s not found", id)
	}
	return nil
}

// HardDelete removes the row entirely.
func (c *Catalog) HardDelete(ctx context.Context, id string) error {
	if err := c.db.WithContext(ctx).Delete(&models.FileRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("hard delete file %s: %w", id, err)
	}
	return nil
}

// TotalSizeByOwner sums the sizes of the owner's active files, the
// trash excluded like every other owner-facing read.
func (c *Catalog) TotalSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("owner_id = ? AND is_deleted = false", ownerID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("aggregate active size for owner %s: %w", ownerID, err)
	}
	return total, nil
}

// TotalChargedByOwner sums the sizes of all the owner's files, trash
// included, since trashed files keep occupying quota until they are
// permanently deleted. This is the ground truth the quota resync
// reconciles against.
func (c *Catalog) TotalChargedByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("aggregate charged size for owner %s: %w", ownerID, err)
	}
	return total, nil
}

func scopeFolder(query *gorm.DB, folderID *string) *gorm.DB {
	if folderID == nil {
		return query
	}
	if *folderID == "" {
		return query.Where("folder_id IS NULL")
	}
	return query.Where("folder_id = ?", *folderID)
}
