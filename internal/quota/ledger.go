// Package quota keeps per-owner used/limit byte accounting. The
// admission check and the charge are two separate calls: concurrent
// bursts from one owner can transiently overshoot the limit before the
// charge lands. Quota is advisory; drift is repaired by Resync.
package quota

import (
	"context"
	"fmt"

	"github.com/filedock/backend/internal/models"
	"gorm.io/gorm"
)

type Ledger struct {
	db           *gorm.DB
	defaultLimit int64
}

func NewLedger(db *gorm.DB, defaultLimit int64) *Ledger {
	return &Ledger{db: db, defaultLimit: defaultLimit}
}

// GetOrCreate returns the owner's quota row, creating it lazily with
// the default limit on first contact.
func (l *Ledger) GetOrCreate(ctx context.Context, ownerID string) (*models.StorageQuota, error) {
	var q models.StorageQuota
	err := l.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Attrs(models.StorageQuota{OwnerID: ownerID, LimitBytes: l.defaultLimit}).
		FirstOrCreate(&q).Error
	if err != nil {
		return nil, fmt.Errorf("get or create quota for owner %s: %w", ownerID, err)
	}
	return &q, nil
}

// CanAdmit reports whether the owner has room for size more bytes.
func (l *Ledger) CanAdmit(ctx context.Context, ownerID string, size int64) (bool, error) {
	q, err := l.GetOrCreate(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return q.UsedBytes+size <= q.LimitBytes, nil
}

// Charge adds size bytes to the owner's usage in a single UPDATE so
// concurrent charges serialize on the row, not in process memory.
func (l *Ledger) Charge(ctx context.Context, ownerID string, size int64) error {
	if size <= 0 {
		return nil
	}
	err := l.db.WithContext(ctx).
		Model(&models.StorageQuota{}).
		Where("owner_id = ?", ownerID).
		Update("used_bytes", gorm.Expr("used_bytes + ?", size)).Error
	if err != nil {
		return fmt.Errorf("charge %d bytes to owner %s: %w", size, ownerID, err)
	}
	return nil
}

// Release subtracts size bytes from the owner's usage, flooring at
// zero. A double release therefore leaves drift instead of a negative
// balance; Resync repairs it.
func (l *Ledger) Release(ctx context.Context, ownerID string, size int64) error {
	if size <= 0 {
		return nil
	}
	err := l.db.WithContext(ctx).
		Model(&models.StorageQuota{}).
		Where("owner_id = ?", ownerID).
		Update("used_bytes", gorm.Expr("GREATEST(used_bytes - ?, 0)", size)).Error
	if err != nil {
		return fmt.Errorf("release %d bytes for owner %s: %w", size, ownerID, err)
	}
	return nil
}

// UpdateLimit sets a new limit for the owner, creating the row first if
// it does not exist yet.
func (l *Ledger) UpdateLimit(ctx context.Context, ownerID string, newLimit int64) error {
	if _, err := l.GetOrCreate(ctx, ownerID); err != nil {
		return err
	}
	err := l.db.WithContext(ctx).
		Model(&models.StorageQuota{}).
		Where("owner_id = ?", ownerID).
		Update("limit_bytes", newLimit).Error
	if err != nil {
		return fmt.Errorf("update quota limit for owner %s: %w", ownerID, err)
	}
	return nil
}

// Resync overwrites the owner's usage with the ground-truth byte count.
func (l *Ledger) Resync(ctx context.Context, ownerID string, trueUsed int64) error {
	if trueUsed < 0 {
		trueUsed = 0
	}
	if _, err := l.GetOrCreate(ctx, ownerID); err != nil {
		return err
	}
	err := l.db.WithContext(ctx).
		Model(&models.StorageQuota{}).
		Where("owner_id = ?", ownerID).
		Update("used_bytes", trueUsed).Error
	if err != nil {
		return fmt.Errorf("resync quota for owner %s: %w", ownerID, err)
	}
	return nil
}

// All returns every quota row, used by the periodic resync sweep.
func (l *Ledger) All(ctx context.Context) ([]models.StorageQuota, error) {
	var quotas []models.StorageQuota
	if err := l.db.WithContext(ctx).Find(&quotas).Error; err != nil {
		return nil, fmt.Errorf("list quota rows: %w", err)
	}
	return quotas, nil
}
