// Package services contains the pipelines that coordinate storage,
// catalog, quota and audit for every file operation. This is the only
// layer that reasons about cross-subsystem consistency: at-most-once
// quota charges, crash-consistent storage+metadata, and soft/hard
// delete reconciliation.
package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/filedock/backend/internal/audit"
	"github.com/filedock/backend/internal/models"
	"github.com/filedock/backend/internal/storage"
	"github.com/filedock/backend/internal/validation"
	"github.com/google/uuid"
)

// FileCatalog is the metadata persistence seam.
type FileCatalog interface {
	Create(ctx context.Context, rec *models.FileRecord) error
	GetByOwner(ctx context.Context, id, ownerID string) (*models.FileRecord, error)
	GetActiveByOwner(ctx context.Context, id, ownerID string) (*models.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID string, folderID *string, limit, offset int) ([]*models.FileRecord, int64, error)
	Search(ctx context.Context, ownerID, term string, folderID *string, limit, offset int) ([]*models.FileRecord, int64, error)
	UpdateMeta(ctx context.Context, id, ownerID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id, ownerID string) error
	HardDelete(ctx context.Context, id string) error
	TotalSizeByOwner(ctx context.Context, ownerID string) (int64, error)
	TotalChargedByOwner(ctx context.Context, ownerID string) (int64, error)
}

// QuotaLedger is the admission/accounting seam.
type QuotaLedger interface {
	GetOrCreate(ctx context.Context, ownerID string) (*models.StorageQuota, error)
	CanAdmit(ctx context.Context, ownerID string, size int64) (bool, error)
	Charge(ctx context.Context, ownerID string, size int64) error
	Release(ctx context.Context, ownerID string, size int64) error
	UpdateLimit(ctx context.Context, ownerID string, newLimit int64) error
	Resync(ctx context.Context, ownerID string, trueUsed int64) error
}

// AuditRecorder is the fire-and-forget audit seam.
type AuditRecorder interface {
	Record(e audit.Entry)
}

type FileService struct {
	store   storage.ContentStore
	catalog FileCatalog
	quota   QuotaLedger
	auditor AuditRecorder
}

func NewFileService(store storage.ContentStore, catalog FileCatalog, quota QuotaLedger, auditor AuditRecorder) *FileService {
	return &FileService{
		store:   store,
		catalog: catalog,
		quota:   quota,
		auditor: auditor,
	}
}

// RequestMeta carries the client context that ends up in audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type UploadRequest struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
	OwnerID     string
	FolderID    *string
	Description string
	Meta        RequestMeta
}

// Upload runs the admission pipeline: validate, admit, store, catalog,
// charge, audit. The quota check happens before any storage write, so a
// rejected upload leaves zero bytes behind. If the catalog write fails
// after the bytes landed, the bytes are orphaned and no charge is made;
// that window is accepted and repaired out of band.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	if req.Reader == nil || req.Size <= 0 {
		err := apperrors.New(apperrors.KindValidation, "cannot upload an empty file")
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", err, "", req.Meta)
		return nil, err
	}
	if err := validation.ValidateFileName(req.FileName); err != nil {
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", err, "", req.Meta)
		return nil, err
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", err, "", req.Meta)
		return nil, err
	}

	admitted, err := s.quota.CanAdmit(ctx, req.OwnerID, req.Size)
	if err != nil {
		wrapped := apperrors.Wrap(apperrors.KindStorage, "quota check failed", err)
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", wrapped, "", req.Meta)
		return nil, wrapped
	}
	if !admitted {
		err := apperrors.Newf(apperrors.KindQuotaExceeded, "storage quota exceeded: cannot admit %d more bytes", req.Size)
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", err, "", req.Meta)
		return nil, err
	}

	key, size, err := s.store.Save(ctx, req.Reader, req.FileName, req.Size)
	if err != nil {
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", err, "", req.Meta)
		return nil, err
	}

	rec := &models.FileRecord{
		ID:          uuid.New().String(),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   size,
		StorageKey:  key,
		OwnerID:     req.OwnerID,
		FolderID:    req.FolderID,
		Extension:   strings.ToLower(strings.TrimPrefix(filepath.Ext(req.FileName), ".")),
		Description: req.Description,
	}
	if err := s.catalog.Create(ctx, rec); err != nil {
		// The bytes at key are now orphaned: no catalog row, no charge.
		log.Printf("Upload: catalog write failed, orphaned bytes at %s: %v", key, err)
		wrapped := apperrors.Wrap(apperrors.KindStorage, "failed to save file metadata", err)
		s.recordAudit(req.OwnerID, models.AuditActionUpload, "", wrapped, "", req.Meta)
		return nil, wrapped
	}

	if err := s.quota.Charge(ctx, req.OwnerID, size); err != nil {
		// Usage now undercounts until the next resync.
		log.Printf("Upload: quota charge failed for owner %s: %v", req.OwnerID, err)
	}

	s.recordAudit(req.OwnerID, models.AuditActionUpload, rec.ID, nil,
		fmt.Sprintf("uploaded %s (%d bytes)", rec.FileName, size), req.Meta)
	return rec, nil
}

// Download streams an active file's bytes. Reads have no quota
// interaction and no audit entry.
func (s *FileService) Download(ctx context.Context, fileID, ownerID string) (*models.FileRecord, io.ReadCloser, error) {
	rec, err := s.catalog.GetActiveByOwner(ctx, fileID, ownerID)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.store.Open(ctx, rec.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rec, reader, nil
}

type UpdateRequest struct {
	FileID         string
	OwnerID        string
	NewName        *string
	NewDescription *string
	NewFolderID    *string // nil = unchanged, empty = move to root
	Meta           RequestMeta
}

// Update changes a file's display metadata; the stored bytes and the
// quota are untouched.
func (s *FileService) Update(ctx context.Context, req UpdateRequest) (*models.FileRecord, error) {
	updates := make(map[string]interface{})
	if req.NewName != nil {
		if err := validation.ValidateFileName(*req.NewName); err != nil {
			s.recordAudit(req.OwnerID, models.AuditActionUpdate, req.FileID, err, "", req.Meta)
			return nil, err
		}
		updates["file_name"] = *req.NewName
		updates["extension"] = strings.ToLower(strings.TrimPrefix(filepath.Ext(*req.NewName), "."))
	}
	if req.NewDescription != nil {
		if err := validation.ValidateDescription(*req.NewDescription); err != nil {
			s.recordAudit(req.OwnerID, models.AuditActionUpdate, req.FileID, err, "", req.Meta)
			return nil, err
		}
		updates["description"] = *req.NewDescription
	}
	if req.NewFolderID != nil {
		if *req.NewFolderID == "" {
			updates["folder_id"] = nil
		} else {
			updates["folder_id"] = *req.NewFolderID
		}
	}
	if len(updates) == 0 {
		return s.catalog.GetActiveByOwner(ctx, req.FileID, req.OwnerID)
	}

	if err := s.catalog.UpdateMeta(ctx, req.FileID, req.OwnerID, updates); err != nil {
		s.recordAudit(req.OwnerID, models.AuditActionUpdate, req.FileID, err, "", req.Meta)
		return nil, err
	}

	rec, err := s.catalog.GetActiveByOwner(ctx, req.FileID, req.OwnerID)
	if err != nil {
		s.recordAudit(req.OwnerID, models.AuditActionUpdate, req.FileID, err, "", req.Meta)
		return nil, err
	}
	s.recordAudit(req.OwnerID, models.AuditActionUpdate, req.FileID, nil, "updated file metadata", req.Meta)
	return rec, nil
}

// List returns the owner's active files, optionally folder scoped.
func (s *FileService) List(ctx context.Context, ownerID string, folderID *string, page, limit int) ([]*models.FileRecord, int64, error) {
	limit, offset := normalizePage(page, limit)
	return s.catalog.ListByOwner(ctx, ownerID, folderID, limit, offset)
}

// Search matches the term against names and descriptions of the
// owner's active files.
func (s *FileService) Search(ctx context.Context, ownerID, term string, folderID *string, page, limit int) ([]*models.FileRecord, int64, error) {
	if err := validation.ValidateSearchTerm(term); err != nil {
		return nil, 0, err
	}
	limit, offset := normalizePage(page, limit)
	return s.catalog.Search(ctx, ownerID, term, folderID, limit, offset)
}

// SoftDelete moves a file to the trash: the row is flagged, the bytes
// stay, and the quota keeps counting it. Deleting an already-deleted
// file is a no-op.
func (s *FileService) SoftDelete(ctx context.Context, fileID, ownerID string, meta RequestMeta) error {
	rec, err := s.catalog.GetByOwner(ctx, fileID, ownerID)
	if err != nil {
		s.recordAudit(ownerID, models.AuditActionSoftDelete, fileID, err, "", meta)
		return err
	}
	if rec.IsDeleted {
		s.recordAudit(ownerID, models.AuditActionSoftDelete, fileID, nil, "file already in trash", meta)
		return nil
	}

	if err := s.catalog.SoftDelete(ctx, fileID, ownerID); err != nil {
		s.recordAudit(ownerID, models.AuditActionSoftDelete, fileID, err, "", meta)
		return err
	}
	s.recordAudit(ownerID, models.AuditActionSoftDelete, fileID, nil,
		fmt.Sprintf("moved %s to trash", rec.FileName), meta)
	return nil
}

// PermanentDelete removes a file for good. Bytes go first so a
// mid-sequence crash leaves orphaned bytes (benign) rather than a
// catalog row pointing at nothing (unsafe). Byte removal failures are
// logged and do not block the catalog/quota cleanup.
func (s *FileService) PermanentDelete(ctx context.Context, fileID, ownerID string, meta RequestMeta) error {
	rec, err := s.catalog.GetByOwner(ctx, fileID, ownerID)
	if err != nil {
		s.recordAudit(ownerID, models.AuditActionPermanentDelete, fileID, err, "", meta)
		return err
	}

	if err := s.store.Delete(ctx, rec.StorageKey); err != nil {
		log.Printf("PermanentDelete: failed to remove bytes at %s: %v", rec.StorageKey, err)
	}

	if err := s.catalog.HardDelete(ctx, fileID); err != nil {
		wrapped := apperrors.Wrap(apperrors.KindStorage, "failed to remove file metadata", err)
		s.recordAudit(ownerID, models.AuditActionPermanentDelete, fileID, wrapped, "", meta)
		return wrapped
	}

	if err := s.quota.Release(ctx, ownerID, rec.SizeBytes); err != nil {
		// Usage now overcounts until the next resync.
		log.Printf("PermanentDelete: quota release failed for owner %s: %v", ownerID, err)
	}

	s.recordAudit(ownerID, models.AuditActionPermanentDelete, fileID, nil,
		fmt.Sprintf("permanently deleted %s (%d bytes)", rec.FileName, rec.SizeBytes), meta)
	return nil
}

// QuotaStatus is the owner-facing view of quota headroom. ActiveBytes
// and TrashBytes break the usage down by delete state so owners can see
// how much a permanent-delete pass would reclaim.
type QuotaStatus struct {
	UsedBytes      int64   `json:"used_bytes"`
	LimitBytes     int64   `json:"limit_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	ActiveBytes    int64   `json:"active_bytes"`
	TrashBytes     int64   `json:"trash_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

func (s *FileService) QuotaStatus(ctx context.Context, ownerID string) (*QuotaStatus, error) {
	q, err := s.quota.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active, err := s.catalog.TotalSizeByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		UsedBytes:      q.UsedBytes,
		LimitBytes:     q.LimitBytes,
		AvailableBytes: q.AvailableBytes(),
		ActiveBytes:    active,
	}
	if trash := q.UsedBytes - active; trash > 0 {
		status.TrashBytes = trash
	}
	if q.LimitBytes > 0 {
		status.UsagePercent = float64(q.UsedBytes) / float64(q.LimitBytes) * 100
	}
	return status, nil
}

// SetQuotaLimit changes an owner's storage limit. Lowering it below the
// current usage is allowed; the owner just cannot admit new bytes until
// they free space.
func (s *FileService) SetQuotaLimit(ctx context.Context, ownerID string, newLimit int64, meta RequestMeta) error {
	if newLimit <= 0 {
		return apperrors.New(apperrors.KindValidation, "quota limit must be positive")
	}
	if err := s.quota.UpdateLimit(ctx, ownerID, newLimit); err != nil {
		wrapped := apperrors.Wrap(apperrors.KindStorage, "failed to update quota limit", err)
		s.recordAudit(ownerID, models.AuditActionQuotaLimitUpdate, "", wrapped, "", meta)
		return wrapped
	}
	s.recordAudit(ownerID, models.AuditActionQuotaLimitUpdate, "", nil,
		fmt.Sprintf("quota limit set to %d bytes", newLimit), meta)
	return nil
}

// recordAudit writes one entry per operation outcome. err == nil means
// success with details; otherwise a failure entry carrying the message.
func (s *FileService) recordAudit(userID string, action models.AuditAction, entityID string, err error, details string, meta RequestMeta) {
	entry := audit.Entry{
		UserID:     userID,
		Action:     action,
		EntityType: "file",
		EntityID:   entityID,
		IsSuccess:  err == nil,
		Details:    details,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	s.auditor.Record(entry)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}
	return limit, (page - 1) * limit
}
