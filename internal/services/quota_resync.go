package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/filedock/backend/internal/audit"
	"github.com/filedock/backend/internal/models"
)

// QuotaRows lists the ledger rows the sweep walks.
type QuotaRows interface {
	All(ctx context.Context) ([]models.StorageQuota, error)
}

// QuotaResyncService periodically rewrites each owner's usage from the
// catalog's charged-size aggregate (trash included). This repairs the
// drift that the floor-at-zero release and best-effort charge can leave
// behind.
type QuotaResyncService struct {
	interval time.Duration
	rows     QuotaRows
	quota    QuotaLedger
	catalog  FileCatalog
	auditor  AuditRecorder
	stop     chan struct{}
	done     chan struct{}
}

func NewQuotaResyncService(interval time.Duration, rows QuotaRows, quota QuotaLedger, catalog FileCatalog, auditor AuditRecorder) *QuotaResyncService {
	return &QuotaResyncService{
		interval: interval,
		rows:     rows,
		quota:    quota,
		catalog:  catalog,
		auditor:  auditor,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *QuotaResyncService) Start() {
	if s.interval <= 0 {
		close(s.done)
		log.Println("QuotaResync: disabled")
		return
	}
	go s.run()
	log.Printf("QuotaResync: service started (interval %s)", s.interval)
}

// Stop signals the loop and waits for any in-flight sweep to finish, so
// the collaborators it writes to can be shut down safely afterwards.
func (s *QuotaResyncService) Stop() {
	close(s.stop)
	<-s.done
	log.Println("QuotaResync: service stopped")
}

func (s *QuotaResyncService) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce walks every quota row and resyncs the ones that drifted.
func (s *QuotaResyncService) RunOnce(ctx context.Context) {
	quotas, err := s.rows.All(ctx)
	if err != nil {
		log.Printf("QuotaResync: failed to list quota rows: %v", err)
		return
	}

	repaired := 0
	for _, q := range quotas {
		trueUsed, err := s.catalog.TotalChargedByOwner(ctx, q.OwnerID)
		if err != nil {
			log.Printf("QuotaResync: failed to aggregate usage for owner %s: %v", q.OwnerID, err)
			continue
		}
		if trueUsed == q.UsedBytes {
			continue
		}

		if err := s.quota.Resync(ctx, q.OwnerID, trueUsed); err != nil {
			log.Printf("QuotaResync: failed to resync owner %s: %v", q.OwnerID, err)
			continue
		}
		repaired++
		s.auditor.Record(audit.Entry{
			UserID:     q.OwnerID,
			Action:     models.AuditActionQuotaResync,
			EntityType: "quota",
			IsSuccess:  true,
			Details:    fmt.Sprintf("usage corrected from %d to %d bytes", q.UsedBytes, trueUsed),
		})
	}

	if repaired > 0 {
		log.Printf("QuotaResync: repaired %d drifted quota rows", repaired)
	}
}
