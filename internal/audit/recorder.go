// Package audit appends one record per mutating pipeline outcome.
// Recording is fire-and-forget: the writer runs on its own goroutine
// and its failures are logged and discarded, never propagated into the
// primary flow.
package audit

import (
	"log"
	"sync"
	"time"

	"github.com/filedock/backend/internal/models"
	"gorm.io/gorm"
)

// Entry is what the pipelines hand to the recorder.
type Entry struct {
	UserID       string
	Action       models.AuditAction
	EntityType   string
	EntityID     string
	IsSuccess    bool
	Details      string
	ErrorMessage string
	IPAddress    string
	UserAgent    string
}

type Recorder struct {
	db      *gorm.DB
	entries chan Entry
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts the background writer. buffer bounds how many
// entries may be in flight before new ones are dropped.
func NewRecorder(db *gorm.DB, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		db:      db,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an entry without blocking. If the buffer is full or
// the recorder is already closed the entry is dropped with a log line;
// audit must never stall or crash a pipeline.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Printf("Audit: recorder closed, dropping %s entry for user %s", e.Action, e.UserID)
		return
	}
	select {
	case r.entries <- e:
	default:
		log.Printf("Audit: buffer full, dropping %s entry for user %s", e.Action, e.UserID)
	}
}

// Close stops accepting entries and drains what is already queued.
// Entries recorded after Close are dropped, not panicked on. Safe to
// call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		log.Println("Audit: timed out waiting for drain")
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.entries {
		row := models.AuditLog{
			UserID:       e.UserID,
			Action:       e.Action,
			EntityType:   e.EntityType,
			EntityID:     e.EntityID,
			IsSuccess:    e.IsSuccess,
			Details:      e.Details,
			ErrorMessage: e.ErrorMessage,
			IPAddress:    e.IPAddress,
			UserAgent:    e.UserAgent,
		}
		if err := r.db.Create(&row).Error; err != nil {
			log.Printf("Audit: failed to write %s entry for user %s: %v", e.Action, e.UserID, err)
		}
	}
}
