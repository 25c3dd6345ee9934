package audit

import (
	"testing"

	"github.com/filedock/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRecordAfterCloseIsDropped(t *testing.T) {
	r := NewRecorder(nil, 4)
	r.Close()

	// A late producer (a background sweep racing shutdown) must be
	// swallowed, never panic the process.
	assert.NotPanics(t, func() {
		r.Record(Entry{
			UserID: "user-1",
			Action: models.AuditActionUpload,
		})
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	r := NewRecorder(nil, 4)
	assert.NotPanics(t, func() {
		r.Close()
		r.Close()
	})
}
