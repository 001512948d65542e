package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// baseTime anchors test timestamps.
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSubmission creates a pending submission with minimal payload.
func createTestSubmission(id, category string, createdAt time.Time) submission.Submission {
	return submission.Submission{
		ID:        id,
		Category:  category,
		Status:    submission.StatusPending,
		Payload:   []byte(`{"eventType":"FORM_RESPONSE","data":{"formName":"` + category + `","fields":[]}}`),
		CreatedAt: createdAt,
		BackupRef: "backup_" + id + ".json",
	}
}
