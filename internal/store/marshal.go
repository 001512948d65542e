package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// toUnix converts t to the stored representation.
func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// fromUnix converts a stored timestamp back to UTC time.
func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// decidedAtArg returns the SQL argument for an optional decision time.
func decidedAtArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toUnix(*t)
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// submissionColumns is the column list every scan expects, in order.
const submissionColumns = `id, category, status, payload, created_at, decided_at, backup_ref`

// scanSubmission reads one row selected with submissionColumns.
func scanSubmission(row rowScanner) (submission.Submission, error) {
	var (
		sub       submission.Submission
		status    string
		payload   string
		createdAt int64
		decidedAt sql.NullInt64
	)

	err := row.Scan(&sub.ID, &sub.Category, &status, &payload, &createdAt, &decidedAt, &sub.BackupRef)
	if err != nil {
		return submission.Submission{}, err
	}

	sub.Status = submission.Status(status)
	sub.Payload = json.RawMessage(payload)
	sub.CreatedAt = fromUnix(createdAt)
	if decidedAt.Valid {
		t := fromUnix(decidedAt.Int64)
		sub.DecidedAt = &t
	}

	return sub, nil
}

// scanSubmissions drains rows into a non-nil slice.
func scanSubmissions(rows *sql.Rows) ([]submission.Submission, error) {
	defer rows.Close()

	subs := []submission.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return subs, nil
}
