package submission

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the moderation state of a submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatuses lists every status in lifecycle order.
var ValidStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range ValidStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: must be one of %v", s, ValidStatuses)
}

// IsTerminal reports whether no transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether s may move to next.
// Only pending → approved and pending → rejected are legal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Decision is a moderator verdict on a pending submission.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts "approve"/"approved" and "reject"/"rejected".
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	}
	return "", fmt.Errorf("unknown decision %q: must be approve or reject", s)
}

// Status returns the terminal status a decision produces.
func (d Decision) Status() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Submission is one moderated form response.
type Submission struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Status    Status          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"` // nil while pending
	BackupRef string          `json:"backup_ref,omitempty"`
}

// Parsed returns the structured view of the stored payload.
func (s Submission) Parsed() (Payload, error) {
	return Decode(s.Payload)
}

// Stats is a derived snapshot of the store contents.
// Total always equals Pending + Approved + Rejected.
type Stats struct {
	Total       int            `json:"total_received"`
	Approved    int            `json:"total_approved"`
	Rejected    int            `json:"total_rejected"`
	Pending     int            `json:"pending"`
	PerCategory map[string]int `json:"per_category"`
}

// Publication is the structured public-facing content of an approved
// submission. Rendering it to text is the notifier's concern.
type Publication struct {
	SubmissionID string         `json:"submission_id"`
	Category     string         `json:"category"`
	Fields       []DisplayField `json:"fields"`
}

// NewPublication builds the public view of sub.
func NewPublication(sub Submission) (Publication, error) {
	p, err := sub.Parsed()
	if err != nil {
		return Publication{}, fmt.Errorf("publication %s: %w", sub.ID, err)
	}
	return Publication{
		SubmissionID: sub.ID,
		Category:     sub.Category,
		Fields:       p.DisplayFields(),
	}, nil
}
