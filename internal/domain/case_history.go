package domain

import "time"

// CaseChangeType captures what changed in a history entry.
type CaseChangeType string

const (
	ChangeTypeStatus   CaseChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee CaseChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeDispatch CaseChangeType = "DISPATCH_SCHEDULED"
)

// CaseHistory is an immutable audit trail entry.
type CaseHistory struct {
	ID          string
	CaseID      string
	ChangedByID *string
	ChangeType  CaseChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
