package domain

import "time"

// CaseStatus enumerates lifecycle states for service cases.
type CaseStatus string

const (
	CaseStatusNew                CaseStatus = "New"
	CaseStatusEngineerDispatched CaseStatus = "Engineer Dispatched"
	CaseStatusInProgress         CaseStatus = "In Progress"
	CaseStatusResolved           CaseStatus = "Resolved"
	CaseStatusClosed             CaseStatus = "Closed"
)

// CaseStatuses lists every status in lifecycle order.
var CaseStatuses = []CaseStatus{
	CaseStatusNew,
	CaseStatusEngineerDispatched,
	CaseStatusInProgress,
	CaseStatusResolved,
	CaseStatusClosed,
}

// IsTerminal reports whether the case no longer counts as open.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusResolved || s == CaseStatusClosed
}

// CasePriority enumerates SLA urgency.
type CasePriority string

const (
	CasePriorityLow    CasePriority = "Low"
	CasePriorityMedium CasePriority = "Medium"
	CasePriorityHigh   CasePriority = "High"
)

// CasePriorities lists every priority from most to least urgent.
var CasePriorities = []CasePriority{
	CasePriorityHigh,
	CasePriorityMedium,
	CasePriorityLow,
}

// ServiceCase is the aggregate root for customer service requests.
type ServiceCase struct {
	ID                 string
	CaseNumber         string
	ContactID          string
	Subject            string
	Description        string
	Status             CaseStatus
	Priority           CasePriority
	AssignedEngineerID *string
	LinkedProductID    *string
	FeedbackEligible   bool
	CreatedAt          time.Time
	SLADeadline        *time.Time
	UpdatedAt          time.Time
}
