package dto

import "time"

// SubmitCaseRequest is the portal service request form.
type SubmitCaseRequest struct {
	Subject             string `json:"subject"`
	RegisteredProductID string `json:"registered_product_id"`
	Description         string `json:"description"`
	Priority            string `json:"priority"`
}

// ChangeStatusRequest moves a case to the target status.
type ChangeStatusRequest struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

// DispatchRequest assigns an engineer and schedules a visit.
type DispatchRequest struct {
	EngineerID  string    `json:"engineer_id"`
	ServiceDate time.Time `json:"service_date"`
}

// RemainingResponse describes the distance to the SLA deadline.
type RemainingResponse struct {
	Known   bool   `json:"known"`
	Overdue bool   `json:"overdue"`
	Seconds int64  `json:"seconds"`
	Display string `json:"display"`
}

// DispatchResponse is a scheduled visit.
type DispatchResponse struct {
	ID                   string    `json:"id"`
	ServiceCaseID        string    `json:"service_case_id"`
	ScheduledServiceDate time.Time `json:"scheduled_service_date"`
	CreatedAt            time.Time `json:"created_at"`
}

// CaseResponse is a case with its derived dashboard fields.
type CaseResponse struct {
	ID                 string            `json:"id"`
	CaseNumber         string            `json:"case_number"`
	ContactID          string            `json:"contact_id"`
	Subject            string            `json:"subject"`
	Description        string            `json:"description,omitempty"`
	Status             string            `json:"status"`
	StatusClass        string            `json:"status_class"`
	Priority           string            `json:"priority"`
	PriorityClass      string            `json:"priority_class"`
	PriorityTone       string            `json:"priority_tone"`
	AssignedEngineerID *string           `json:"assigned_engineer_id,omitempty"`
	LinkedProductID    *string           `json:"linked_product_id,omitempty"`
	FeedbackEligible   bool              `json:"feedback_eligible"`
	SLADeadline        *time.Time        `json:"sla_deadline,omitempty"`
	Remaining          RemainingResponse `json:"remaining"`
	Breached           bool              `json:"sla_breached"`
	NextStatus         *string           `json:"next_status,omitempty"`
	AllowedStatuses    []string          `json:"allowed_statuses"`
	ActiveDispatch     *DispatchResponse `json:"active_dispatch,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// DispatchJobResponse is one dispatch on the engineer schedule.
type DispatchJobResponse struct {
	Dispatch   DispatchResponse `json:"dispatch"`
	CaseNumber string           `json:"case_number"`
	Subject    string           `json:"subject"`
	Status     string           `json:"status"`
	Active     bool             `json:"active"`
}

// CaseHistoryResponse is one audit trail entry.
type CaseHistoryResponse struct {
	ID          string         `json:"id"`
	ChangedByID *string        `json:"changed_by_id,omitempty"`
	ChangeType  string         `json:"change_type"`
	OldValue    map[string]any `json:"old_value,omitempty"`
	NewValue    map[string]any `json:"new_value,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
