package events

import (
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated        EventType = "case_created"
	EventCaseStatusChanged  EventType = "case_status_changed"
	EventEngineerDispatched EventType = "engineer_dispatched"
	EventFeedbackRecorded   EventType = "feedback_recorded"
	EventProductRegistered  EventType = "product_registered"
	EventSLABreached        EventType = "sla_breached"
)

// Actor identifies who caused an event. System events carry an empty ID.
type Actor struct {
	ID   string      `json:"id,omitempty"`
	Role domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	CaseNumber  string              `json:"case_number"`
	Subject     string              `json:"subject"`
	Priority    domain.CasePriority `json:"priority"`
	SLADeadline *time.Time          `json:"sla_deadline,omitempty"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	CaseNumber string            `json:"case_number"`
	OldStatus  domain.CaseStatus `json:"old_status"`
	NewStatus  domain.CaseStatus `json:"new_status"`
	Comment    string            `json:"comment,omitempty"`
}

// EngineerDispatchedPayload payload.
type EngineerDispatchedPayload struct {
	CaseNumber           string    `json:"case_number"`
	EngineerID           string    `json:"engineer_id"`
	DispatchID           string    `json:"dispatch_id"`
	ScheduledServiceDate time.Time `json:"scheduled_service_date"`
}

// FeedbackRecordedPayload payload.
type FeedbackRecordedPayload struct {
	FeedbackID string `json:"feedback_id"`
	Rating     int    `json:"rating"`
}

// ProductRegisteredPayload payload.
type ProductRegisteredPayload struct {
	RegisteredProductID string `json:"registered_product_id"`
	Name                string `json:"name"`
	SerialNumber        string `json:"serial_number"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	CaseNumber string              `json:"case_number"`
	Priority   domain.CasePriority `json:"priority"`
	EngineerID *string             `json:"engineer_id,omitempty"`
	Overdue    time.Duration       `json:"overdue"`
}
