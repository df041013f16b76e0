package dto

import "time"

// FeedbackRequest rates a resolved or closed case. Name and email default to
// the caller's identity when omitted.
type FeedbackRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Rating        int    `json:"rating"`
	Comments      string `json:"comments"`
}

// FeedbackResponse is a feedback record with its rating class.
type FeedbackResponse struct {
	ID            string    `json:"id"`
	ServiceCaseID string    `json:"service_case_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Rating        int       `json:"rating"`
	RatingClass   string    `json:"rating_class"`
	Comments      string    `json:"comments,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
