package domain

import "time"

// FeedbackRecord is a customer's rating of a resolved or closed case.
type FeedbackRecord struct {
	ID            string
	ServiceCaseID string
	CustomerName  string
	CustomerEmail string
	Rating        int
	Comments      string
	SubmittedAt   time.Time
}
