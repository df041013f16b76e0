package domain

import "time"

// DispatchRecord schedules a field visit for a case.
type DispatchRecord struct {
	ID                   string
	ServiceCaseID        string
	ScheduledServiceDate time.Time
	CreatedAt            time.Time
}
