package domain

// Engineer is a roster entry for a field engineer.
type Engineer struct {
	ID     string
	Name   string
	Active bool
}

// AvailabilityStatus describes whether an engineer can take more work.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "Available"
	AvailabilityBusy        AvailabilityStatus = "Busy"
	AvailabilityUnavailable AvailabilityStatus = "Unavailable"
)
