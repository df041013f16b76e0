package workflow

import (
	"fmt"
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// SLA windows by priority. Unknown priorities get the Medium window.
const (
	HighPriorityWindow   = 4 * time.Hour
	MediumPriorityWindow = 24 * time.Hour
	LowPriorityWindow    = 72 * time.Hour
)

// SLAWindow returns the resolution window for a priority.
func SLAWindow(priority domain.CasePriority) time.Duration {
	switch ClassifyPriority(string(priority)) {
	case PriorityClassHigh:
		return HighPriorityWindow
	case PriorityClassLow:
		return LowPriorityWindow
	default:
		return MediumPriorityWindow
	}
}

// ComputeDeadline returns the SLA deadline for a case created at createdAt.
func ComputeDeadline(createdAt time.Time, priority domain.CasePriority) time.Time {
	return createdAt.Add(SLAWindow(priority))
}

// Remaining is the distance between now and an SLA deadline.
// Known is false when the deadline was missing.
type Remaining struct {
	Known     bool
	Overdue   bool
	Magnitude time.Duration
}

// RemainingUntil measures now against deadline. A nil or zero deadline yields
// an unknown Remaining.
func RemainingUntil(deadline *time.Time, now time.Time) Remaining {
	if deadline == nil || deadline.IsZero() {
		return Remaining{}
	}
	if now.After(*deadline) {
		return Remaining{Known: true, Overdue: true, Magnitude: now.Sub(*deadline)}
	}
	return Remaining{Known: true, Magnitude: deadline.Sub(now)}
}

// String renders the remaining time the way the engineer dashboard shows it.
func (r Remaining) String() string {
	if !r.Known {
		return "N/A"
	}
	if r.Overdue {
		// any started day of overage counts as a full day
		days := int64((r.Magnitude + 24*time.Hour - 1) / (24 * time.Hour))
		return fmt.Sprintf("Overdue by %d days", days)
	}
	hours := int64(r.Magnitude / time.Hour)
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%d days, %d hours", days, hours%24)
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}

// IsBreached reports whether an open case has passed its SLA deadline.
func IsBreached(c domain.ServiceCase, now time.Time) bool {
	if c.Status.IsTerminal() {
		return false
	}
	return RemainingUntil(c.SLADeadline, now).Overdue
}
