package workflow

import (
	"strings"
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// Tone is the display severity shared by every classification.
type Tone string

const (
	ToneInfo        Tone = "info"
	ToneWarning     Tone = "warning"
	ToneSuccess     Tone = "success"
	ToneShade       Tone = "shade"
	ToneDestructive Tone = "destructive"
	ToneNeutral     Tone = "neutral"
)

// PriorityClass buckets raw priority values.
type PriorityClass string

const (
	PriorityClassHigh    PriorityClass = "High"
	PriorityClassMedium  PriorityClass = "Medium"
	PriorityClassLow     PriorityClass = "Low"
	PriorityClassUnknown PriorityClass = "Unknown"
)

// ClassifyPriority maps a raw priority, case-insensitively.
func ClassifyPriority(raw string) PriorityClass {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return PriorityClassHigh
	case "medium":
		return PriorityClassMedium
	case "low":
		return PriorityClassLow
	default:
		return PriorityClassUnknown
	}
}

// Tone returns the display tone.
func (p PriorityClass) Tone() Tone {
	switch p {
	case PriorityClassHigh:
		return ToneDestructive
	case PriorityClassMedium:
		return ToneWarning
	case PriorityClassLow:
		return ToneSuccess
	default:
		return ToneNeutral
	}
}

// RatingClass buckets feedback ratings.
type RatingClass string

const (
	RatingPositive RatingClass = "Positive"
	RatingNeutral  RatingClass = "Neutral"
	RatingNegative RatingClass = "Negative"
	RatingInvalid  RatingClass = "Invalid"
)

// ClassifyRating maps a 1-5 rating.
func ClassifyRating(rating int) RatingClass {
	switch {
	case rating < 1 || rating > 5:
		return RatingInvalid
	case rating >= 4:
		return RatingPositive
	case rating == 3:
		return RatingNeutral
	default:
		return RatingNegative
	}
}

// Tone returns the display tone.
func (r RatingClass) Tone() Tone {
	switch r {
	case RatingPositive:
		return ToneSuccess
	case RatingNeutral:
		return ToneWarning
	case RatingNegative:
		return ToneDestructive
	default:
		return ToneNeutral
	}
}

// BreachClass buckets an engineer's SLA breach count.
type BreachClass string

const (
	BreachNone   BreachClass = "None"
	BreachMinor  BreachClass = "Minor"
	BreachSevere BreachClass = "Severe"
)

// ClassifyBreaches maps a breach count. Negative counts are treated as zero.
func ClassifyBreaches(count int) BreachClass {
	switch {
	case count <= 0:
		return BreachNone
	case count <= 2:
		return BreachMinor
	default:
		return BreachSevere
	}
}

// Tone returns the display tone.
func (b BreachClass) Tone() Tone {
	switch b {
	case BreachNone:
		return ToneSuccess
	case BreachMinor:
		return ToneWarning
	default:
		return ToneDestructive
	}
}

// CoverageClass describes warranty or AMC coverage.
type CoverageClass string

const (
	CoverageActive  CoverageClass = "Active"
	CoverageExpired CoverageClass = "Expired"
	CoverageNone    CoverageClass = "None"
)

// ClassifyCoverage compares a coverage expiry against now. Coverage is still
// active on the expiry instant itself.
func ClassifyCoverage(expiry *time.Time, now time.Time) CoverageClass {
	if expiry == nil || expiry.IsZero() {
		return CoverageNone
	}
	if expiry.Before(now) {
		return CoverageExpired
	}
	return CoverageActive
}

// Tone returns the display tone.
func (c CoverageClass) Tone() Tone {
	switch c {
	case CoverageActive:
		return ToneSuccess
	case CoverageExpired:
		return ToneDestructive
	default:
		return ToneNeutral
	}
}

// StatusClass groups case statuses for display.
type StatusClass string

const (
	StatusClassOpen     StatusClass = "Open"
	StatusClassActive   StatusClass = "Active"
	StatusClassDone     StatusClass = "Done"
	StatusClassArchived StatusClass = "Archived"
	StatusClassUnknown  StatusClass = "Unknown"
)

// ClassifyStatus maps a raw case status.
func ClassifyStatus(raw string) StatusClass {
	switch domain.CaseStatus(strings.TrimSpace(raw)) {
	case domain.CaseStatusNew:
		return StatusClassOpen
	case domain.CaseStatusEngineerDispatched, domain.CaseStatusInProgress:
		return StatusClassActive
	case domain.CaseStatusResolved:
		return StatusClassDone
	case domain.CaseStatusClosed:
		return StatusClassArchived
	default:
		return StatusClassUnknown
	}
}

// Tone returns the display tone.
func (s StatusClass) Tone() Tone {
	switch s {
	case StatusClassOpen:
		return ToneInfo
	case StatusClassActive:
		return ToneWarning
	case StatusClassDone:
		return ToneSuccess
	case StatusClassArchived:
		return ToneShade
	default:
		return ToneNeutral
	}
}

// ClassifyAvailability maps a raw availability value. Anything unrecognized
// is Unavailable.
func ClassifyAvailability(raw string) domain.AvailabilityStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return domain.AvailabilityAvailable
	case "busy":
		return domain.AvailabilityBusy
	default:
		return domain.AvailabilityUnavailable
	}
}

// AvailabilityTone returns the display tone for an availability status.
func AvailabilityTone(a domain.AvailabilityStatus) Tone {
	switch a {
	case domain.AvailabilityAvailable:
		return ToneSuccess
	case domain.AvailabilityBusy:
		return ToneWarning
	default:
		return ToneShade
	}
}
