package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/service-crm/internal/domain"
)

func TestClassifyPriority(t *testing.T) {
	assert.Equal(t, PriorityClassHigh, ClassifyPriority("High"))
	assert.Equal(t, PriorityClassMedium, ClassifyPriority(" medium "))
	assert.Equal(t, PriorityClassLow, ClassifyPriority("LOW"))
	assert.Equal(t, PriorityClassUnknown, ClassifyPriority("urgent"))
	assert.Equal(t, ToneDestructive, PriorityClassHigh.Tone())
	assert.Equal(t, ToneNeutral, PriorityClassUnknown.Tone())
}

func TestClassifyRating(t *testing.T) {
	want := map[int]RatingClass{
		0: RatingInvalid,
		1: RatingNegative,
		2: RatingNegative,
		3: RatingNeutral,
		4: RatingPositive,
		5: RatingPositive,
		6: RatingInvalid,
	}
	for rating, class := range want {
		assert.Equal(t, class, ClassifyRating(rating), "rating %d", rating)
	}
}

func TestClassifyBreaches(t *testing.T) {
	assert.Equal(t, BreachNone, ClassifyBreaches(-1))
	assert.Equal(t, BreachNone, ClassifyBreaches(0))
	assert.Equal(t, BreachMinor, ClassifyBreaches(1))
	assert.Equal(t, BreachMinor, ClassifyBreaches(2))
	assert.Equal(t, BreachSevere, ClassifyBreaches(3))
	assert.Equal(t, ToneWarning, BreachMinor.Tone())
}

func TestClassifyCoverage(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.AddDate(1, 0, 0)

	assert.Equal(t, CoverageNone, ClassifyCoverage(nil, now))
	assert.Equal(t, CoverageExpired, ClassifyCoverage(&past, now))
	assert.Equal(t, CoverageActive, ClassifyCoverage(&now, now))
	assert.Equal(t, CoverageActive, ClassifyCoverage(&future, now))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, StatusClassOpen, ClassifyStatus("New"))
	assert.Equal(t, StatusClassActive, ClassifyStatus("Engineer Dispatched"))
	assert.Equal(t, StatusClassActive, ClassifyStatus("In Progress"))
	assert.Equal(t, StatusClassDone, ClassifyStatus("Resolved"))
	assert.Equal(t, StatusClassArchived, ClassifyStatus("Closed"))
	assert.Equal(t, StatusClassUnknown, ClassifyStatus("Escalated"))
	assert.Equal(t, ToneShade, StatusClassArchived.Tone())
}

func TestClassifyAvailability(t *testing.T) {
	assert.Equal(t, domain.AvailabilityAvailable, ClassifyAvailability("Available"))
	assert.Equal(t, domain.AvailabilityBusy, ClassifyAvailability("busy"))
	assert.Equal(t, domain.AvailabilityUnavailable, ClassifyAvailability("on leave"))
	assert.Equal(t, ToneShade, AvailabilityTone(domain.AvailabilityUnavailable))
}
