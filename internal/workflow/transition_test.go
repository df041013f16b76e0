package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-crm/internal/domain"
)

func strPtr(v string) *string { return &v }

func TestApplyTransitionHappyPath(t *testing.T) {
	c := domain.ServiceCase{ID: "c1", Status: domain.CaseStatusNew, AssignedEngineerID: strPtr("eng-1")}

	steps := []struct {
		to       domain.CaseStatus
		comments string
	}{
		{domain.CaseStatusEngineerDispatched, ""},
		{domain.CaseStatusInProgress, ""},
		{domain.CaseStatusResolved, "replaced fuse"},
		{domain.CaseStatusClosed, ""},
	}
	for _, step := range steps {
		next, err := ApplyTransition(c, step.to, step.comments)
		require.NoError(t, err, "to %q", step.to)
		assert.Equal(t, step.to, next.Status)
		c = next
	}
	assert.True(t, c.FeedbackEligible)
}

func TestApplyTransitionMissingComment(t *testing.T) {
	c := domain.ServiceCase{Status: domain.CaseStatusInProgress}

	_, err := ApplyTransition(c, domain.CaseStatusResolved, "   ")
	assert.ErrorIs(t, err, ErrMissingComment)

	next, err := ApplyTransition(c, domain.CaseStatusResolved, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusResolved, next.Status)
	assert.True(t, next.FeedbackEligible)
}

func TestApplyTransitionMissingCommentFromAnyStatus(t *testing.T) {
	for _, status := range domain.CaseStatuses {
		_, err := ApplyTransition(domain.ServiceCase{Status: status}, domain.CaseStatusResolved, "")
		assert.Error(t, err)
		if status == domain.CaseStatusInProgress {
			assert.ErrorIs(t, err, ErrMissingComment)
		}
	}
}

func TestApplyTransitionNoOp(t *testing.T) {
	for _, status := range domain.CaseStatuses {
		_, err := ApplyTransition(domain.ServiceCase{Status: status}, status, "anything")
		assert.ErrorIs(t, err, ErrNoOpTransition, "status %q", status)
	}
}

func TestApplyTransitionRejectsIllegalEdges(t *testing.T) {
	c := domain.ServiceCase{Status: domain.CaseStatusResolved, AssignedEngineerID: strPtr("e")}
	_, err := ApplyTransition(c, domain.CaseStatusInProgress, "reopen")

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.CaseStatusResolved, terr.From)
	assert.Equal(t, domain.CaseStatusInProgress, terr.To)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ApplyTransition(domain.ServiceCase{Status: "Escalated"}, domain.CaseStatusClosed, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyTransitionRequiresEngineer(t *testing.T) {
	_, err := ApplyTransition(domain.ServiceCase{Status: domain.CaseStatusNew}, domain.CaseStatusEngineerDispatched, "")
	assert.ErrorIs(t, err, ErrEngineerRequired)
}

func TestApplyTransitionOnlyReachesTableTargets(t *testing.T) {
	for _, from := range domain.CaseStatuses {
		for _, to := range domain.CaseStatuses {
			c := domain.ServiceCase{Status: from, AssignedEngineerID: strPtr("e")}
			next, err := ApplyTransition(c, to, "done")
			if err != nil {
				continue
			}
			assert.True(t, CanTransition(from, next.Status), "%q -> %q", from, next.Status)
		}
	}
}

func TestApplyTransitionDoesNotMutateInput(t *testing.T) {
	engineer := "eng-1"
	c := domain.ServiceCase{Status: domain.CaseStatusNew, AssignedEngineerID: &engineer}

	next, err := ApplyTransition(c, domain.CaseStatusEngineerDispatched, "")
	require.NoError(t, err)
	*next.AssignedEngineerID = "eng-2"

	assert.Equal(t, domain.CaseStatusNew, c.Status)
	assert.Equal(t, "eng-1", engineer)
}

func TestNextStatus(t *testing.T) {
	next, ok := NextStatus(domain.CaseStatusEngineerDispatched)
	assert.True(t, ok)
	assert.Equal(t, domain.CaseStatusInProgress, next)

	next, ok = NextStatus(domain.CaseStatusInProgress)
	assert.True(t, ok)
	assert.Equal(t, domain.CaseStatusResolved, next)

	_, ok = NextStatus(domain.CaseStatusClosed)
	assert.False(t, ok)
	_, ok = NextStatus("Pending")
	assert.False(t, ok)
}

func TestAllowedTargets(t *testing.T) {
	assert.Equal(t, []domain.CaseStatus{domain.CaseStatusEngineerDispatched}, AllowedTargets(domain.CaseStatusNew))
	assert.Empty(t, AllowedTargets(domain.CaseStatusClosed))
}
