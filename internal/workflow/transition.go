package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/service-crm/internal/domain"
)

var (
	// ErrInvalidTransition is returned when the (from, to) pair is not in the table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMissingComment is returned when resolving a case without comments.
	ErrMissingComment = errors.New("comments required to resolve a case")
	// ErrNoOpTransition is returned when the case is already in the target status.
	ErrNoOpTransition = errors.New("case already in target status")
	// ErrEngineerRequired is returned when dispatching a case with no engineer assigned.
	ErrEngineerRequired = errors.New("assigned engineer required for dispatch")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From domain.CaseStatus
	To   domain.CaseStatus
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

type precondition func(c domain.ServiceCase, comments string) error

func requireEngineer(c domain.ServiceCase, _ string) error {
	if c.AssignedEngineerID == nil || strings.TrimSpace(*c.AssignedEngineerID) == "" {
		return ErrEngineerRequired
	}
	return nil
}

func requireComment(_ domain.ServiceCase, comments string) error {
	if strings.TrimSpace(comments) == "" {
		return ErrMissingComment
	}
	return nil
}

// allowedTransitions holds the only legal forward edges. A nil precondition
// means the edge is unconditional.
var allowedTransitions = map[domain.CaseStatus]map[domain.CaseStatus]precondition{
	domain.CaseStatusNew:                {domain.CaseStatusEngineerDispatched: requireEngineer},
	domain.CaseStatusEngineerDispatched: {domain.CaseStatusInProgress: nil},
	domain.CaseStatusInProgress:         {domain.CaseStatusResolved: requireComment},
	domain.CaseStatusResolved:           {domain.CaseStatusClosed: nil},
	domain.CaseStatusClosed:             {},
}

// CanTransition reports whether to is reachable from from in one step,
// ignoring preconditions.
func CanTransition(from, to domain.CaseStatus) bool {
	_, ok := allowedTransitions[from][to]
	return ok
}

// AllowedTargets returns the statuses reachable from from in one step.
func AllowedTargets(from domain.CaseStatus) []domain.CaseStatus {
	targets := []domain.CaseStatus{}
	for _, status := range domain.CaseStatuses {
		if CanTransition(from, status) {
			targets = append(targets, status)
		}
	}
	return targets
}

// NextStatus returns the single forward step from current. Closed and
// unrecognized statuses have none.
func NextStatus(current domain.CaseStatus) (domain.CaseStatus, bool) {
	targets := AllowedTargets(current)
	if len(targets) != 1 {
		return "", false
	}
	return targets[0], true
}

// ApplyTransition moves a copy of c to target. The input case is never modified.
func ApplyTransition(c domain.ServiceCase, target domain.CaseStatus, comments string) (domain.ServiceCase, error) {
	if c.Status == target {
		return c, &TransitionError{From: c.Status, To: target, Err: ErrNoOpTransition}
	}
	edges, known := allowedTransitions[c.Status]
	if !known {
		return c, &TransitionError{From: c.Status, To: target, Err: ErrInvalidTransition}
	}
	check, ok := edges[target]
	if !ok {
		return c, &TransitionError{From: c.Status, To: target, Err: ErrInvalidTransition}
	}
	if check != nil {
		if err := check(c, comments); err != nil {
			return c, &TransitionError{From: c.Status, To: target, Err: err}
		}
	}

	next := c
	if c.AssignedEngineerID != nil {
		id := *c.AssignedEngineerID
		next.AssignedEngineerID = &id
	}
	if c.LinkedProductID != nil {
		id := *c.LinkedProductID
		next.LinkedProductID = &id
	}
	if c.SLADeadline != nil {
		deadline := *c.SLADeadline
		next.SLADeadline = &deadline
	}
	next.Status = target
	if target.IsTerminal() {
		next.FeedbackEligible = true
	}
	return next, nil
}
