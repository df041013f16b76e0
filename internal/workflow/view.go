package workflow

import (
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// CaseView is a case decorated with the fields every dashboard derives.
type CaseView struct {
	Case          domain.ServiceCase
	StatusClass   StatusClass
	PriorityClass PriorityClass
	Remaining     Remaining
	Breached      bool
	NextStatus    *domain.CaseStatus
	Dispatch      *domain.DispatchRecord
}

// DecorateCase derives the view fields of c at now. dispatches may hold
// records for other cases; only the active one for c is attached.
func DecorateCase(c domain.ServiceCase, dispatches []domain.DispatchRecord, now time.Time) CaseView {
	view := CaseView{
		Case:          c,
		StatusClass:   ClassifyStatus(string(c.Status)),
		PriorityClass: ClassifyPriority(string(c.Priority)),
		Remaining:     RemainingUntil(c.SLADeadline, now),
		Breached:      IsBreached(c, now),
	}
	if next, ok := NextStatus(c.Status); ok {
		view.NextStatus = &next
	}
	if d, ok := ActiveDispatch(c.ID, dispatches); ok {
		view.Dispatch = &d
	}
	return view
}

// FeedbackView is a feedback record with its rating class.
type FeedbackView struct {
	Feedback    domain.FeedbackRecord
	RatingClass RatingClass
}

// DecorateFeedback derives the rating class of f.
func DecorateFeedback(f domain.FeedbackRecord) FeedbackView {
	return FeedbackView{Feedback: f, RatingClass: ClassifyRating(f.Rating)}
}

// ProductView is a registered product with its coverage state.
type ProductView struct {
	Product  domain.RegisteredProduct
	Warranty CoverageClass
	AMC      CoverageClass
}

// DecorateProduct derives warranty and AMC coverage of p at now.
func DecorateProduct(p domain.RegisteredProduct, now time.Time) ProductView {
	return ProductView{
		Product:  p,
		Warranty: ClassifyCoverage(p.WarrantyExpiry, now),
		AMC:      ClassifyCoverage(p.AMCExpiry, now),
	}
}
