package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-crm/internal/api/dto"
	"github.com/spec-kit/service-crm/internal/auth"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/service"
	"github.com/spec-kit/service-crm/internal/workflow"
	apperrors "github.com/spec-kit/service-crm/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func greetingFor(hour int) string {
	switch {
	case hour < 12:
		return "Good Morning"
	case hour < 17:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

func parseCaseListQuery(c *fiber.Ctx) service.CaseListFilter {
	filter := service.CaseListFilter{}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.CaseStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.CasePriority(part))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	filter.Limit, filter.Offset = parsePage(c)
	return filter
}

const (
	maxPageSize = 200
	maxPage     = 10000
)

func parsePage(c *fiber.Ctx) (limit, offset int) {
	return pageWindow(c.Query("page"), c.Query("page_size"))
}

// pageWindow turns 1-based page parameters into limit and offset. Both are
// clamped so the offset stays far from integer overflow.
func pageWindow(rawPage, rawSize string) (limit, offset int) {
	page := min(parseInt(rawPage, 1), maxPage)
	pageSize := min(parseInt(rawSize, 20), maxPageSize)
	return pageSize, (page - 1) * pageSize
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func caseResponse(view workflow.CaseView) dto.CaseResponse {
	c := view.Case
	resp := dto.CaseResponse{
		ID:                 c.ID,
		CaseNumber:         c.CaseNumber,
		ContactID:          c.ContactID,
		Subject:            c.Subject,
		Description:        c.Description,
		Status:             string(c.Status),
		StatusClass:        string(view.StatusClass),
		Priority:           string(c.Priority),
		PriorityClass:      string(view.PriorityClass),
		PriorityTone:       string(view.PriorityClass.Tone()),
		AssignedEngineerID: c.AssignedEngineerID,
		LinkedProductID:    c.LinkedProductID,
		FeedbackEligible:   c.FeedbackEligible,
		SLADeadline:        c.SLADeadline,
		Remaining: dto.RemainingResponse{
			Known:   view.Remaining.Known,
			Overdue: view.Remaining.Overdue,
			Seconds: int64(view.Remaining.Magnitude.Seconds()),
			Display: view.Remaining.String(),
		},
		Breached:  view.Breached,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	resp.AllowedStatuses = make([]string, 0, 2)
	for _, target := range workflow.AllowedTargets(c.Status) {
		resp.AllowedStatuses = append(resp.AllowedStatuses, string(target))
	}
	if view.NextStatus != nil {
		next := string(*view.NextStatus)
		resp.NextStatus = &next
	}
	if view.Dispatch != nil {
		d := dispatchResponse(*view.Dispatch)
		resp.ActiveDispatch = &d
	}
	return resp
}

func caseResponses(views []workflow.CaseView) []dto.CaseResponse {
	items := make([]dto.CaseResponse, 0, len(views))
	for _, v := range views {
		items = append(items, caseResponse(v))
	}
	return items
}

func dispatchResponse(d domain.DispatchRecord) dto.DispatchResponse {
	return dto.DispatchResponse{
		ID:                   d.ID,
		ServiceCaseID:        d.ServiceCaseID,
		ScheduledServiceDate: d.ScheduledServiceDate,
		CreatedAt:            d.CreatedAt,
	}
}

func dispatchJobResponses(jobs []service.DispatchJob) []dto.DispatchJobResponse {
	items := make([]dto.DispatchJobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, dto.DispatchJobResponse{
			Dispatch:   dispatchResponse(j.Dispatch),
			CaseNumber: j.CaseNumber,
			Subject:    j.Subject,
			Status:     string(j.Status),
			Active:     j.Active,
		})
	}
	return items
}

func historyResponses(entries []domain.CaseHistory) []dto.CaseHistoryResponse {
	items := make([]dto.CaseHistoryResponse, 0, len(entries))
	for _, h := range entries {
		items = append(items, dto.CaseHistoryResponse{
			ID:          h.ID,
			ChangedByID: h.ChangedByID,
			ChangeType:  string(h.ChangeType),
			OldValue:    h.OldValue,
			NewValue:    h.NewValue,
			CreatedAt:   h.CreatedAt,
		})
	}
	return items
}

func feedbackResponse(view workflow.FeedbackView) dto.FeedbackResponse {
	f := view.Feedback
	return dto.FeedbackResponse{
		ID:            f.ID,
		ServiceCaseID: f.ServiceCaseID,
		CustomerName:  f.CustomerName,
		CustomerEmail: f.CustomerEmail,
		Rating:        f.Rating,
		RatingClass:   string(view.RatingClass),
		Comments:      f.Comments,
		SubmittedAt:   f.SubmittedAt,
	}
}

func feedbackResponses(views []workflow.FeedbackView) []dto.FeedbackResponse {
	items := make([]dto.FeedbackResponse, 0, len(views))
	for _, v := range views {
		items = append(items, feedbackResponse(v))
	}
	return items
}

func productResponse(view workflow.ProductView) dto.ProductResponse {
	p := view.Product
	return dto.ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		ProductID:      p.ProductID,
		SerialNumber:   p.SerialNumber,
		PurchaseDate:   p.PurchaseDate,
		WarrantyExpiry: p.WarrantyExpiry,
		WarrantyStatus: string(view.Warranty),
		AMCExpiry:      p.AMCExpiry,
		AMCStatus:      string(view.AMC),
		Defective:      p.Defective,
		OwnerContactID: p.OwnerContactID,
	}
}

func productResponses(views []workflow.ProductView) []dto.ProductResponse {
	items := make([]dto.ProductResponse, 0, len(views))
	for _, v := range views {
		items = append(items, productResponse(v))
	}
	return items
}
