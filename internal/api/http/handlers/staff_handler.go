package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-crm/internal/api/dto"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/service"
	apperrors "github.com/spec-kit/service-crm/pkg/util/errorutil"
)

// StaffHandler serves the internal workflow and dashboard endpoints.
type StaffHandler struct {
	cases      CaseOperations
	dashboards DashboardViews
}

// NewStaffHandler constructs handler.
func NewStaffHandler(cases CaseOperations, dashboards DashboardViews) *StaffHandler {
	return &StaffHandler{cases: cases, dashboards: dashboards}
}

// ChangeStatus POST /staff/cases/:id/status.
func (h *StaffHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.cases.ChangeStatus(c.UserContext(), actor, c.Params("id"), service.ChangeStatusInput{
		Target:   domain.CaseStatus(req.Status),
		Comments: req.Comments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(*view)})
}

// Dispatch POST /staff/cases/:id/dispatch.
func (h *StaffHandler) Dispatch(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.DispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.cases.DispatchEngineer(c.UserContext(), actor, c.Params("id"), service.DispatchInput{
		EngineerID:  req.EngineerID,
		ServiceDate: req.ServiceDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(*view)})
}

// GetCase GET /staff/cases/:id.
func (h *StaffHandler) GetCase(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.cases.GetCase(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponse(*view)})
}

// RecentCases GET /staff/cases.
func (h *StaffHandler) RecentCases(c *fiber.Ctx) error {
	filter := parseCaseListQuery(c)
	if c.Query("page_size") == "" {
		filter.Limit, filter.Offset = 0, 0
	}
	views, err := h.cases.ListRecentCases(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponses(views)})
}

// RecentFeedback GET /staff/feedback.
func (h *StaffHandler) RecentFeedback(c *fiber.Ctx) error {
	views, err := h.cases.ListRecentFeedback(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackResponses(views)})
}

// AgentDashboard GET /staff/dashboard/agent.
func (h *StaffHandler) AgentDashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	board, err := h.dashboards.AgentDashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentDashboardResponse{
		Metrics:        board.Metrics,
		RecentCases:    caseResponses(board.RecentCases),
		RecentFeedback: feedbackResponses(board.RecentFeedback),
		ProductStatus:  productResponses(board.ProductStatus),
	}})
}

// ManagerDashboard GET /staff/dashboard/manager.
func (h *StaffHandler) ManagerDashboard(c *fiber.Ctx) error {
	board, err := h.dashboards.ManagerDashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ManagerDashboardResponse{
		Metrics:             board.Metrics,
		EngineerPerformance: board.EngineerPerformance,
		RecentFeedback:      feedbackResponses(board.RecentFeedback),
	}})
}

// EngineerDashboard GET /staff/dashboard/engineer.
func (h *StaffHandler) EngineerDashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	board, err := h.dashboards.EngineerDashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EngineerDashboardResponse{
		Engineer:   board.Engineer,
		Jobs:       caseResponses(board.Jobs),
		Dispatches: dispatchJobResponses(board.Dispatches),
	}})
}

// EngineerJobs GET /staff/engineer/jobs.
func (h *StaffHandler) EngineerJobs(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	views, err := h.cases.ListEngineerJobs(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponses(views)})
}

// EngineerDispatches GET /staff/engineer/dispatches.
func (h *StaffHandler) EngineerDispatches(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	jobs, err := h.cases.ListEngineerDispatches(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dispatchJobResponses(jobs)})
}
