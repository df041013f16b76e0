package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-crm/internal/api/dto"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/service"
	apperrors "github.com/spec-kit/service-crm/pkg/util/errorutil"
)

// ContactDirectory looks up stored contact details.
type ContactDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
}

// PortalHandler serves the customer portal: requests, products and feedback.
type PortalHandler struct {
	cases    CaseOperations
	contacts ContactDirectory
}

// NewPortalHandler constructs handler. contacts may be nil, in which case the
// profile is served from the token claims alone.
func NewPortalHandler(cases CaseOperations, contacts ContactDirectory) *PortalHandler {
	return &PortalHandler{cases: cases, contacts: contacts}
}

// Profile GET /me. Prefill data for the portal forms; a stored contact record
// overrides the token claims.
func (h *PortalHandler) Profile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	profile := dto.ProfileResponse{
		ContactID: actor.Contact.ID,
		Name:      actor.Contact.Name,
		Email:     actor.Contact.Email,
		Role:      string(actor.Role),
	}
	if h.contacts != nil {
		stored, err := h.contacts.GetByID(c.UserContext(), actor.Contact.ID)
		switch {
		case err == nil:
			profile.Name, profile.Email = stored.Name, stored.Email
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}
	}
	if profile.Name == "" {
		profile.Name = "Customer"
	}
	profile.Greeting = greetingFor(time.Now().Hour())
	return c.JSON(fiber.Map{"data": profile})
}

// Catalog GET /catalog.
func (h *PortalHandler) Catalog(c *fiber.Ctx) error {
	products, err := h.cases.ListCatalog(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CatalogProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, dto.CatalogProductResponse{ID: p.ID, Name: p.Name, Code: p.Code})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListProducts GET /products.
func (h *PortalHandler) ListProducts(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := service.ProductListFilter{DefectiveOnly: c.QueryBool("defective")}
	filter.Limit, filter.Offset = parsePage(c)
	views, err := h.cases.ListProductStatus(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": productResponses(views)})
}

// RegisterProduct POST /products.
func (h *PortalHandler) RegisterProduct(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.RegisterProductRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.cases.RegisterProduct(c.UserContext(), actor, service.RegisterProductInput{
		Name:           req.Name,
		ProductID:      req.ProductID,
		SerialNumber:   req.SerialNumber,
		PurchaseDate:   req.PurchaseDate,
		WarrantyExpiry: req.WarrantyExpiry,
		AMCExpiry:      req.AMCExpiry,
		Defective:      req.Defective,
		OwnerContactID: req.OwnerContactID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": productResponse(*view)})
}

// ListCases GET /cases. The caller's own cases.
func (h *PortalHandler) ListCases(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	views, err := h.cases.ListCustomerCases(c.UserContext(), actor, parseCaseListQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseResponses(views)})
}

// SubmitCase POST /cases.
func (h *PortalHandler) SubmitCase(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SubmitCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.cases.SubmitRequest(c.UserContext(), actor, service.SubmitRequestInput{
		Subject:             req.Subject,
		RegisteredProductID: req.RegisteredProductID,
		Description:         req.Description,
		Priority:            domain.CasePriority(strings.TrimSpace(req.Priority)),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": caseResponse(*view)})
}

// GetCase GET /cases/:id.
func (h *PortalHandler) GetCase(c *fiber.Ctx) error {
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

// CaseHistory GET /cases/:id/history.
func (h *PortalHandler) CaseHistory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	entries, err := h.cases.ListCaseHistory(c.UserContext(), actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// SubmitFeedback POST /cases/:id/feedback.
func (h *PortalHandler) SubmitFeedback(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.FeedbackInput{
		CaseID:        c.Params("id"),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Rating:        req.Rating,
		Comments:      req.Comments,
	}
	if input.CustomerName == "" {
		input.CustomerName = actor.Contact.Name
	}
	if input.CustomerEmail == "" {
		input.CustomerEmail = actor.Contact.Email
	}
	view, err := h.cases.RecordFeedback(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": feedbackResponse(*view)})
}
