package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/service-crm/internal/cache"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/events"
	"github.com/spec-kit/service-crm/internal/observability"
	"github.com/spec-kit/service-crm/internal/repository"
	"github.com/spec-kit/service-crm/internal/workflow"
	apperrors "github.com/spec-kit/service-crm/pkg/util/errorutil"
)

// CaseService runs the case commands: it validates input, applies the
// workflow rules, persists through the repositories and publishes events.
type CaseService struct {
	cases      repository.CaseRepository
	history    repository.CaseHistoryRepository
	dispatches repository.DispatchRepository
	feedback   repository.FeedbackRepository
	products   repository.ProductRepository
	catalog    repository.CatalogRepository
	engineers  repository.EngineerRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	cache      *cache.DashboardCache
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	batchSize  int
}

// CaseDependencies bundles collaborators for the case service. Transactor
// groups the writes of one command; without it they run unguarded. BatchSize
// is the page size for unbounded engineer listings.
type CaseDependencies struct {
	CaseRepo     repository.CaseRepository
	HistoryRepo  repository.CaseHistoryRepository
	DispatchRepo repository.DispatchRepository
	FeedbackRepo repository.FeedbackRepository
	ProductRepo  repository.ProductRepository
	CatalogRepo  repository.CatalogRepository
	EngineerRepo repository.EngineerRepository
	Transactor   repository.Transactor
	Dispatcher   events.Dispatcher
	Cache        *cache.DashboardCache
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
	BatchSize    int
}

// SubmitRequestInput is a customer service request.
type SubmitRequestInput struct {
	Subject             string              `validate:"required,max=255"`
	RegisteredProductID string              `validate:"required"`
	Description         string              `validate:"max=32000"`
	Priority            domain.CasePriority `validate:"omitempty,oneof=Low Medium High"`
}

// ChangeStatusInput moves a case along the workflow.
type ChangeStatusInput struct {
	Target   domain.CaseStatus `validate:"required"`
	Comments string            `validate:"max=32000"`
}

// DispatchInput assigns an engineer and schedules a visit.
type DispatchInput struct {
	EngineerID  string    `validate:"required"`
	ServiceDate time.Time `validate:"required"`
}

// FeedbackInput is a customer rating of a finished case.
type FeedbackInput struct {
	CaseID        string `validate:"required"`
	CustomerName  string `validate:"required,max=255"`
	CustomerEmail string `validate:"required,email"`
	Rating        int    `validate:"required,min=1,max=5"`
	Comments      string `validate:"max=32000"`
}

// RegisterProductInput registers a purchased product to a contact.
type RegisterProductInput struct {
	Name           string    `validate:"required,max=255"`
	ProductID      string    `validate:"required"`
	SerialNumber   string    `validate:"required,max=120"`
	PurchaseDate   time.Time `validate:"required"`
	WarrantyExpiry *time.Time
	AMCExpiry      *time.Time
	Defective      bool
	OwnerContactID string `validate:"required"`
}

// CaseListFilter narrows case listings.
type CaseListFilter struct {
	Statuses   []domain.CaseStatus
	Priorities []domain.CasePriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	DefectiveOnly bool
	Limit         int
	Offset        int
}

// DispatchJob is a dispatch record together with the case it belongs to.
type DispatchJob struct {
	Dispatch   domain.DispatchRecord
	CaseNumber string
	Subject    string
	Status     domain.CaseStatus
	Active     bool
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		history:    deps.HistoryRepo,
		dispatches: deps.DispatchRepo,
		feedback:   deps.FeedbackRepo,
		products:   deps.ProductRepo,
		catalog:    deps.CatalogRepo,
		engineers:  deps.EngineerRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
		batchSize:  batch,
	}
}

// SubmitRequest opens a new case. The SLA deadline is fixed here and never
// recomputed afterwards.
func (s *CaseService) SubmitRequest(ctx context.Context, actor domain.Actor, input SubmitRequestInput) (*workflow.CaseView, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.CasePriorityMedium
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, input.RegisteredProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("registered product not found",
				map[string]any{"registered_product_id": "unknown"})
		}
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && product.OwnerContactID != actor.Contact.ID {
		return nil, apperrors.NewForbidden("product is registered to another contact")
	}

	createdAt := s.now().UTC()
	deadline := workflow.ComputeDeadline(createdAt, input.Priority)
	contactID := product.OwnerContactID
	if actor.Role == domain.RoleCustomer {
		contactID = actor.Contact.ID
	}
	c := &domain.ServiceCase{
		CaseNumber:      generateCaseNumber(),
		ContactID:       contactID,
		Subject:         input.Subject,
		Description:     input.Description,
		Status:          domain.CaseStatusNew,
		Priority:        input.Priority,
		LinkedProductID: &product.ID,
		CreatedAt:       createdAt,
		SLADeadline:     &deadline,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: c.ID,
		Actor:  actorOf(actor),
		Payload: events.CaseCreatedPayload{
			CaseNumber:  c.CaseNumber,
			Subject:     c.Subject,
			Priority:    c.Priority,
			SLADeadline: c.SLADeadline,
		},
	})
	view := workflow.DecorateCase(*c, nil, createdAt)
	return &view, nil
}

// ChangeStatus moves a case to target. Engineers may only move cases assigned
// to them and customers may not move cases at all.
func (s *CaseService) ChangeStatus(ctx context.Context, actor domain.Actor, caseID string, input ChangeStatusInput) (*workflow.CaseView, error) {
	input.Comments = strings.TrimSpace(input.Comments)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := canOperate(actor, current); err != nil {
		return nil, err
	}

	updated, err := workflow.ApplyTransition(*current, input.Target, input.Comments)
	if err != nil {
		s.metrics.RecordTransition(string(current.Status), string(input.Target), transitionOutcome(err))
		return nil, transitionFailure(err)
	}
	err = s.inTx(ctx, func(w repository.CaseWriters) error {
		if err := w.Cases.Update(ctx, &updated, current.Status); err != nil {
			return staleUpdate(ctx, w.Cases, current, err)
		}
		return recordStatusChange(ctx, w.History, actor, &updated, current.Status, input.Comments)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(string(current.Status), string(updated.Status), "ok")
	s.afterMutation(ctx)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseStatusChanged,
		CaseID: updated.ID,
		Actor:  actorOf(actor),
		Payload: events.CaseStatusChangedPayload{
			CaseNumber: updated.CaseNumber,
			OldStatus:  current.Status,
			NewStatus:  updated.Status,
			Comment:    input.Comments,
		},
	})
	return s.caseView(ctx, updated)
}

// DispatchEngineer assigns an engineer and schedules a service visit. A New
// case moves to Engineer Dispatched; a case already dispatched is rescheduled
// and the newest dispatch record becomes the active one.
func (s *CaseService) DispatchEngineer(ctx context.Context, actor domain.Actor, caseID string, input DispatchInput) (*workflow.CaseView, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAgent && actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("only agents and managers dispatch engineers")
	}

	engineer, err := s.engineers.GetByID(ctx, input.EngineerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("engineer not found", map[string]any{"engineer_id": "unknown"})
		}
		return nil, err
	}
	if !engineer.Active {
		return nil, apperrors.NewValidationError("engineer is not active", map[string]any{"engineer_id": "inactive"})
	}

	current, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	updated := *current
	previousEngineer := current.AssignedEngineerID
	updated.AssignedEngineerID = &engineer.ID
	switch current.Status {
	case domain.CaseStatusNew:
		updated, err = workflow.ApplyTransition(updated, domain.CaseStatusEngineerDispatched, "")
		if err != nil {
			s.metrics.RecordTransition(string(current.Status), string(domain.CaseStatusEngineerDispatched), transitionOutcome(err))
			return nil, transitionFailure(err)
		}
	case domain.CaseStatusEngineerDispatched:
	default:
		err := &workflow.TransitionError{From: current.Status, To: domain.CaseStatusEngineerDispatched, Err: workflow.ErrInvalidTransition}
		s.metrics.RecordTransition(string(current.Status), string(domain.CaseStatusEngineerDispatched), transitionOutcome(err))
		return nil, transitionFailure(err)
	}

	dispatch := &domain.DispatchRecord{
		ServiceCaseID:        updated.ID,
		ScheduledServiceDate: input.ServiceDate.UTC(),
	}
	err = s.inTx(ctx, func(w repository.CaseWriters) error {
		if err := w.Cases.Update(ctx, &updated, current.Status); err != nil {
			return staleUpdate(ctx, w.Cases, current, err)
		}
		if updated.Status != current.Status {
			if err := recordStatusChange(ctx, w.History, actor, &updated, current.Status, ""); err != nil {
				return err
			}
		}
		if previousEngineer == nil || *previousEngineer != engineer.ID {
			var oldValue map[string]any
			if previousEngineer != nil {
				oldValue = map[string]any{"engineer_id": *previousEngineer}
			}
			if err := recordHistory(ctx, w.History, actor, updated.ID, domain.ChangeTypeAssignee, oldValue,
				map[string]any{"engineer_id": engineer.ID}); err != nil {
				return err
			}
		}
		if err := w.Dispatches.Create(ctx, dispatch); err != nil {
			return err
		}
		return recordHistory(ctx, w.History, actor, updated.ID, domain.ChangeTypeDispatch, nil,
			map[string]any{"dispatch_id": dispatch.ID, "scheduled_service_date": dispatch.ScheduledServiceDate.Format(time.RFC3339)})
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != current.Status {
		s.metrics.RecordTransition(string(current.Status), string(updated.Status), "ok")
	}

	s.afterMutation(ctx)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventEngineerDispatched,
		CaseID: updated.ID,
		Actor:  actorOf(actor),
		Payload: events.EngineerDispatchedPayload{
			CaseNumber:           updated.CaseNumber,
			EngineerID:           engineer.ID,
			DispatchID:           dispatch.ID,
			ScheduledServiceDate: dispatch.ScheduledServiceDate,
		},
	})
	return s.caseView(ctx, updated)
}

// RecordFeedback stores a rating for a Resolved or Closed case.
func (s *CaseService) RecordFeedback(ctx context.Context, actor domain.Actor, input FeedbackInput) (*workflow.FeedbackView, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	input.Comments = strings.TrimSpace(input.Comments)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	c, err := s.loadCase(ctx, input.CaseID)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	if !c.Status.IsTerminal() {
		return nil, apperrors.NewConflict(apperrors.CodeFeedbackNotAllowed,
			"feedback can only be given once a case is resolved or closed",
			map[string]any{"status": string(c.Status)})
	}

	record := &domain.FeedbackRecord{
		ServiceCaseID: c.ID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Rating:        input.Rating,
		Comments:      input.Comments,
	}
	if err := s.feedback.Create(ctx, record); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventFeedbackRecorded,
		CaseID: c.ID,
		Actor:  actorOf(actor),
		Payload: events.FeedbackRecordedPayload{
			FeedbackID: record.ID,
			Rating:     record.Rating,
		},
	})
	view := workflow.DecorateFeedback(*record)
	return &view, nil
}

// RegisterProduct records a purchased product. Customers always register to
// themselves; staff must name the owning contact.
func (s *CaseService) RegisterProduct(ctx context.Context, actor domain.Actor, input RegisterProductInput) (*workflow.ProductView, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.SerialNumber = strings.TrimSpace(input.SerialNumber)
	if actor.Role == domain.RoleCustomer {
		if input.OwnerContactID != "" && input.OwnerContactID != actor.Contact.ID {
			return nil, apperrors.NewForbidden("customers register products to themselves")
		}
		input.OwnerContactID = actor.Contact.ID
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	details := map[string]any{}
	if input.WarrantyExpiry != nil && input.WarrantyExpiry.Before(input.PurchaseDate) {
		details["warranty_expiry"] = "before purchase_date"
	}
	if input.AMCExpiry != nil && input.AMCExpiry.Before(input.PurchaseDate) {
		details["amc_expiry"] = "before purchase_date"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("expiry precedes purchase", details)
	}

	if _, err := s.catalog.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("catalog product not found", map[string]any{"product_id": "unknown"})
		}
		return nil, err
	}

	product := &domain.RegisteredProduct{
		Name:           input.Name,
		ProductID:      input.ProductID,
		SerialNumber:   input.SerialNumber,
		PurchaseDate:   input.PurchaseDate.UTC(),
		WarrantyExpiry: utcPtr(input.WarrantyExpiry),
		AMCExpiry:      utcPtr(input.AMCExpiry),
		Defective:      input.Defective,
		OwnerContactID: input.OwnerContactID,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	s.publishEvent(ctx, events.Event{
		Type:  events.EventProductRegistered,
		Actor: actorOf(actor),
		Payload: events.ProductRegisteredPayload{
			RegisteredProductID: product.ID,
			Name:                product.Name,
			SerialNumber:        product.SerialNumber,
		},
	})
	view := workflow.DecorateProduct(*product, s.now())
	return &view, nil
}

// ListCustomerCases returns the actor's own cases, newest first.
func (s *CaseService) ListCustomerCases(ctx context.Context, actor domain.Actor, filter CaseListFilter) ([]workflow.CaseView, error) {
	contactID := actor.Contact.ID
	return s.listCases(ctx, repository.CaseFilter{
		ContactID:  &contactID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// ListRecentCases returns the newest cases across all contacts.
func (s *CaseService) ListRecentCases(ctx context.Context, filter CaseListFilter) ([]workflow.CaseView, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	return s.listCases(ctx, repository.CaseFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      limit,
		Offset:     filter.Offset,
	})
}

// ListEngineerJobs returns every open case assigned to the engineer.
func (s *CaseService) ListEngineerJobs(ctx context.Context, actor domain.Actor) ([]workflow.CaseView, error) {
	cases, err := s.engineerCases(ctx, actor.Contact.ID)
	if err != nil {
		return nil, err
	}
	return s.decorateCases(ctx, cases)
}

// ListEngineerDispatches returns every dispatch scheduled for the engineer's
// open cases, flagging the active one per case.
func (s *CaseService) ListEngineerDispatches(ctx context.Context, actor domain.Actor) ([]DispatchJob, error) {
	cases, err := s.engineerCases(ctx, actor.Contact.ID)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return []DispatchJob{}, nil
	}
	byID := make(map[string]domain.ServiceCase, len(cases))
	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	records, err := s.dispatchesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	jobs := make([]DispatchJob, 0, len(records))
	for _, d := range records {
		c := byID[d.ServiceCaseID]
		active, _ := workflow.ActiveDispatch(c.ID, records)
		jobs = append(jobs, DispatchJob{
			Dispatch:   d,
			CaseNumber: c.CaseNumber,
			Subject:    c.Subject,
			Status:     c.Status,
			Active:     active.ID == d.ID,
		})
	}
	return jobs, nil
}

func (s *CaseService) engineerCases(ctx context.Context, engineerID string) ([]domain.ServiceCase, error) {
	return collect(ctx, s.batchSize, func(limit int, after *domain.ServiceCase) ([]domain.ServiceCase, error) {
		return s.cases.ListWithFilter(ctx, repository.CaseFilter{
			AssignedEngineerID: &engineerID,
			Statuses:           openStatuses(),
			After:              repository.CaseCursor(after),
			Limit:              limit,
		})
	})
}

// dispatchesFor reads every dispatch of the given cases.
func (s *CaseService) dispatchesFor(ctx context.Context, caseIDs []string) ([]domain.DispatchRecord, error) {
	return collect(ctx, s.batchSize, func(limit int, after *domain.DispatchRecord) ([]domain.DispatchRecord, error) {
		return s.dispatches.List(ctx, repository.DispatchFilter{
			CaseIDs: caseIDs,
			After:   repository.DispatchCursor(after),
			Limit:   limit,
		})
	})
}

// GetCase returns one case the actor may see.
func (s *CaseService) GetCase(ctx context.Context, actor domain.Actor, caseID string) (*workflow.CaseView, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	return s.caseView(ctx, *c)
}

// ListCaseHistory returns the audit trail of a case, oldest first.
func (s *CaseService) ListCaseHistory(ctx context.Context, actor domain.Actor, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	return s.history.ListByCase(ctx, c.ID, limit, offset)
}

// ListRecentFeedback returns the newest feedback with rating classes.
func (s *CaseService) ListRecentFeedback(ctx context.Context, limit int) ([]workflow.FeedbackView, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := s.feedback.List(ctx, repository.FeedbackFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	views := make([]workflow.FeedbackView, 0, len(records))
	for _, f := range records {
		views = append(views, workflow.DecorateFeedback(f))
	}
	return views, nil
}

// ListProductStatus returns registered products with their coverage state.
// Customers only see their own products.
func (s *CaseService) ListProductStatus(ctx context.Context, actor domain.Actor, filter ProductListFilter) ([]workflow.ProductView, error) {
	repoFilter := repository.ProductFilter{
		DefectiveOnly: filter.DefectiveOnly,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	if actor.Role == domain.RoleCustomer {
		owner := actor.Contact.ID
		repoFilter.OwnerContactID = &owner
	}
	products, err := s.products.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]workflow.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, workflow.DecorateProduct(p, now))
	}
	return views, nil
}

// ListCatalog returns the products that can be registered.
func (s *CaseService) ListCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	return s.catalog.List(ctx)
}

func (s *CaseService) listCases(ctx context.Context, filter repository.CaseFilter) ([]workflow.CaseView, error) {
	cases, err := s.cases.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.decorateCases(ctx, cases)
}

func (s *CaseService) decorateCases(ctx context.Context, cases []domain.ServiceCase) ([]workflow.CaseView, error) {
	if len(cases) == 0 {
		return []workflow.CaseView{}, nil
	}
	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	dispatches, err := s.dispatchesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]workflow.CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, workflow.DecorateCase(c, dispatches, now))
	}
	return views, nil
}

func (s *CaseService) caseView(ctx context.Context, c domain.ServiceCase) (*workflow.CaseView, error) {
	dispatches, err := s.dispatchesFor(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	view := workflow.DecorateCase(c, dispatches, s.now())
	return &view, nil
}

func (s *CaseService) loadCase(ctx context.Context, caseID string) (*domain.ServiceCase, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, apperrors.NewValidationError("case id is required", map[string]any{"case_id": "required"})
	}
	lookup := s.cases.GetByID
	if strings.HasPrefix(caseID, caseNumberPrefix) {
		lookup = s.cases.GetByCaseNumber
	}
	c, err := lookup(ctx, caseID)
	if err != nil {
		return nil, notFoundAs(err, "service case")
	}
	return c, nil
}

func recordStatusChange(ctx context.Context, history repository.CaseHistoryRepository, actor domain.Actor, c *domain.ServiceCase, old domain.CaseStatus, comment string) error {
	newValue := map[string]any{"status": string(c.Status)}
	if comment != "" {
		newValue["comment"] = comment
	}
	return recordHistory(ctx, history, actor, c.ID, domain.ChangeTypeStatus, map[string]any{"status": string(old)}, newValue)
}

func recordHistory(ctx context.Context, history repository.CaseHistoryRepository, actor domain.Actor, caseID string, change domain.CaseChangeType, oldValue, newValue map[string]any) error {
	if history == nil {
		return nil
	}
	var changedBy *string
	if actor.Contact.ID != "" {
		id := actor.Contact.ID
		changedBy = &id
	}
	return history.Create(ctx, &domain.CaseHistory{
		CaseID:      caseID,
		ChangedByID: changedBy,
		ChangeType:  change,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

// inTx runs fn over the case writers, inside one transaction when a
// Transactor is configured.
func (s *CaseService) inTx(ctx context.Context, fn func(repository.CaseWriters) error) error {
	if s.tx == nil {
		return fn(repository.CaseWriters{Cases: s.cases, History: s.history, Dispatches: s.dispatches})
	}
	return s.tx.InTx(ctx, fn)
}

// afterMutation drops cached dashboards. A cache failure never fails the command.
func (s *CaseService) afterMutation(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func canOperate(actor domain.Actor, c *domain.ServiceCase) error {
	switch actor.Role {
	case domain.RoleAgent, domain.RoleManager:
		return nil
	case domain.RoleEngineer:
		if c.AssignedEngineerID != nil && *c.AssignedEngineerID == actor.Contact.ID {
			return nil
		}
		return apperrors.NewForbidden("case is not assigned to this engineer")
	default:
		return apperrors.NewForbidden("customers cannot change case status")
	}
}

func canView(actor domain.Actor, c *domain.ServiceCase) error {
	if actor.Role == domain.RoleCustomer && c.ContactID != actor.Contact.ID {
		return apperrors.NewNotFound("service case", nil)
	}
	if actor.Role == domain.RoleEngineer {
		return canOperate(actor, c)
	}
	return nil
}

// transitionFailure maps workflow errors to API errors, keeping the cause.
func transitionFailure(err error) error {
	details := map[string]any{}
	var te *workflow.TransitionError
	if errors.As(err, &te) {
		details["from"] = string(te.From)
		details["to"] = string(te.To)
	}
	de := &apperrors.DomainError{Details: details, Err: err}
	switch {
	case errors.Is(err, workflow.ErrMissingComment):
		de.Code, de.HTTPStatus = apperrors.CodeMissingComment, http.StatusUnprocessableEntity
		de.Message = "comments are required to resolve a case"
	case errors.Is(err, workflow.ErrNoOpTransition):
		de.Code, de.HTTPStatus = apperrors.CodeNoOpTransition, http.StatusConflict
		de.Message = "case already has this status"
	case errors.Is(err, workflow.ErrEngineerRequired):
		de.Code, de.HTTPStatus = apperrors.CodeValidation, http.StatusBadRequest
		de.Message = "an engineer must be assigned before dispatch"
		details["assigned_engineer_id"] = "required"
	case errors.Is(err, workflow.ErrInvalidTransition):
		de.Code, de.HTTPStatus = apperrors.CodeInvalidTransition, http.StatusConflict
		de.Message = fmt.Sprintf("cannot move case from %s to %s", details["from"], details["to"])
	default:
		return err
	}
	return de
}

func transitionOutcome(err error) string {
	var de *apperrors.DomainError
	if errors.As(transitionFailure(err), &de) {
		return de.Code
	}
	return apperrors.CodeInternal
}

// staleUpdate explains a guarded update that matched no row: the case is gone
// or another command moved it out of the status the caller read.
func staleUpdate(ctx context.Context, cases repository.CaseRepository, read *domain.ServiceCase, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	latest, lerr := cases.GetByID(ctx, read.ID)
	if lerr != nil {
		return notFoundAs(lerr, "service case")
	}
	return apperrors.NewConflict(apperrors.CodeConflict, "case was changed by another request",
		map[string]any{"expected_status": string(read.Status), "status": string(latest.Status)})
}

func notFoundAs(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		nf := apperrors.NewNotFound(resource, nil).(*apperrors.DomainError)
		nf.Err = err
		return nf
	}
	return err
}

func openStatuses() []domain.CaseStatus {
	open := make([]domain.CaseStatus, 0, len(domain.CaseStatuses))
	for _, st := range domain.CaseStatuses {
		if !st.IsTerminal() {
			open = append(open, st)
		}
	}
	return open
}

const caseNumberPrefix = "CASE-"

func generateCaseNumber() string {
	return caseNumberPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorOf(actor domain.Actor) events.Actor {
	return events.Actor{ID: actor.Contact.ID, Role: actor.Role}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
