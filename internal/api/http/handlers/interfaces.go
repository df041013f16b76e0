package handlers

import (
	"context"

	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/service"
	"github.com/spec-kit/service-crm/internal/workflow"
)

// CaseOperations is the case workflow surface the handlers drive.
// *service.CaseService implements it.
type CaseOperations interface {
	SubmitRequest(ctx context.Context, actor domain.Actor, input service.SubmitRequestInput) (*workflow.CaseView, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, caseID string, input service.ChangeStatusInput) (*workflow.CaseView, error)
	DispatchEngineer(ctx context.Context, actor domain.Actor, caseID string, input service.DispatchInput) (*workflow.CaseView, error)
	RecordFeedback(ctx context.Context, actor domain.Actor, input service.FeedbackInput) (*workflow.FeedbackView, error)
	RegisterProduct(ctx context.Context, actor domain.Actor, input service.RegisterProductInput) (*workflow.ProductView, error)

	ListCustomerCases(ctx context.Context, actor domain.Actor, filter service.CaseListFilter) ([]workflow.CaseView, error)
	ListRecentCases(ctx context.Context, filter service.CaseListFilter) ([]workflow.CaseView, error)
	ListEngineerJobs(ctx context.Context, actor domain.Actor) ([]workflow.CaseView, error)
	ListEngineerDispatches(ctx context.Context, actor domain.Actor) ([]service.DispatchJob, error)
	GetCase(ctx context.Context, actor domain.Actor, caseID string) (*workflow.CaseView, error)
	ListCaseHistory(ctx context.Context, actor domain.Actor, caseID string, limit, offset int) ([]domain.CaseHistory, error)
	ListRecentFeedback(ctx context.Context, limit int) ([]workflow.FeedbackView, error)
	ListProductStatus(ctx context.Context, actor domain.Actor, filter service.ProductListFilter) ([]workflow.ProductView, error)
	ListCatalog(ctx context.Context) ([]domain.CatalogProduct, error)
}

// DashboardViews builds the role dashboards. *service.DashboardService implements it.
type DashboardViews interface {
	AgentDashboard(ctx context.Context, actor domain.Actor) (*service.AgentDashboard, error)
	ManagerDashboard(ctx context.Context) (*service.ManagerDashboard, error)
	EngineerDashboard(ctx context.Context, actor domain.Actor) (*service.EngineerDashboard, error)
}

var (
	_ CaseOperations = (*service.CaseService)(nil)
	_ DashboardViews = (*service.DashboardService)(nil)
)
