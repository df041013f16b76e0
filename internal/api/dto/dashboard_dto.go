package dto

import "github.com/spec-kit/service-crm/internal/workflow"

// AgentDashboardResponse is the service agent overview.
type AgentDashboardResponse struct {
	Metrics        workflow.Metrics   `json:"metrics"`
	RecentCases    []CaseResponse     `json:"recent_cases"`
	RecentFeedback []FeedbackResponse `json:"recent_feedback"`
	ProductStatus  []ProductResponse  `json:"product_status"`
}

// ManagerDashboardResponse is the manager overview.
type ManagerDashboardResponse struct {
	Metrics             workflow.Metrics                       `json:"metrics"`
	EngineerPerformance []workflow.EngineerPerformanceSnapshot `json:"engineer_performance"`
	RecentFeedback      []FeedbackResponse                     `json:"recent_feedback"`
}

// EngineerDashboardResponse is one engineer's work queue.
type EngineerDashboardResponse struct {
	Engineer   workflow.EngineerPerformanceSnapshot `json:"engineer"`
	Jobs       []CaseResponse                       `json:"jobs"`
	Dispatches []DispatchJobResponse                `json:"dispatches"`
}
