package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/service-crm/internal/cache"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/observability"
	"github.com/spec-kit/service-crm/internal/repository"
	"github.com/spec-kit/service-crm/internal/workflow"
)

const (
	defaultBatchSize  = 500
	defaultPartitions = 4
	recentLimit       = 10
)

// DashboardService builds the agent, manager and engineer dashboards.
type DashboardService struct {
	cases      repository.CaseRepository
	feedback   repository.FeedbackRepository
	dispatches repository.DispatchRepository
	products   repository.ProductRepository
	catalog    repository.CatalogRepository
	engineers  repository.EngineerRepository
	views      *CaseService
	cache      *cache.DashboardCache
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	batchSize  int
	partitions int
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	CaseRepo     repository.CaseRepository
	FeedbackRepo repository.FeedbackRepository
	DispatchRepo repository.DispatchRepository
	ProductRepo  repository.ProductRepository
	CatalogRepo  repository.CatalogRepository
	EngineerRepo repository.EngineerRepository
	Views        *CaseService
	Cache        *cache.DashboardCache
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
	BatchSize    int
	Partitions   int
}

// AgentDashboard is the service agent overview.
type AgentDashboard struct {
	Metrics        workflow.Metrics
	RecentCases    []workflow.CaseView
	RecentFeedback []workflow.FeedbackView
	ProductStatus  []workflow.ProductView
}

// ManagerDashboard is the manager overview.
type ManagerDashboard struct {
	Metrics             workflow.Metrics
	EngineerPerformance []workflow.EngineerPerformanceSnapshot
	RecentFeedback      []workflow.FeedbackView
}

// EngineerDashboard is one engineer's work queue.
type EngineerDashboard struct {
	Engineer   workflow.EngineerPerformanceSnapshot
	Jobs       []workflow.CaseView
	Dispatches []DispatchJob
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
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
	partitions := deps.Partitions
	if partitions <= 0 {
		partitions = defaultPartitions
	}
	return &DashboardService{
		cases:      deps.CaseRepo,
		feedback:   deps.FeedbackRepo,
		dispatches: deps.DispatchRepo,
		products:   deps.ProductRepo,
		catalog:    deps.CatalogRepo,
		engineers:  deps.EngineerRepo,
		views:      deps.Views,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
		batchSize:  batch,
		partitions: partitions,
	}
}

// AgentDashboard returns the system-wide metrics with the recent activity lists.
func (s *DashboardService) AgentDashboard(ctx context.Context, actor domain.Actor) (*AgentDashboard, error) {
	out := &AgentDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.globalMetrics(gctx)
		out.Metrics = m
		return err
	})
	g.Go(func() error {
		views, err := s.views.ListRecentCases(gctx, CaseListFilter{Limit: recentLimit})
		out.RecentCases = views
		return err
	})
	g.Go(func() error {
		views, err := s.views.ListRecentFeedback(gctx, recentLimit)
		out.RecentFeedback = views
		return err
	})
	g.Go(func() error {
		views, err := s.views.ListProductStatus(gctx, actor, ProductListFilter{Limit: 50})
		out.ProductStatus = views
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ManagerDashboard returns the system-wide metrics with engineer performance.
func (s *DashboardService) ManagerDashboard(ctx context.Context) (*ManagerDashboard, error) {
	out := &ManagerDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.globalMetrics(gctx)
		out.Metrics = m
		return err
	})
	g.Go(func() error {
		views, err := s.views.ListRecentFeedback(gctx, recentLimit)
		out.RecentFeedback = views
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.EngineerPerformance = sortedSnapshots(out.Metrics.PerEngineer)
	return out, nil
}

// EngineerDashboard returns the calling engineer's snapshot, jobs and dispatches.
func (s *DashboardService) EngineerDashboard(ctx context.Context, actor domain.Actor) (*EngineerDashboard, error) {
	engineer, err := s.engineers.GetByID(ctx, actor.Contact.ID)
	if err != nil {
		return nil, notFoundAs(err, "engineer")
	}

	out := &EngineerDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.engineerMetrics(gctx, *engineer)
		if err != nil {
			return err
		}
		out.Engineer = m.PerEngineer[engineer.ID]
		return nil
	})
	g.Go(func() error {
		jobs, err := s.views.ListEngineerJobs(gctx, actor)
		out.Jobs = jobs
		return err
	})
	g.Go(func() error {
		jobs, err := s.views.ListEngineerDispatches(gctx, actor)
		out.Dispatches = jobs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) globalMetrics(ctx context.Context) (workflow.Metrics, error) {
	return s.cached(ctx, "global", func(ctx context.Context) (workflow.Metrics, error) {
		var (
			cases      []domain.ServiceCase
			feedback   []domain.FeedbackRecord
			dispatches []domain.DispatchRecord
			products   []domain.RegisteredProduct
			engineers  []domain.Engineer
			catalog    []domain.CatalogProduct
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			cases, err = collect(gctx, s.batchSize, func(limit int, after *domain.ServiceCase) ([]domain.ServiceCase, error) {
				return s.cases.ListWithFilter(gctx, repository.CaseFilter{After: repository.CaseCursor(after), Limit: limit})
			})
			return err
		})
		g.Go(func() (err error) {
			feedback, err = collect(gctx, s.batchSize, func(limit int, after *domain.FeedbackRecord) ([]domain.FeedbackRecord, error) {
				return s.feedback.List(gctx, repository.FeedbackFilter{After: repository.FeedbackCursor(after), Limit: limit})
			})
			return err
		})
		g.Go(func() (err error) {
			dispatches, err = collect(gctx, s.batchSize, func(limit int, after *domain.DispatchRecord) ([]domain.DispatchRecord, error) {
				return s.dispatches.List(gctx, repository.DispatchFilter{After: repository.DispatchCursor(after), Limit: limit})
			})
			return err
		})
		g.Go(func() (err error) {
			products, err = collect(gctx, s.batchSize, func(limit int, after *domain.RegisteredProduct) ([]domain.RegisteredProduct, error) {
				return s.products.List(gctx, repository.ProductFilter{After: repository.ProductCursor(after), Limit: limit})
			})
			return err
		})
		g.Go(func() (err error) {
			engineers, err = collect(gctx, s.batchSize, func(limit int, after *domain.Engineer) ([]domain.Engineer, error) {
				return s.engineers.List(gctx, repository.EngineerFilter{After: repository.EngineerCursor(after), Limit: limit})
			})
			return err
		})
		g.Go(func() (err error) {
			catalog, err = s.catalog.List(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return workflow.Metrics{}, err
		}
		return s.aggregate(cases, feedback, dispatches, workflow.AggregateOptions{
			Engineers: engineers,
			Products:  products,
			Catalog:   catalog,
		}), nil
	})
}

func (s *DashboardService) engineerMetrics(ctx context.Context, engineer domain.Engineer) (workflow.Metrics, error) {
	return s.cached(ctx, "engineer:"+engineer.ID, func(ctx context.Context) (workflow.Metrics, error) {
		engineerID := engineer.ID
		cases, err := collect(ctx, s.batchSize, func(limit int, after *domain.ServiceCase) ([]domain.ServiceCase, error) {
			return s.cases.ListWithFilter(ctx, repository.CaseFilter{AssignedEngineerID: &engineerID, After: repository.CaseCursor(after), Limit: limit})
		})
		if err != nil {
			return workflow.Metrics{}, err
		}
		var (
			feedback   []domain.FeedbackRecord
			dispatches []domain.DispatchRecord
		)
		if len(cases) > 0 {
			ids := make([]string, 0, len(cases))
			for _, c := range cases {
				ids = append(ids, c.ID)
			}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				feedback, err = collect(gctx, s.batchSize, func(limit int, after *domain.FeedbackRecord) ([]domain.FeedbackRecord, error) {
					return s.feedback.List(gctx, repository.FeedbackFilter{CaseIDs: ids, After: repository.FeedbackCursor(after), Limit: limit})
				})
				return err
			})
			g.Go(func() (err error) {
				dispatches, err = collect(gctx, s.batchSize, func(limit int, after *domain.DispatchRecord) ([]domain.DispatchRecord, error) {
					return s.dispatches.List(gctx, repository.DispatchFilter{CaseIDs: ids, After: repository.DispatchCursor(after), Limit: limit})
				})
				return err
			})
			if err := g.Wait(); err != nil {
				return workflow.Metrics{}, err
			}
		}
		return s.aggregate(cases, feedback, dispatches, workflow.AggregateOptions{
			Engineers: []domain.Engineer{engineer},
		}), nil
	})
}

// aggregate splits the records into partitions, accumulates them in parallel
// and merges the partials.
func (s *DashboardService) aggregate(cases []domain.ServiceCase, feedback []domain.FeedbackRecord, dispatches []domain.DispatchRecord, opts workflow.AggregateOptions) workflow.Metrics {
	now := s.now()
	opts.Now = now
	partials := make([]*workflow.Partial, s.partitions)
	var g errgroup.Group
	for i := range partials {
		partials[i] = workflow.NewPartial(now)
		g.Go(func() error {
			partials[i].Accumulate(
				chunk(cases, i, s.partitions),
				chunk(feedback, i, s.partitions),
				chunk(dispatches, i, s.partitions),
			)
			return nil
		})
	}
	_ = g.Wait()
	total := partials[0]
	for _, p := range partials[1:] {
		total.Merge(p)
	}
	return total.Finish(opts)
}

// cached serves scope from the dashboard cache, computing and storing it on a miss.
// The result is stored under the generation observed before computing, so a
// command that invalidates meanwhile is never masked. Cache errors degrade to
// a recompute.
func (s *DashboardService) cached(ctx context.Context, scope string, compute func(context.Context) (workflow.Metrics, error)) (workflow.Metrics, error) {
	store := false
	var version cache.Version
	if s.cache.Enabled() {
		var m workflow.Metrics
		v, hit, err := s.cache.Get(ctx, scope, &m)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("scope", scope), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(hit)
		if hit {
			return m, nil
		}
		version, store = v, err == nil
	}
	m, err := compute(ctx)
	if err != nil {
		return workflow.Metrics{}, err
	}
	if !store {
		return m, nil
	}
	if err := s.cache.Set(ctx, scope, version, m); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("scope", scope), zap.Error(err))
	}
	return m, nil
}

// collect pages through a listing until a short page is returned. fetch gets
// the last row of the previous page, nil at first, and seeks past it.
func collect[T any](ctx context.Context, batch int, fetch func(limit int, after *T) ([]T, error)) ([]T, error) {
	var all []T
	var after *T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(batch, after)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < batch {
			return all, nil
		}
		after = &page[len(page)-1]
	}
}

// chunk returns the i-th of n contiguous slices of items.
func chunk[T any](items []T, i, n int) []T {
	size := (len(items) + n - 1) / n
	start := i * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedSnapshots(perEngineer map[string]workflow.EngineerPerformanceSnapshot) []workflow.EngineerPerformanceSnapshot {
	out := make([]workflow.EngineerPerformanceSnapshot, 0, len(perEngineer))
	for _, snap := range perEngineer {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EngineerID < out[j].EngineerID
	})
	return out
}
