package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-crm/internal/cache"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/repository"
	"github.com/spec-kit/service-crm/internal/workflow"
)

func seedDashboardStore(store *memStore) {
	eng := func(id string) *string { return &id }
	deadline := func(h int) *time.Time { t := fixedNow.Add(time.Duration(h) * time.Hour); return &t }
	add := func(c domain.ServiceCase) {
		c.CreatedAt = fixedNow.Add(-time.Duration(len(store.cases)) * time.Hour)
		store.cases[c.ID] = c
	}
	add(domain.ServiceCase{ID: "c1", Status: domain.CaseStatusNew, Priority: domain.CasePriorityHigh, SLADeadline: deadline(-2)})
	add(domain.ServiceCase{ID: "c2", Status: domain.CaseStatusEngineerDispatched, Priority: domain.CasePriorityMedium, AssignedEngineerID: eng("eng-1"), SLADeadline: deadline(-1)})
	add(domain.ServiceCase{ID: "c3", Status: domain.CaseStatusInProgress, Priority: domain.CasePriorityLow, AssignedEngineerID: eng("eng-1"), SLADeadline: deadline(10)})
	add(domain.ServiceCase{ID: "c4", Status: domain.CaseStatusResolved, Priority: domain.CasePriorityHigh, AssignedEngineerID: eng("eng-3"), SLADeadline: deadline(-30)})
	add(domain.ServiceCase{ID: "c5", Status: domain.CaseStatusClosed, Priority: domain.CasePriorityLow, AssignedEngineerID: eng("eng-1"), SLADeadline: deadline(-50)})
	store.feedback = []domain.FeedbackRecord{
		{ID: "f1", ServiceCaseID: "c4", Rating: 5},
		{ID: "f2", ServiceCaseID: "c5", Rating: 3},
		{ID: "f3", ServiceCaseID: "c5", Rating: 1},
	}
	store.dispatches = []domain.DispatchRecord{
		{ID: "d1", ServiceCaseID: "c2", ScheduledServiceDate: fixedNow.Add(-3 * time.Hour)},
		{ID: "d2", ServiceCaseID: "c2", ScheduledServiceDate: fixedNow.Add(5 * time.Hour)},
	}
	store.engineers["eng-1"] = domain.Engineer{ID: "eng-1", Name: "Ravi", Active: true}
	store.engineers["eng-2"] = domain.Engineer{ID: "eng-2", Name: "Lena", Active: false}
	store.engineers["eng-3"] = domain.Engineer{ID: "eng-3", Name: "Mo", Active: true}
	store.catalog["cat-1"] = domain.CatalogProduct{ID: "cat-1", Name: "Water Purifier", Code: "WP-RO"}
	store.catalog["cat-2"] = domain.CatalogProduct{ID: "cat-2", Name: "Split AC", Code: "AC-SPLIT"}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("rp-%d", i)
		catalogID := "cat-2"
		if i == 0 {
			catalogID = "cat-1"
		}
		store.products[id] = domain.RegisteredProduct{ID: id, ProductID: catalogID, OwnerContactID: "c-1", Defective: i == 2}
	}
}

func newDashboardHarness(t *testing.T, ttl time.Duration) (*DashboardService, *memStore, *cache.DashboardCache) {
	t.Helper()
	store := newMemStore()
	seedDashboardStore(store)
	dc := newTestDashboardCache(t, ttl)
	return buildDashboardService(store, fakeCaseRepo{store}, dc), store, dc
}

func newTestDashboardCache(t *testing.T, ttl time.Duration) *cache.DashboardCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewDashboardCache(client, "test:", ttl)
}

func buildDashboardService(store *memStore, cases repository.CaseRepository, dc *cache.DashboardCache) *DashboardService {
	clock := func() time.Time { return fixedNow }
	views := NewCaseService(CaseDependencies{
		CaseRepo:     cases,
		HistoryRepo:  fakeHistoryRepo{store},
		DispatchRepo: fakeDispatchRepo{store},
		FeedbackRepo: fakeFeedbackRepo{store},
		ProductRepo:  fakeProductRepo{store},
		CatalogRepo:  fakeCatalogRepo{store},
		EngineerRepo: fakeEngineerRepo{store},
		Cache:        dc,
		Clock:        clock,
		BatchSize:    2,
	})
	return NewDashboardService(DashboardDependencies{
		CaseRepo:     cases,
		FeedbackRepo: fakeFeedbackRepo{store},
		DispatchRepo: fakeDispatchRepo{store},
		ProductRepo:  fakeProductRepo{store},
		CatalogRepo:  fakeCatalogRepo{store},
		EngineerRepo: fakeEngineerRepo{store},
		Views:        views,
		Cache:        dc,
		Clock:        clock,
		BatchSize:    2,
		Partitions:   3,
	})
}

// hookedCaseRepo calls onList after each unscoped case page is served.
type hookedCaseRepo struct {
	fakeCaseRepo
	once   sync.Once
	onList func()
}

func (r *hookedCaseRepo) ListWithFilter(ctx context.Context, f repository.CaseFilter) ([]domain.ServiceCase, error) {
	out, err := r.fakeCaseRepo.ListWithFilter(ctx, f)
	if f.Limit == 2 && f.AssignedEngineerID == nil && f.ContactID == nil {
		r.once.Do(r.onList)
	}
	return out, err
}

func TestManagerDashboardMatchesSequentialAggregate(t *testing.T) {
	svc, store, _ := newDashboardHarness(t, 0)

	got, err := svc.ManagerDashboard(context.Background())
	require.NoError(t, err)

	var (
		cases     []domain.ServiceCase
		engineers []domain.Engineer
		products  []domain.RegisteredProduct
		catalog   []domain.CatalogProduct
	)
	for _, c := range store.cases {
		cases = append(cases, c)
	}
	for _, e := range store.engineers {
		engineers = append(engineers, e)
	}
	for _, p := range store.products {
		products = append(products, p)
	}
	for _, p := range store.catalog {
		catalog = append(catalog, p)
	}
	want := workflow.Aggregate(cases, store.feedback, store.dispatches, workflow.AggregateOptions{
		Now:       fixedNow,
		Engineers: engineers,
		Products:  products,
		Catalog:   catalog,
	})
	assert.Equal(t, want, got.Metrics)

	assert.Equal(t, 5, got.Metrics.TotalCases)
	assert.Equal(t, 3, got.Metrics.OpenCases)
	assert.Equal(t, 2, got.Metrics.SLABreached)
	assert.InDelta(t, 3.0, got.Metrics.AverageRating, 1e-9)
	assert.Equal(t, workflow.RatingBuckets{Positive: 1, Neutral: 1, Negative: 1}, got.Metrics.RatingBuckets)
	assert.Equal(t, 1, got.Metrics.ScheduledDispatches)
	require.Len(t, got.Metrics.TopProducts, 2)
	assert.Equal(t, "cat-2", got.Metrics.TopProducts[0].ProductID)

	require.Len(t, got.EngineerPerformance, 3)
	assert.Equal(t, "Lena", got.EngineerPerformance[0].Name)
	assert.Equal(t, domain.AvailabilityUnavailable, got.EngineerPerformance[0].Availability)
	ravi := got.EngineerPerformance[2]
	assert.Equal(t, "eng-1", ravi.EngineerID)
	assert.Equal(t, 3, ravi.AssignedCaseCount)
	assert.Equal(t, 1, ravi.SLABreachCount)
	assert.Equal(t, domain.AvailabilityBusy, ravi.Availability)
	assert.InDelta(t, 2.0, ravi.AverageCustomerRating, 1e-9)
}

func TestAgentDashboardServesFromCache(t *testing.T) {
	svc, store, dc := newDashboardHarness(t, time.Minute)
	ctx := context.Background()

	first, err := svc.AgentDashboard(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Metrics.TotalCases)
	assert.Len(t, first.RecentCases, 5)
	assert.Len(t, first.RecentFeedback, 3)
	assert.Len(t, first.ProductStatus, 3)

	store.mu.Lock()
	store.cases["c6"] = domain.ServiceCase{ID: "c6", Status: domain.CaseStatusNew, Priority: domain.CasePriorityLow, CreatedAt: fixedNow}
	store.mu.Unlock()

	cached, err := svc.AgentDashboard(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, 5, cached.Metrics.TotalCases)
	assert.Len(t, cached.RecentCases, 6, "lists are never cached")

	require.NoError(t, dc.Invalidate(ctx))
	fresh, err := svc.AgentDashboard(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, 6, fresh.Metrics.TotalCases)
}

func TestEngineerDashboard(t *testing.T) {
	svc, _, _ := newDashboardHarness(t, time.Minute)
	ctx := context.Background()

	got, err := svc.EngineerDashboard(ctx, engineer)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got.Engineer.Name)
	assert.Equal(t, 3, got.Engineer.AssignedCaseCount)
	assert.Equal(t, 2, got.Engineer.OpenCaseCount)
	assert.Equal(t, workflow.BreachMinor, got.Engineer.BreachClass)
	require.Len(t, got.Jobs, 2)
	require.Len(t, got.Dispatches, 2)
	active := 0
	for _, d := range got.Dispatches {
		if d.Active {
			active++
			assert.Equal(t, "d2", d.Dispatch.ID)
		}
	}
	assert.Equal(t, 1, active)

	_, err = svc.EngineerDashboard(ctx, domain.Actor{Contact: domain.Contact{ID: "ghost"}, Role: domain.RoleEngineer})
	requireCode(t, err, "NOT_FOUND", 404)
}

func TestManagerDashboardCountsCaseCreatedMidCollectAtMostOnce(t *testing.T) {
	store := newMemStore()
	seedDashboardStore(store)
	cases := &hookedCaseRepo{fakeCaseRepo: fakeCaseRepo{store}}
	// a newer case lands ahead of everything already read
	cases.onList = func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		store.cases["c0"] = domain.ServiceCase{ID: "c0", Status: domain.CaseStatusNew, Priority: domain.CasePriorityLow, CreatedAt: fixedNow.Add(time.Hour)}
	}
	svc := buildDashboardService(store, cases, newTestDashboardCache(t, 0))

	got, err := svc.ManagerDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, got.Metrics.TotalCases)
	assert.Equal(t, 3, got.Metrics.OpenCases)
}

func TestDashboardComputedAcrossAnInvalidationIsNotServedLater(t *testing.T) {
	store := newMemStore()
	seedDashboardStore(store)
	dc := newTestDashboardCache(t, time.Minute)
	cases := &hookedCaseRepo{fakeCaseRepo: fakeCaseRepo{store}}
	// a command commits and invalidates while the first dashboard is computed
	cases.onList = func() {
		store.mu.Lock()
		store.cases["c6"] = domain.ServiceCase{ID: "c6", Status: domain.CaseStatusNew, Priority: domain.CasePriorityLow, CreatedAt: fixedNow.Add(-time.Minute)}
		store.mu.Unlock()
		assert.NoError(t, dc.Invalidate(context.Background()))
	}
	svc := buildDashboardService(store, cases, dc)
	ctx := context.Background()

	_, err := svc.ManagerDashboard(ctx)
	require.NoError(t, err)

	again, err := svc.ManagerDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, again.Metrics.TotalCases)
}

func TestChunkCoversEveryItemOnce(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	var seen []int
	for i := 0; i < 3; i++ {
		seen = append(seen, chunk(items, i, 3)...)
	}
	assert.Equal(t, items, seen)
	assert.Nil(t, chunk([]int{1}, 2, 3))
}
