package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/events"
	"github.com/spec-kit/service-crm/internal/repository"
)

// memStore backs every fake repository so tests can seed and inspect state.
type memStore struct {
	mu         sync.Mutex
	seq        int
	cases      map[string]domain.ServiceCase
	history    []domain.CaseHistory
	dispatches []domain.DispatchRecord
	feedback   []domain.FeedbackRecord
	products   map[string]domain.RegisteredProduct
	catalog    map[string]domain.CatalogProduct
	engineers  map[string]domain.Engineer
	failCases  error

	// failDispatch fails the next dispatch insert.
	failDispatch error
}

func newMemStore() *memStore {
	return &memStore{
		cases:     map[string]domain.ServiceCase{},
		products:  map[string]domain.RegisteredProduct{},
		catalog:   map[string]domain.CatalogProduct{},
		engineers: map[string]domain.Engineer{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

// page applies limit and offset, falling back to the repository default limit.
func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// seeks mirrors the repositories' keyset predicate for ORDER BY key, id ASC.
func seeks(key time.Time, id string, after *repository.Cursor, desc bool) bool {
	if after == nil {
		return true
	}
	at := after.Key.(time.Time)
	if !key.Equal(at) {
		if desc {
			return key.Before(at)
		}
		return key.After(at)
	}
	return id > after.ID
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type fakeCaseRepo struct{ *memStore }

func (r fakeCaseRepo) Create(_ context.Context, c *domain.ServiceCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCases != nil {
		return r.failCases
	}
	c.ID = r.nextID("case")
	c.UpdatedAt = c.CreatedAt
	r.cases[c.ID] = *c
	return nil
}

func (r fakeCaseRepo) Update(_ context.Context, c *domain.ServiceCase, expected domain.CaseStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCases != nil {
		return r.failCases
	}
	old, ok := r.cases[c.ID]
	if !ok || old.Status != expected {
		return pgx.ErrNoRows
	}
	c.SLADeadline = old.SLADeadline
	r.cases[c.ID] = *c
	return nil
}

func (r fakeCaseRepo) GetByID(_ context.Context, id string) (*domain.ServiceCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r fakeCaseRepo) GetByCaseNumber(_ context.Context, number string) (*domain.ServiceCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cases {
		if c.CaseNumber == number {
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeCaseRepo) ListWithFilter(_ context.Context, f repository.CaseFilter) ([]domain.ServiceCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCases != nil {
		return nil, r.failCases
	}
	var out []domain.ServiceCase
	for _, c := range r.cases {
		if len(f.IDs) > 0 && !contains(f.IDs, c.ID) {
			continue
		}
		if f.ContactID != nil && c.ContactID != *f.ContactID {
			continue
		}
		if f.AssignedEngineerID != nil && (c.AssignedEngineerID == nil || *c.AssignedEngineerID != *f.AssignedEngineerID) {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, c.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !contains(f.Priorities, c.Priority) {
			continue
		}
		if !seeks(c.CreatedAt, c.ID, f.After, true) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset, 50), nil
}

type fakeHistoryRepo struct{ *memStore }

func (r fakeHistoryRepo) Create(_ context.Context, h *domain.CaseHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = r.nextID("hist")
	r.history = append(r.history, *h)
	return nil
}

func (r fakeHistoryRepo) ListByCase(_ context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CaseHistory
	for _, h := range r.history {
		if h.CaseID == caseID {
			out = append(out, h)
		}
	}
	return page(out, limit, offset, 100), nil
}

type fakeDispatchRepo struct{ *memStore }

func (r fakeDispatchRepo) Create(_ context.Context, d *domain.DispatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failDispatch; err != nil {
		r.failDispatch = nil
		return err
	}
	d.ID = r.nextID("disp")
	r.dispatches = append(r.dispatches, *d)
	return nil
}

func (r fakeDispatchRepo) List(_ context.Context, f repository.DispatchFilter) ([]domain.DispatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DispatchRecord
	for _, d := range r.dispatches {
		if len(f.CaseIDs) > 0 && !contains(f.CaseIDs, d.ServiceCaseID) {
			continue
		}
		if !seeks(d.ScheduledServiceDate, d.ID, f.After, false) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScheduledServiceDate.Equal(out[j].ScheduledServiceDate) {
			return out[i].ScheduledServiceDate.Before(out[j].ScheduledServiceDate)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset, 500), nil
}

type fakeFeedbackRepo struct{ *memStore }

func (r fakeFeedbackRepo) Create(_ context.Context, f *domain.FeedbackRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = r.nextID("fb")
	f.SubmittedAt = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	r.feedback = append(r.feedback, *f)
	return nil
}

func (r fakeFeedbackRepo) List(_ context.Context, f repository.FeedbackFilter) ([]domain.FeedbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FeedbackRecord
	for _, fb := range r.feedback {
		if len(f.CaseIDs) > 0 && !contains(f.CaseIDs, fb.ServiceCaseID) {
			continue
		}
		if !seeks(fb.SubmittedAt, fb.ID, f.After, true) {
			continue
		}
		out = append(out, fb)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset, 500), nil
}

type fakeProductRepo struct{ *memStore }

func (r fakeProductRepo) Create(_ context.Context, p *domain.RegisteredProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID("prod")
	r.products[p.ID] = *p
	return nil
}

func (r fakeProductRepo) GetByID(_ context.Context, id string) (*domain.RegisteredProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r fakeProductRepo) List(_ context.Context, f repository.ProductFilter) ([]domain.RegisteredProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RegisteredProduct
	for _, p := range r.products {
		if f.OwnerContactID != nil && p.OwnerContactID != *f.OwnerContactID {
			continue
		}
		if f.DefectiveOnly && !p.Defective {
			continue
		}
		if !seeks(p.CreatedAt, p.ID, f.After, true) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset, 500), nil
}

type fakeCatalogRepo struct{ *memStore }

func (r fakeCatalogRepo) GetByID(_ context.Context, id string) (*domain.CatalogProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.catalog[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r fakeCatalogRepo) List(_ context.Context) ([]domain.CatalogProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CatalogProduct, 0, len(r.catalog))
	for _, p := range r.catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeEngineerRepo struct{ *memStore }

func (r fakeEngineerRepo) GetByID(_ context.Context, id string) (*domain.Engineer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engineers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r fakeEngineerRepo) List(_ context.Context, f repository.EngineerFilter) ([]domain.Engineer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Engineer
	for _, e := range r.engineers {
		if f.Active != nil && e.Active != *f.Active {
			continue
		}
		if f.After != nil {
			name := f.After.Key.(string)
			if e.Name < name || (e.Name == name && e.ID <= f.After.ID) {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset, 500), nil
}

// recordingDispatcher keeps published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	inner  events.Dispatcher
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{inner: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, e events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
	return d.inner.Publish(ctx, e)
}

func (d *recordingDispatcher) Subscribe(t events.EventType, h events.EventHandler) {
	d.inner.Subscribe(t, h)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

// snapshotTransactor restores the store when fn fails, standing in for a
// rolled back transaction.
type snapshotTransactor struct {
	store *memStore
	calls int
}

func (t *snapshotTransactor) InTx(_ context.Context, fn func(repository.CaseWriters) error) error {
	t.store.mu.Lock()
	t.calls++
	cases := make(map[string]domain.ServiceCase, len(t.store.cases))
	for k, v := range t.store.cases {
		cases[k] = v
	}
	history := append([]domain.CaseHistory(nil), t.store.history...)
	dispatches := append([]domain.DispatchRecord(nil), t.store.dispatches...)
	t.store.mu.Unlock()

	err := fn(repository.CaseWriters{
		Cases:      fakeCaseRepo{t.store},
		History:    fakeHistoryRepo{t.store},
		Dispatches: fakeDispatchRepo{t.store},
	})
	if err != nil {
		t.store.mu.Lock()
		t.store.cases, t.store.history, t.store.dispatches = cases, history, dispatches
		t.store.mu.Unlock()
	}
	return err
}
