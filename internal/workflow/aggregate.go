package workflow

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/spec-kit/service-crm/internal/domain"
)

// DefaultTopProductsLimit caps the top products ranking when no limit is set.
const DefaultTopProductsLimit = 5

// AggregateOptions carries the inputs the aggregate needs besides the three
// record collections.
type AggregateOptions struct {
	Now              time.Time
	Engineers        []domain.Engineer
	Products         []domain.RegisteredProduct
	Catalog          []domain.CatalogProduct
	TopProductsLimit int
}

// EngineerPerformanceSnapshot is derived per engineer on every aggregate.
type EngineerPerformanceSnapshot struct {
	EngineerID            string                    `json:"engineer_id"`
	Name                  string                    `json:"name,omitempty"`
	AssignedCaseCount     int                       `json:"assigned_case_count"`
	OpenCaseCount         int                       `json:"open_case_count"`
	SLABreachCount        int                       `json:"sla_breach_count"`
	AverageCustomerRating float64                   `json:"average_customer_rating"`
	RatingCount           int                       `json:"rating_count"`
	BreachClass           BreachClass               `json:"breach_class"`
	Availability          domain.AvailabilityStatus `json:"availability"`
}

// RatingBuckets counts feedback per rating class.
type RatingBuckets struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
	Invalid  int `json:"invalid"`
}

// SLABucket summarizes SLA state for one priority.
type SLABucket struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Breached int `json:"breached"`
}

// ProductRank is one entry of the top products ranking.
type ProductRank struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name,omitempty"`
	Code          string `json:"code,omitempty"`
	Registrations int    `json:"registrations"`
	Defective     int    `json:"defective"`
}

// Metrics is the dashboard summary over a set of cases, feedback and dispatches.
type Metrics struct {
	TotalCases          int                                    `json:"total_cases"`
	OpenCases           int                                    `json:"open_cases"`
	SLABreached         int                                    `json:"sla_breached"`
	AverageRating       float64                                `json:"average_rating"`
	RatingBuckets       RatingBuckets                          `json:"rating_buckets"`
	StatusDistribution  map[domain.CaseStatus]int              `json:"status_distribution"`
	SLAByPriority       map[PriorityClass]SLABucket            `json:"sla_by_priority"`
	PerEngineer         map[string]EngineerPerformanceSnapshot `json:"per_engineer"`
	ActiveEngineers     int                                    `json:"active_engineers"`
	TopProducts         []ProductRank                          `json:"top_products"`
	ScheduledDispatches int                                    `json:"scheduled_dispatches"`
	OverdueDispatches   int                                    `json:"overdue_dispatches"`
}

// Aggregate computes Metrics. The result depends only on the contents of the
// collections, never on their order, and the inputs are not modified.
func Aggregate(cases []domain.ServiceCase, feedbacks []domain.FeedbackRecord, dispatches []domain.DispatchRecord, opts AggregateOptions) Metrics {
	p := NewPartial(opts.Now)
	p.Accumulate(cases, feedbacks, dispatches)
	return p.Finish(opts)
}

type engineerTally struct {
	assigned int
	open     int
	breached int
}

type caseFacts struct {
	status   domain.CaseStatus
	engineer string
}

// Partial is an intermediate aggregate over one partition of the input.
// Partials built with the same now can be merged in any order.
type Partial struct {
	now        time.Time
	total      int
	open       int
	breached   int
	statuses   map[domain.CaseStatus]int
	sla        map[PriorityClass]SLABucket
	engineers  map[string]engineerTally
	cases      map[string]caseFacts
	feedback   []domain.FeedbackRecord
	dispatches map[string]domain.DispatchRecord
}

// NewPartial returns an empty partial evaluated at now.
func NewPartial(now time.Time) *Partial {
	return &Partial{
		now:        now,
		statuses:   make(map[domain.CaseStatus]int),
		sla:        make(map[PriorityClass]SLABucket),
		engineers:  make(map[string]engineerTally),
		cases:      make(map[string]caseFacts),
		dispatches: make(map[string]domain.DispatchRecord),
	}
}

// Accumulate folds records into the partial.
func (p *Partial) Accumulate(cases []domain.ServiceCase, feedbacks []domain.FeedbackRecord, dispatches []domain.DispatchRecord) {
	for _, c := range cases {
		p.addCase(c)
	}
	p.feedback = append(p.feedback, feedbacks...)
	for _, d := range dispatches {
		p.addDispatch(d)
	}
}

func (p *Partial) addCase(c domain.ServiceCase) {
	open := !c.Status.IsTerminal()
	breached := IsBreached(c, p.now)

	p.total++
	p.statuses[c.Status]++
	bucket := p.sla[ClassifyPriority(string(c.Priority))]
	bucket.Total++
	if open {
		p.open++
		bucket.Open++
	}
	if breached {
		p.breached++
		bucket.Breached++
	}
	p.sla[ClassifyPriority(string(c.Priority))] = bucket

	facts := caseFacts{status: c.Status}
	if c.AssignedEngineerID != nil && *c.AssignedEngineerID != "" {
		engineerID := *c.AssignedEngineerID
		facts.engineer = engineerID
		tally := p.engineers[engineerID]
		tally.assigned++
		if open {
			tally.open++
		}
		if breached {
			tally.breached++
		}
		p.engineers[engineerID] = tally
	}
	p.cases[c.ID] = mergeFacts(p.cases[c.ID], facts)
}

// mergeFacts resolves duplicate case identifiers without depending on order:
// the later lifecycle status wins and the smaller engineer id wins.
func mergeFacts(a, b caseFacts) caseFacts {
	if a.status == "" {
		return b
	}
	out := a
	if statusRank(b.status) > statusRank(a.status) {
		out.status = b.status
	}
	if out.engineer == "" || (b.engineer != "" && b.engineer < out.engineer) {
		out.engineer = b.engineer
	}
	return out
}

func statusRank(s domain.CaseStatus) int {
	for i, status := range domain.CaseStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

func (p *Partial) addDispatch(d domain.DispatchRecord) {
	current, ok := p.dispatches[d.ServiceCaseID]
	if !ok || laterDispatch(d, current) {
		p.dispatches[d.ServiceCaseID] = d
	}
}

// laterDispatch orders dispatches by scheduled date, then identifier.
func laterDispatch(a, b domain.DispatchRecord) bool {
	if !a.ScheduledServiceDate.Equal(b.ScheduledServiceDate) {
		return a.ScheduledServiceDate.After(b.ScheduledServiceDate)
	}
	return a.ID > b.ID
}

// ActiveDispatch returns the dispatch currently in force for a case.
func ActiveDispatch(caseID string, dispatches []domain.DispatchRecord) (domain.DispatchRecord, bool) {
	var (
		active domain.DispatchRecord
		found  bool
	)
	for _, d := range dispatches {
		if d.ServiceCaseID != caseID {
			continue
		}
		if !found || laterDispatch(d, active) {
			active = d
			found = true
		}
	}
	return active, found
}

// Merge folds other into p. other is left untouched.
func (p *Partial) Merge(other *Partial) {
	if other == nil {
		return
	}
	p.total += other.total
	p.open += other.open
	p.breached += other.breached
	for status, n := range other.statuses {
		p.statuses[status] += n
	}
	for class, b := range other.sla {
		cur := p.sla[class]
		cur.Total += b.Total
		cur.Open += b.Open
		cur.Breached += b.Breached
		p.sla[class] = cur
	}
	for id, t := range other.engineers {
		cur := p.engineers[id]
		cur.assigned += t.assigned
		cur.open += t.open
		cur.breached += t.breached
		p.engineers[id] = cur
	}
	for id, facts := range other.cases {
		p.cases[id] = mergeFacts(p.cases[id], facts)
	}
	p.feedback = append(p.feedback, other.feedback...)
	for _, d := range other.dispatches {
		p.addDispatch(d)
	}
}

// Finish produces the Metrics for everything accumulated so far.
func (p *Partial) Finish(opts AggregateOptions) Metrics {
	m := Metrics{
		TotalCases:         p.total,
		OpenCases:          p.open,
		SLABreached:        p.breached,
		StatusDistribution: make(map[domain.CaseStatus]int, len(p.statuses)),
		SLAByPriority:      make(map[PriorityClass]SLABucket, len(p.sla)),
		PerEngineer:        make(map[string]EngineerPerformanceSnapshot),
		TopProducts:        []ProductRank{},
	}
	for status, n := range p.statuses {
		m.StatusDistribution[status] = n
	}
	for class, b := range p.sla {
		m.SLAByPriority[class] = b
	}

	var all []float64
	perEngineer := map[string][]float64{}
	for _, f := range p.feedback {
		switch ClassifyRating(f.Rating) {
		case RatingPositive:
			m.RatingBuckets.Positive++
		case RatingNeutral:
			m.RatingBuckets.Neutral++
		case RatingNegative:
			m.RatingBuckets.Negative++
		default:
			m.RatingBuckets.Invalid++
			continue
		}
		all = append(all, float64(f.Rating))
		if facts, ok := p.cases[f.ServiceCaseID]; ok && facts.engineer != "" {
			perEngineer[facts.engineer] = append(perEngineer[facts.engineer], float64(f.Rating))
		}
	}
	m.AverageRating = mean(all)

	roster := make(map[string]domain.Engineer, len(opts.Engineers))
	for _, e := range opts.Engineers {
		roster[e.ID] = e
	}
	ids := make(map[string]struct{}, len(p.engineers)+len(roster))
	for id := range p.engineers {
		ids[id] = struct{}{}
	}
	for id := range roster {
		ids[id] = struct{}{}
	}
	for id := range ids {
		tally := p.engineers[id]
		ratings := perEngineer[id]
		snapshot := EngineerPerformanceSnapshot{
			EngineerID:            id,
			AssignedCaseCount:     tally.assigned,
			OpenCaseCount:         tally.open,
			SLABreachCount:        tally.breached,
			AverageCustomerRating: mean(ratings),
			RatingCount:           len(ratings),
			BreachClass:           ClassifyBreaches(tally.breached),
			Availability:          domain.AvailabilityAvailable,
		}
		if tally.open > 0 {
			snapshot.Availability = domain.AvailabilityBusy
		}
		if e, ok := roster[id]; ok {
			snapshot.Name = e.Name
			if !e.Active {
				snapshot.Availability = domain.AvailabilityUnavailable
			}
		}
		if snapshot.Availability != domain.AvailabilityUnavailable {
			m.ActiveEngineers++
		}
		m.PerEngineer[id] = snapshot
	}

	for caseID, d := range p.dispatches {
		facts, ok := p.cases[caseID]
		if !ok || facts.status != domain.CaseStatusEngineerDispatched {
			continue
		}
		if d.ScheduledServiceDate.Before(p.now) {
			m.OverdueDispatches++
		} else {
			m.ScheduledDispatches++
		}
	}

	m.TopProducts = rankProducts(opts)
	return m
}

// rankProducts orders catalog products by registration count descending,
// breaking ties by product identifier ascending.
func rankProducts(opts AggregateOptions) []ProductRank {
	limit := opts.TopProductsLimit
	if limit <= 0 {
		limit = DefaultTopProductsLimit
	}
	catalog := make(map[string]domain.CatalogProduct, len(opts.Catalog))
	for _, c := range opts.Catalog {
		catalog[c.ID] = c
	}
	counts := map[string]*ProductRank{}
	for _, rp := range opts.Products {
		if rp.ProductID == "" {
			continue
		}
		rank, ok := counts[rp.ProductID]
		if !ok {
			entry := catalog[rp.ProductID]
			rank = &ProductRank{ProductID: rp.ProductID, Name: entry.Name, Code: entry.Code}
			counts[rp.ProductID] = rank
		}
		rank.Registrations++
		if rp.Defective {
			rank.Defective++
		}
	}
	ranked := make([]ProductRank, 0, len(counts))
	for _, rank := range counts {
		ranked = append(ranked, *rank)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Registrations != ranked[j].Registrations {
			return ranked[i].Registrations > ranked[j].Registrations
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	avg, err := stats.Mean(sorted)
	if err != nil {
		return 0
	}
	return avg
}
