package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/service-crm/internal/config"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/events"
	"github.com/spec-kit/service-crm/internal/observability"
	"github.com/spec-kit/service-crm/internal/repository"
	"github.com/spec-kit/service-crm/internal/workflow"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Deduper claims a key for a period. go-redis SetNX satisfies it.
type Deduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// SLAMonitor periodically finds open cases past their deadline and publishes
// one SLABreached event per case per dedupe window.
type SLAMonitor struct {
	cases      repository.CaseRepository
	dedupe     Deduper
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	schedule  string
	window    time.Duration
	batchSize int
	keyPrefix string
	cron      *cron.Cron
}

// SLAMonitorDependencies bundles collaborators for the monitor.
type SLAMonitorDependencies struct {
	CaseRepo   repository.CaseRepository
	Dedupe     Deduper
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.SLAConfig
	KeyPrefix  string
	Clock      func() time.Time
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Breached int
	Notified int
}

// NewSLAMonitor validates the schedule and builds the monitor.
func NewSLAMonitor(deps SLAMonitorDependencies) (*SLAMonitor, error) {
	schedule := deps.Config.ScanSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid SLA_SCAN_SCHEDULE %q: %w", schedule, err)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := deps.Config.ScanBatchSize
	if batch <= 0 {
		batch = 500
	}
	return &SLAMonitor{
		cases:      deps.CaseRepo,
		dedupe:     deps.Dedupe,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
		schedule:   schedule,
		window:     deps.Config.BreachDedupe(),
		batchSize:  batch,
		keyPrefix:  deps.KeyPrefix,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}, nil
}

// Start schedules the scan.
func (m *SLAMonitor) Start() error {
	_, err := m.cron.AddFunc(m.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		result, err := m.Scan(ctx)
		if err != nil {
			m.logger.Error("sla scan failed", zap.Error(err))
			return
		}
		m.logger.Info("sla scan finished", zap.Int("breached", result.Breached), zap.Int("notified", result.Notified))
	})
	if err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once a running scan finishes.
func (m *SLAMonitor) Stop() context.Context {
	return m.cron.Stop()
}

// Scan checks every open case with a deadline before now. Pages seek past the
// last case read, so cases resolved mid-scan never shift the rest out of view.
// When the dedupe store fails the breach is reported anyway; a duplicate
// notification beats a silent one.
func (m *SLAMonitor) Scan(ctx context.Context) (ScanResult, error) {
	now := m.now()
	var result ScanResult
	open := make([]domain.CaseStatus, 0, len(domain.CaseStatuses))
	for _, st := range domain.CaseStatuses {
		if !st.IsTerminal() {
			open = append(open, st)
		}
	}

	var after *repository.Cursor
	for {
		page, err := m.cases.ListWithFilter(ctx, repository.CaseFilter{
			Statuses:       open,
			DeadlineBefore: &now,
			After:          after,
			Limit:          m.batchSize,
		})
		if err != nil {
			return result, err
		}
		for _, c := range page {
			if !workflow.IsBreached(c, now) {
				continue
			}
			result.Breached++
			first, err := m.claim(ctx, c.ID)
			if err != nil {
				m.logger.Warn("sla breach dedupe unavailable", zap.String("case_id", c.ID), zap.Error(err))
				first = true
			}
			if !first {
				continue
			}
			result.Notified++
			m.publish(ctx, c, now)
		}
		if len(page) < m.batchSize {
			break
		}
		after = repository.CaseCursor(&page[len(page)-1])
	}

	m.metrics.SetOpenBreaches(result.Breached)
	return result, nil
}

// claim reports whether this is the first breach report for the case in the window.
func (m *SLAMonitor) claim(ctx context.Context, caseID string) (bool, error) {
	if m.dedupe == nil {
		return true, nil
	}
	ok, err := m.dedupe.SetNX(ctx, m.keyPrefix+"sla:breach:"+caseID, m.now().Unix(), m.window).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}

func (m *SLAMonitor) publish(ctx context.Context, c domain.ServiceCase, now time.Time) {
	if m.dispatcher == nil {
		return
	}
	remaining := workflow.RemainingUntil(c.SLADeadline, now)
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreached,
		CaseID:    c.ID,
		Timestamp: now.UTC(),
		Payload: events.SLABreachedPayload{
			CaseNumber: c.CaseNumber,
			Priority:   c.Priority,
			EngineerID: c.AssignedEngineerID,
			Overdue:    remaining.Magnitude,
		},
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("sla breach handler failed", zap.String("case_id", c.ID), zap.Error(err))
	}
}
