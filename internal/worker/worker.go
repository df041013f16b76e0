package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/service-crm/internal/service"
)

// Workers groups the background consumers that run inside the API process.
type Workers struct {
	notifications *service.NotificationService
	monitor       *SLAMonitor
	logger        *zap.Logger
}

// New builds the worker set. Either member may be nil.
func New(notifications *service.NotificationService, monitor *SLAMonitor, logger *zap.Logger) *Workers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workers{notifications: notifications, monitor: monitor, logger: logger}
}

// Start subscribes the notification handlers and schedules the SLA monitor.
func (w *Workers) Start() error {
	if w.notifications != nil {
		w.notifications.RegisterHandlers()
	}
	if w.monitor == nil {
		return nil
	}
	if err := w.monitor.Start(); err != nil {
		return err
	}
	w.logger.Info("sla monitor scheduled", zap.String("schedule", w.monitor.schedule))
	return nil
}

// Stop halts scheduling and waits for a running scan, bounded by ctx.
func (w *Workers) Stop(ctx context.Context) {
	if w.monitor == nil {
		return
	}
	select {
	case <-w.monitor.Stop().Done():
	case <-ctx.Done():
		w.logger.Warn("sla monitor did not stop in time")
	}
}
