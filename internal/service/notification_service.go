package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-crm/internal/config"
	"github.com/spec-kit/service-crm/internal/events"
)

// NotificationService turns domain events into notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled {
		return
	}
	n.dispatcher.Subscribe(events.EventCaseCreated, n.handle)
	n.dispatcher.Subscribe(events.EventCaseStatusChanged, n.handle)
	n.dispatcher.Subscribe(events.EventEngineerDispatched, n.handle)
	n.dispatcher.Subscribe(events.EventFeedbackRecorded, n.handle)
	n.dispatcher.Subscribe(events.EventProductRegistered, n.handle)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	note, ok := notificationFor(event)
	if !ok {
		return nil
	}
	n.logger.Debug("notify", zap.String("event_type", string(event.Type)), zap.String("case_id", event.CaseID))
	if err := n.notifier.Notify(ctx, note); err != nil {
		n.logger.Warn("notification delivery failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

func notificationFor(event events.Event) (Notification, bool) {
	note := Notification{CaseID: event.CaseID, EventID: event.ID, Timestamp: event.Timestamp}
	switch p := event.Payload.(type) {
	case events.CaseCreatedPayload:
		note.Title = "Service request submitted"
		note.Message = fmt.Sprintf("Case %s was created with %s priority", p.CaseNumber, p.Priority)
		note.Severity = SeveritySuccess
	case events.CaseStatusChangedPayload:
		note.Title = "Case status updated"
		note.Message = fmt.Sprintf("Case %s moved from %s to %s", p.CaseNumber, p.OldStatus, p.NewStatus)
		note.Severity = SeveritySuccess
	case events.EngineerDispatchedPayload:
		note.Title = "Engineer dispatched"
		note.Message = fmt.Sprintf("Case %s is scheduled for %s", p.CaseNumber, p.ScheduledServiceDate.Format("2006-01-02 15:04 MST"))
		note.Severity = SeverityInfo
	case events.FeedbackRecordedPayload:
		note.Title = "Feedback received"
		note.Message = fmt.Sprintf("Thank you for rating your service %d/5", p.Rating)
		note.Severity = SeveritySuccess
	case events.ProductRegisteredPayload:
		note.Title = "Product registered"
		note.Message = fmt.Sprintf("%s (serial %s) was registered", p.Name, p.SerialNumber)
		note.Severity = SeveritySuccess
	case events.SLABreachedPayload:
		note.Title = "SLA breached"
		note.Message = fmt.Sprintf("Case %s (%s priority) is overdue by %s", p.CaseNumber, p.Priority, p.Overdue.Round(time.Minute))
		note.Severity = SeverityError
	default:
		return Notification{}, false
	}
	return note, true
}
