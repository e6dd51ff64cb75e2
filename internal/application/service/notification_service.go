package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medialert/reportflow/internal/application/dispatcher"
	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/domain/event"
	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
)

// Handler names registered on the dispatcher
const (
	HandlerAlertOnCreated  = "alert-on-created"
	HandlerAlertOnStatus   = "alert-on-status-changed"
	HandlerAlertOnAssigned = "alert-on-reviewer-assigned"
)

// NotificationService turns workflow changes into events and in-app alerts
type NotificationService interface {
	port.NotificationTrigger

	// RegisterHandlers subscribes the alert writers to the dispatcher
	RegisterHandlers()

	ListAlerts(ctx context.Context, caller entity.Caller, unreadOnly bool, limit, offset int) ([]*entity.AlertNotification, error)
	MarkAlertRead(ctx context.Context, caller entity.Caller, alertID int64) error
}

type notificationServiceImpl struct {
	alertRepo  port.AlertRepository
	userRepo   port.UserRepository
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	alertRepo port.AlertRepository,
	userRepo port.UserRepository,
	d dispatcher.Dispatcher,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		alertRepo:  alertRepo,
		userRepo:   userRepo,
		dispatcher: d,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnReportCreated publishes report.created without blocking the caller
func (s *notificationServiceImpl) OnReportCreated(ctx context.Context, report *entity.Report) {
	evt := event.NewEvent(event.TypeReportCreated, report, map[string]interface{}{
		event.PayloadActorID:   report.PatientID,
		event.PayloadNewStatus: report.Status,
	})
	s.dispatcher.DispatchAsync(ctx, evt)
}

// OnStatusChanged publishes report.status_changed, plus report.reviewer_assigned for assignments
func (s *notificationServiceImpl) OnStatusChanged(ctx context.Context, report *entity.Report, previousStatus string, actor entity.Caller, action string) {
	payload := map[string]interface{}{
		event.PayloadPreviousStatus: previousStatus,
		event.PayloadNewStatus:      report.Status,
		event.PayloadActorID:        actor.ID,
		event.PayloadAction:         action,
	}
	evt := event.NewEvent(event.TypeStatusChanged, report, payload)
	s.dispatcher.DispatchAsync(ctx, evt)

	if isAssignment(action) {
		assigned := event.NewEventWithCorrelation(event.TypeReviewerAssigned, report, payload, evt.CorrelationID)
		s.dispatcher.DispatchAsync(ctx, assigned)
	}
}

// RegisterHandlers subscribes the alert writers to the dispatcher
func (s *notificationServiceImpl) RegisterHandlers() {
	s.dispatcher.SubscribeNamed(event.TypeReportCreated, HandlerAlertOnCreated,
		"alerts the reviewer, or the institution supervisors when unassigned", s.handleReportCreated)
	s.dispatcher.SubscribeNamed(event.TypeStatusChanged, HandlerAlertOnStatus,
		"alerts patient and reviewer about a status change", s.handleStatusChanged)
	s.dispatcher.SubscribeNamed(event.TypeReviewerAssigned, HandlerAlertOnAssigned,
		"alerts the newly assigned reviewer", s.handleReviewerAssigned)
}

func (s *notificationServiceImpl) handleReportCreated(ctx context.Context, evt *event.Event) error {
	report := evt.Report
	if report == nil {
		return fmt.Errorf("event %s carries no report", evt.ID)
	}

	var recipients []string
	if report.HasReviewer() {
		recipients = []string{*report.ReviewerID}
	} else {
		supervisors, err := s.userRepo.ListByRole(ctx, entity.RoleSupervisor, report.InstitutionID)
		if err != nil {
			return fmt.Errorf("list supervisors: %w", err)
		}
		for _, u := range supervisors {
			recipients = append(recipients, u.ID)
		}
	}

	title := fmt.Sprintf("New adverse-effect report #%d", report.ID)
	message := fmt.Sprintf("A %s report for medication %s is %s.", report.Severity, report.MedicationID, report.Status)
	return s.writeAlerts(ctx, report, recipients, title, message)
}

func (s *notificationServiceImpl) handleStatusChanged(ctx context.Context, evt *event.Event) error {
	report := evt.Report
	if report == nil {
		return fmt.Errorf("event %s carries no report", evt.ID)
	}

	actorID := evt.GetPayloadString(event.PayloadActorID)
	action := evt.GetPayloadString(event.PayloadAction)

	recipients := []string{report.PatientID}
	// Assignments alert the reviewer through report.reviewer_assigned
	if report.HasReviewer() && !isAssignment(action) {
		recipients = append(recipients, *report.ReviewerID)
	}

	title := fmt.Sprintf("Report #%d is now %s", report.ID, report.Status)
	message := fmt.Sprintf("Status changed from %s to %s (%s).",
		evt.GetPayloadString(event.PayloadPreviousStatus), report.Status, action)
	return s.writeAlerts(ctx, report, without(recipients, actorID), title, message)
}

func (s *notificationServiceImpl) handleReviewerAssigned(ctx context.Context, evt *event.Event) error {
	report := evt.Report
	if report == nil || !report.HasReviewer() {
		return nil
	}

	title := fmt.Sprintf("Report #%d assigned to you", report.ID)
	message := fmt.Sprintf("A %s report for medication %s awaits your review.", report.Severity, report.MedicationID)
	return s.writeAlerts(ctx, report, []string{*report.ReviewerID}, title, message)
}

func (s *notificationServiceImpl) writeAlerts(ctx context.Context, report *entity.Report, recipients []string, title, message string) error {
	priority := entity.PriorityForSeverity(report.Severity)
	seen := make(map[string]bool, len(recipients))

	for _, recipient := range recipients {
		if recipient == "" || seen[recipient] {
			continue
		}
		seen[recipient] = true

		alert := &entity.AlertNotification{
			ReportID:    report.ID,
			RecipientID: recipient,
			Title:       title,
			Message:     message,
			Priority:    priority,
			CreatedAt:   s.now(),
		}
		if err := s.alertRepo.Create(ctx, alert); err != nil {
			s.logger.Error("Failed to create alert", "error", err, "report_id", report.ID, "recipient_id", recipient)
			return fmt.Errorf("create alert: %w", err)
		}
	}

	s.logger.Info("Alerts written", "report_id", report.ID, "recipients", len(seen), "priority", priority)
	return nil
}

// ListAlerts returns the caller's own alerts, newest first
func (s *notificationServiceImpl) ListAlerts(ctx context.Context, caller entity.Caller, unreadOnly bool, limit, offset int) ([]*entity.AlertNotification, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("%w: anonymous caller", ErrNotAuthorized)
	}
	if offset < 0 {
		return nil, invalidf("offset", "must not be negative")
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	alerts, err := s.alertRepo.ListByRecipient(ctx, caller.ID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// MarkAlertRead flags one of the caller's alerts as read
func (s *notificationServiceImpl) MarkAlertRead(ctx context.Context, caller entity.Caller, alertID int64) error {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}
	if alert == nil || alert.RecipientID != caller.ID {
		return fmt.Errorf("%w: alert %d", ErrNotAuthorized, alertID)
	}
	if alert.Read {
		return nil
	}

	if err := s.alertRepo.MarkRead(ctx, alertID); err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return nil
}

func isAssignment(action string) bool {
	return action == domainwf.TriggerAutoAssign.String() || action == domainwf.TriggerAssignReviewer.String()
}

func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
