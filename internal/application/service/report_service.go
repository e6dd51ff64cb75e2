package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medialert/reportflow/internal/application/port"
	appwf "github.com/medialert/reportflow/internal/application/workflow"
	"github.com/medialert/reportflow/internal/domain/access"
	"github.com/medialert/reportflow/internal/domain/assignment"
	"github.com/medialert/reportflow/internal/domain/entity"
	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
	"github.com/medialert/reportflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	maxDescriptionLength = 4000
	maxFreeTextLength    = 255
	defaultListLimit     = 50
	maxListLimit         = 200

	actionCreate = "create"
)

// CreateReportInput is what a patient submits
type CreateReportInput struct {
	MedicationID        string     `json:"medication_id"`
	Description         string     `json:"description"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Severity            string     `json:"severity"`
	Type                string     `json:"type"`
	AdministrationRoute string     `json:"administration_route"`
	Dosage              string     `json:"dosage"`
	Frequency           string     `json:"frequency"`
}

// TransitionPayload carries the action-specific arguments of Transition
type TransitionPayload struct {
	ReviewerID   string `json:"reviewer_id,omitempty"`
	Info         string `json:"info,omitempty"`
	Reason       string `json:"reason,omitempty"`
	TargetStatus string `json:"target_status,omitempty"`
}

// ReportService runs the adverse-effect report workflow
type ReportService interface {
	CreateReport(ctx context.Context, caller entity.Caller, in CreateReportInput) (*entity.Report, error)
	Transition(ctx context.Context, reportID int64, action string, caller entity.Caller, payload TransitionPayload) (*entity.Report, error)
	ListVisible(ctx context.Context, caller entity.Caller, filter port.ReportFilter) ([]*entity.Report, error)
	GetReport(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error)
	AllowedActions(caller entity.Caller, report *entity.Report) ([]string, error)
	History(ctx context.Context, caller entity.Caller, reportID int64) ([]*entity.ReportHistory, error)
	RetryAssignment(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error)
}

type reportServiceImpl struct {
	reportRepo  port.ReportRepository
	historyRepo port.HistoryRepository
	userRepo    port.UserRepository
	txManager   port.TransactionManager
	engine      appwf.ReportEngine
	notifier    port.NotificationTrigger
	logger      Logger

	assignmentScope assignment.Scope
	now             func() time.Time
}

// ReportServiceOption configures the report service
type ReportServiceOption func(*reportServiceImpl)

// WithAssignmentScope restricts auto-assignment candidates
func WithAssignmentScope(scope assignment.Scope) ReportServiceOption {
	return func(s *reportServiceImpl) {
		s.assignmentScope = scope
	}
}

// WithNotifier sets the trigger told about creations and status changes
func WithNotifier(n port.NotificationTrigger) ReportServiceOption {
	return func(s *reportServiceImpl) {
		s.notifier = n
	}
}

// WithServiceClock overrides the time source used for CreatedAt
func WithServiceClock(now func() time.Time) ReportServiceOption {
	return func(s *reportServiceImpl) {
		s.now = now
	}
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo port.ReportRepository,
	historyRepo port.HistoryRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	engine appwf.ReportEngine,
	logger Logger,
	opts ...ReportServiceOption,
) ReportService {
	s := &reportServiceImpl{
		reportRepo:      reportRepo,
		historyRepo:     historyRepo,
		userRepo:        userRepo,
		txManager:       txManager,
		engine:          engine,
		logger:          logger,
		assignmentScope: assignment.ScopeGlobal,
		now:             func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateReport files a new report for the calling patient and tries to assign a reviewer
func (s *reportServiceImpl) CreateReport(ctx context.Context, caller entity.Caller, in CreateReportInput) (*entity.Report, error) {
	if caller.Role != entity.RolePatient {
		return nil, fmt.Errorf("%w: only patients file reports", ErrNotAuthorized)
	}
	if err := utils.ValidateIdentifier("institution_id", caller.InstitutionID); err != nil {
		return nil, invalid("institution_id", err)
	}
	if err := validateCreateInput(&in); err != nil {
		return nil, err
	}

	now := s.now()
	report := &entity.Report{
		PatientID:           caller.ID,
		MedicationID:        in.MedicationID,
		InstitutionID:       caller.InstitutionID,
		Description:         in.Description,
		StartDate:           in.StartDate.UTC(),
		Severity:            in.Severity,
		Type:                in.Type,
		AdministrationRoute: in.AdministrationRoute,
		Dosage:              in.Dosage,
		Frequency:           in.Frequency,
		Status:              entity.StatusCreated,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		report.EndDate = &end
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.Create(txCtx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}

		history := &entity.ReportHistory{
			ReportID:  report.ID,
			ActorID:   caller.ID,
			ActorRole: caller.Role,
			Action:    actionCreate,
			NewStatus: report.Status,
			CreatedAt: now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create report", "error", err, "patient_id", caller.ID)
		return nil, err
	}

	s.logger.Info("Report created", "report_id", report.ID, "patient_id", caller.ID, "severity", report.Severity)

	// Assignment failures leave the report CREATED; creation itself already committed
	assigned, err := s.autoAssign(ctx, report)
	if err != nil {
		s.logger.Error("Auto-assignment failed", "error", err, "report_id", report.ID)
	} else if assigned != nil {
		report = assigned
	}

	if s.notifier != nil {
		s.notifier.OnReportCreated(ctx, report)
	}

	return report, nil
}

// autoAssign runs auto_assign as the system actor. It returns nil, nil when
// the policy picks nobody.
func (s *reportServiceImpl) autoAssign(ctx context.Context, report *entity.Report) (*entity.Report, error) {
	candidates, err := s.reportRepo.QueryReviewerWorkload(ctx, report.InstitutionID, s.assignmentScope)
	if err != nil {
		return nil, fmt.Errorf("query reviewer workload: %w", err)
	}

	reviewerID, ok := assignment.Pick(candidates)
	if !ok {
		s.logger.Info("No unique reviewer candidate, report left unassigned",
			"report_id", report.ID,
			"candidate_count", len(candidates),
		)
		return nil, nil
	}

	result, err := s.engine.Apply(ctx, report, domainwf.TriggerAutoAssign, entity.SystemCaller, domainwf.Payload{ReviewerID: reviewerID})
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, report.Version, result, entity.SystemCaller, ""); err != nil {
		return nil, err
	}

	s.logger.Info("Reviewer auto-assigned", "report_id", report.ID, "reviewer_id", reviewerID)
	return result.Report, nil
}

// Transition applies action to a report on behalf of caller
func (s *reportServiceImpl) Transition(ctx context.Context, reportID int64, action string, caller entity.Caller, payload TransitionPayload) (*entity.Report, error) {
	if action == "" {
		return nil, invalidf("action", "is required")
	}

	report, err := s.loadVisible(ctx, caller, reportID)
	if err != nil {
		return nil, err
	}

	wfPayload, err := s.buildPayload(ctx, domainwf.Trigger(action), payload)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Apply(ctx, report, domainwf.Trigger(action), caller, wfPayload)
	if err != nil {
		return nil, translateWorkflowError(err)
	}

	if err := s.persist(ctx, report.Version, result, caller, noteFor(wfPayload)); err != nil {
		s.logger.Error("Failed to persist transition",
			"error", err,
			"report_id", reportID,
			"action", action,
		)
		return nil, err
	}

	s.logger.Info("Report transitioned",
		"report_id", reportID,
		"action", action,
		"actor_id", caller.ID,
		"previous_status", result.PreviousStatus,
		"new_status", result.NewStatus,
	)

	if s.notifier != nil {
		s.notifier.OnStatusChanged(ctx, result.Report, result.PreviousStatus.String(), caller, action)
	}

	return result.Report, nil
}

// persist saves the transitioned report with a version check and records history in one transaction
func (s *reportServiceImpl) persist(ctx context.Context, expectedVersion int64, result *appwf.Transition, actor entity.Caller, note string) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.Save(txCtx, result.Report, expectedVersion); err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				return fmt.Errorf("%w: report %d changed since version %d", ErrConflict, result.Report.ID, expectedVersion)
			}
			return fmt.Errorf("save report: %w", err)
		}

		history := &entity.ReportHistory{
			ReportID:       result.Report.ID,
			ActorID:        actor.ID,
			ActorRole:      actor.Role,
			Action:         result.Trigger.String(),
			PreviousStatus: result.PreviousStatus.String(),
			NewStatus:      result.NewStatus.String(),
			Note:           note,
			CreatedAt:      result.Report.UpdatedAt,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		return nil
	})
}

func (s *reportServiceImpl) buildPayload(ctx context.Context, trigger domainwf.Trigger, p TransitionPayload) (domainwf.Payload, error) {
	out := domainwf.Payload{
		ReviewerID:   p.ReviewerID,
		Info:         utils.SanitizeString(p.Info),
		Reason:       utils.SanitizeString(p.Reason),
		TargetStatus: domainwf.State(p.TargetStatus),
	}
	if err := utils.ValidateMaxLength("info", out.Info, maxDescriptionLength); err != nil {
		return out, invalid("info", err)
	}
	if err := utils.ValidateMaxLength("reason", out.Reason, maxDescriptionLength); err != nil {
		return out, invalid("reason", err)
	}

	if trigger == domainwf.TriggerAssignReviewer && p.ReviewerID != "" {
		user, err := s.userRepo.GetByID(ctx, p.ReviewerID)
		if err != nil {
			return out, fmt.Errorf("lookup reviewer: %w", err)
		}
		if user != nil {
			out.ReviewerRole = user.Role
		}
	}

	return out, nil
}

func noteFor(p domainwf.Payload) string {
	switch {
	case p.Reason != "":
		return p.Reason
	case p.Info != "":
		return p.Info
	case p.ReviewerID != "":
		return "reviewer " + p.ReviewerID
	}
	return ""
}

// translateWorkflowError maps guard failures onto the service error vocabulary
func translateWorkflowError(err error) error {
	var fieldErr *appwf.FieldError
	switch {
	case errors.Is(err, domainwf.ErrActorMismatch):
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	case errors.As(err, &fieldErr):
		return &ValidationError{Field: fieldErr.Field, Message: fieldErr.Message}
	case errors.Is(err, domainwf.ErrGuardFailed):
		return &ValidationError{Field: "payload", Message: err.Error()}
	default:
		return err
	}
}

// RetryAssignment re-runs auto-assignment for a report still waiting in CREATED
func (s *reportServiceImpl) RetryAssignment(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error) {
	if caller.Role != entity.RoleSupervisor && caller.Role != entity.RoleAdmin && caller.Role != entity.RoleSystem {
		return nil, fmt.Errorf("%w: role %s cannot retry assignment", ErrNotAuthorized, caller.Role)
	}

	report, err := s.loadVisible(ctx, caller, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != entity.StatusCreated {
		return nil, fmt.Errorf("%w: report %d is %s", ErrInvalidTransition, reportID, report.Status)
	}

	assigned, err := s.autoAssign(ctx, report)
	if err != nil {
		return nil, translateWorkflowError(err)
	}
	if assigned == nil {
		return report, nil
	}

	if s.notifier != nil {
		s.notifier.OnStatusChanged(ctx, assigned, report.Status, entity.SystemCaller, domainwf.TriggerAutoAssign.String())
	}

	return assigned, nil
}

// ListVisible returns the reports caller may see that match filter
func (s *reportServiceImpl) ListVisible(ctx context.Context, caller entity.Caller, filter port.ReportFilter) ([]*entity.Report, error) {
	scope, ok := access.ScopeFor(caller)
	if !ok {
		return nil, fmt.Errorf("%w: role %s cannot list reports", ErrNotAuthorized, caller.Role)
	}

	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	reports, err := s.reportRepo.List(ctx, scope, filter)
	if err != nil {
		s.logger.Error("Failed to list reports", "error", err, "caller_id", caller.ID)
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return reports, nil
}

// GetReport returns one report if caller may see it
func (s *reportServiceImpl) GetReport(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error) {
	return s.loadVisible(ctx, caller, reportID)
}

// AllowedActions lists the actions caller's role has an edge for from the report's status.
// Ownership guards are checked on Transition, so a listed action can still be refused.
func (s *reportServiceImpl) AllowedActions(caller entity.Caller, report *entity.Report) ([]string, error) {
	triggers, err := s.engine.PermittedActions(report, caller.Role)
	if err != nil {
		return nil, fmt.Errorf("allowed actions: %w", err)
	}

	actions := make([]string, 0, len(triggers))
	for _, t := range triggers {
		actions = append(actions, t.String())
	}
	return actions, nil
}

// History returns the audit trail of a report if caller may see it
func (s *reportServiceImpl) History(ctx context.Context, caller entity.Caller, reportID int64) ([]*entity.ReportHistory, error) {
	if _, err := s.loadVisible(ctx, caller, reportID); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return history, nil
}

func (s *reportServiceImpl) loadVisible(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("Failed to get report", "error", err, "report_id", reportID)
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report == nil || !access.CanView(caller, report) {
		return nil, fmt.Errorf("%w: report %d", ErrNotAuthorized, reportID)
	}
	return report, nil
}

func validateCreateInput(in *CreateReportInput) error {
	in.Description = utils.SanitizeString(in.Description)
	in.AdministrationRoute = utils.SanitizeString(in.AdministrationRoute)
	in.Dosage = utils.SanitizeString(in.Dosage)
	in.Frequency = utils.SanitizeString(in.Frequency)

	if err := utils.ValidateIdentifier("medication_id", in.MedicationID); err != nil {
		return invalid("medication_id", err)
	}
	if err := utils.ValidateText("description", in.Description, maxDescriptionLength); err != nil {
		return invalid("description", err)
	}
	if err := utils.ValidateDateRange(in.StartDate, in.EndDate); err != nil {
		field := "end_date"
		if in.StartDate.IsZero() {
			field = "start_date"
		}
		return invalid(field, err)
	}
	if !entity.IsValidSeverity(in.Severity) {
		return invalidf("severity", "unknown severity %q", in.Severity)
	}
	if !entity.IsValidReportType(in.Type) {
		return invalidf("type", "unknown type %q", in.Type)
	}
	for field, value := range map[string]string{
		"administration_route": in.AdministrationRoute,
		"dosage":               in.Dosage,
		"frequency":            in.Frequency,
	} {
		if err := utils.ValidateMaxLength(field, value, maxFreeTextLength); err != nil {
			return invalid(field, err)
		}
	}
	return nil
}

func normalizeFilter(f *port.ReportFilter) error {
	if f.Severity != "" && !entity.IsValidSeverity(f.Severity) {
		return invalidf("severity", "unknown severity %q", f.Severity)
	}
	if f.Type != "" && !entity.IsValidReportType(f.Type) {
		return invalidf("type", "unknown type %q", f.Type)
	}
	if f.Status != "" {
		if _, err := domainwf.ParseState(f.Status); err != nil {
			return invalid("status", err)
		}
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return invalidf("date_to", "is before date_from")
	}
	if f.Offset < 0 {
		return invalidf("offset", "must not be negative")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return nil
}
