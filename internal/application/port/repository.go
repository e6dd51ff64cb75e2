package port

import (
	"context"
	"time"

	"github.com/medialert/reportflow/internal/domain/access"
	"github.com/medialert/reportflow/internal/domain/assignment"
	"github.com/medialert/reportflow/internal/domain/entity"
)

// ReportFilter narrows a visible-report listing. Empty fields do not constrain.
type ReportFilter struct {
	Severity      string
	MedicationID  string
	Status        string
	Type          string
	InstitutionID string
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// ReportRepository defines persistence operations for Report
type ReportRepository interface {
	// Create inserts a new report and sets its ID and Version
	Create(ctx context.Context, report *entity.Report) error

	// GetByID returns nil, nil when the report does not exist
	GetByID(ctx context.Context, id int64) (*entity.Report, error)

	// Save writes report if the stored version still equals expectedVersion,
	// then bumps report.Version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, report *entity.Report, expectedVersion int64) error

	// QueryReviewerWorkload returns every professional with the number of
	// reports assigned to them. institutionID is ignored for ScopeGlobal.
	QueryReviewerWorkload(ctx context.Context, institutionID string, scope assignment.Scope) ([]entity.ReviewerCandidate, error)

	// List returns the reports inside scope matching filter, newest first
	List(ctx context.Context, scope access.Scope, filter ReportFilter) ([]*entity.Report, error)
}

// HistoryRepository defines persistence operations for ReportHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ReportHistory) error
	GetByReportID(ctx context.Context, reportID int64) ([]*entity.ReportHistory, error)
}

// UserRepository defines persistence operations for the user directory
type UserRepository interface {
	// Upsert inserts the user or updates role, institution and display name
	Upsert(ctx context.Context, user *entity.User) error

	// GetByID returns nil, nil when the user does not exist
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// ListByRole returns users holding role. An empty institutionID matches all institutions.
	ListByRole(ctx context.Context, role entity.Role, institutionID string) ([]*entity.User, error)
}

// AlertRepository defines persistence operations for AlertNotification
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.AlertNotification) error
	GetByID(ctx context.Context, id int64) (*entity.AlertNotification, error)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.AlertNotification, error)
	MarkRead(ctx context.Context, id int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
