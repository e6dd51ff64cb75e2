package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/access"
	"github.com/medialert/reportflow/internal/domain/assignment"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/sqlite"
)

const reportColumns = `
	id, patient_id, medication_id, institution_id, description,
	start_date, end_date, severity, type,
	administration_route, dosage, frequency,
	status, reviewer_id, additional_info, reclamation_reason, revertion_reason,
	chat_open, version, created_at, updated_at`

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report at version 1
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (
			patient_id, medication_id, institution_id, description,
			start_date, end_date, severity, type,
			administration_route, dosage, frequency,
			status, reviewer_id, additional_info, reclamation_reason, revertion_reason,
			chat_open, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		report.PatientID,
		report.MedicationID,
		report.InstitutionID,
		report.Description,
		report.StartDate.UTC(),
		nullTime(report.EndDate),
		report.Severity,
		report.Type,
		report.AdministrationRoute,
		report.Dosage,
		report.Frequency,
		report.Status,
		nullString(report.ReviewerID),
		nullString(report.AdditionalInfo),
		nullString(report.ReclamationReason),
		nullString(report.RevertionReason),
		report.ChatOpen,
		report.CreatedAt.UTC(),
		report.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.String("patient_id", report.PatientID), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	report.ID = id
	report.Version = 1
	return nil
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	report, err := scanReport(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// Save writes every mutable column if the stored version equals expectedVersion.
// Owner, institution and creation fields are never rewritten.
func (r *ReportRepository) Save(ctx context.Context, report *entity.Report, expectedVersion int64) error {
	query := `
		UPDATE reports SET
			medication_id = ?, description = ?, start_date = ?, end_date = ?,
			severity = ?, type = ?, administration_route = ?, dosage = ?, frequency = ?,
			status = ?, reviewer_id = ?, additional_info = ?, reclamation_reason = ?, revertion_reason = ?,
			chat_open = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		report.MedicationID,
		report.Description,
		report.StartDate.UTC(),
		nullTime(report.EndDate),
		report.Severity,
		report.Type,
		report.AdministrationRoute,
		report.Dosage,
		report.Frequency,
		report.Status,
		nullString(report.ReviewerID),
		nullString(report.AdditionalInfo),
		nullString(report.ReclamationReason),
		nullString(report.RevertionReason),
		report.ChatOpen,
		report.UpdatedAt.UTC(),
		report.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save report", zap.Int64("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to save report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		r.logger.Info("Report version conflict",
			zap.Int64("id", report.ID),
			zap.Int64("expected_version", expectedVersion))
		return fmt.Errorf("report %d at version %d: %w", report.ID, expectedVersion, port.ErrVersionConflict)
	}

	report.Version = expectedVersion + 1
	return nil
}

// QueryReviewerWorkload counts reports per professional
func (r *ReportRepository) QueryReviewerWorkload(ctx context.Context, institutionID string, scope assignment.Scope) ([]entity.ReviewerCandidate, error) {
	query := `
		SELECT u.id, u.institution_id, COUNT(rep.id)
		FROM users u
		LEFT JOIN reports rep ON rep.reviewer_id = u.id
		WHERE u.role = ?
	`
	args := []interface{}{entity.RoleProfessional.String()}
	if scope == assignment.ScopeInstitution {
		query += ` AND u.institution_id = ?`
		args = append(args, institutionID)
	}
	query += ` GROUP BY u.id, u.institution_id ORDER BY u.id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query reviewer workload", zap.Error(err))
		return nil, fmt.Errorf("failed to query reviewer workload: %w", err)
	}
	defer rows.Close()

	var candidates []entity.ReviewerCandidate
	for rows.Next() {
		var c entity.ReviewerCandidate
		if err := rows.Scan(&c.UserID, &c.InstitutionID, &c.CurrentAssignedReportCount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// List returns the reports inside scope that match filter, newest first
func (r *ReportRepository) List(ctx context.Context, scope access.Scope, filter port.ReportFilter) ([]*entity.Report, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if !scope.All {
		if scope.InstitutionID != "" {
			add("institution_id = ?", scope.InstitutionID)
		}
		if scope.ReviewerID != "" {
			add("reviewer_id = ?", scope.ReviewerID)
		}
		if scope.PatientID != "" {
			add("patient_id = ?", scope.PatientID)
		}
		if len(conds) == 0 {
			// A non-global scope with no constraint would leak everything
			return []*entity.Report{}, nil
		}
	}

	if filter.Severity != "" {
		add("severity = ?", filter.Severity)
	}
	if filter.MedicationID != "" {
		add("medication_id = ?", filter.MedicationID)
	}
	if filter.Status != "" {
		add("status = ?", filter.Status)
	}
	if filter.Type != "" {
		add("type = ?", filter.Type)
	}
	if filter.InstitutionID != "" {
		add("institution_id = ?", filter.InstitutionID)
	}
	if filter.DateFrom != nil {
		add("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		add("created_at <= ?", filter.DateTo.UTC())
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*entity.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func (r *ReportRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var report entity.Report
	var endDate sql.NullTime
	var reviewerID, additionalInfo, reclamationReason, revertionReason sql.NullString

	err := row.Scan(
		&report.ID,
		&report.PatientID,
		&report.MedicationID,
		&report.InstitutionID,
		&report.Description,
		&report.StartDate,
		&endDate,
		&report.Severity,
		&report.Type,
		&report.AdministrationRoute,
		&report.Dosage,
		&report.Frequency,
		&report.Status,
		&reviewerID,
		&additionalInfo,
		&reclamationReason,
		&revertionReason,
		&report.ChatOpen,
		&report.Version,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		t := endDate.Time.UTC()
		report.EndDate = &t
	}
	report.ReviewerID = stringPtr(reviewerID)
	report.AdditionalInfo = stringPtr(additionalInfo)
	report.ReclamationReason = stringPtr(reclamationReason)
	report.RevertionReason = stringPtr(revertionReason)
	report.StartDate = report.StartDate.UTC()
	report.CreatedAt = report.CreatedAt.UTC()
	report.UpdatedAt = report.UpdatedAt.UTC()

	return &report, nil
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
