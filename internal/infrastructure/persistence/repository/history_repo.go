package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history row
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ReportHistory) error {
	query := `
		INSERT INTO report_history (
			report_id, actor_id, actor_role, action,
			previous_status, new_status, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		history.ReportID,
		history.ActorID,
		history.ActorRole.String(),
		history.Action,
		history.PreviousStatus,
		history.NewStatus,
		history.Note,
		history.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history", zap.Int64("report_id", history.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByReportID retrieves the audit trail of a report in insertion order
func (r *HistoryRepository) GetByReportID(ctx context.Context, reportID int64) ([]*entity.ReportHistory, error) {
	query := `
		SELECT id, report_id, actor_id, actor_role, action,
			previous_status, new_status, note, created_at
		FROM report_history
		WHERE report_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	histories := []*entity.ReportHistory{}
	for rows.Next() {
		var h entity.ReportHistory
		var role string
		err := rows.Scan(
			&h.ID,
			&h.ReportID,
			&h.ActorID,
			&role,
			&h.Action,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.Note,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.ActorRole = entity.Role(role)
		h.CreatedAt = h.CreatedAt.UTC()
		histories = append(histories, &h)
	}

	return histories, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
