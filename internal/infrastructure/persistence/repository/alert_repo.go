package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/sqlite"
)

// AlertRepository implements port.AlertRepository
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB, logger *zap.Logger) port.AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an unread alert
func (r *AlertRepository) Create(ctx context.Context, alert *entity.AlertNotification) error {
	query := `
		INSERT INTO alert_notifications (
			report_id, recipient_id, title, message, priority, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		alert.ReportID,
		alert.RecipientID,
		alert.Title,
		alert.Message,
		alert.Priority,
		alert.Read,
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create alert",
			zap.Int64("report_id", alert.ReportID),
			zap.String("recipient_id", alert.RecipientID),
			zap.Error(err))
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	alert.ID = id
	return nil
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*entity.AlertNotification, error) {
	query := `
		SELECT id, report_id, recipient_id, title, message, priority, read, created_at
		FROM alert_notifications
		WHERE id = ?
	`

	alert, err := scanAlert(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get alert", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// ListByRecipient returns a recipient's alerts, newest first
func (r *AlertRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.AlertNotification, error) {
	query := `
		SELECT id, report_id, recipient_id, title, message, priority, read, created_at
		FROM alert_notifications
		WHERE recipient_id = ?
	`
	args := []interface{}{recipientID}
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list alerts", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*entity.AlertNotification{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// MarkRead flags an alert as read
func (r *AlertRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE alert_notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to mark alert read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert not found: %d", id)
	}

	return nil
}

func scanAlert(row rowScanner) (*entity.AlertNotification, error) {
	var alert entity.AlertNotification
	err := row.Scan(
		&alert.ID,
		&alert.ReportID,
		&alert.RecipientID,
		&alert.Title,
		&alert.Message,
		&alert.Priority,
		&alert.Read,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	return &alert, nil
}

// Verify interface compliance
var _ port.AlertRepository = (*AlertRepository)(nil)
