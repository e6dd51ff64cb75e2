package port

import (
	"context"

	"github.com/medialert/reportflow/internal/domain/entity"
)

// NotificationTrigger is told about report lifecycle changes after they commit.
// Implementations must not block the caller.
type NotificationTrigger interface {
	OnReportCreated(ctx context.Context, report *entity.Report)
	OnStatusChanged(ctx context.Context, report *entity.Report, previousStatus string, actor entity.Caller, action string)
}
