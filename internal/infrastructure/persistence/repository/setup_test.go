package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/sqlite"
	"github.com/medialert/reportflow/migrations"
	"github.com/medialert/reportflow/pkg/database"
)

var baseTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sqlite.DB {
	t.Helper()

	raw, err := database.New(database.Config{Path: database.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = database.NewMigrator(raw, zap.NewNop()).Run(migrations.FS)
	require.NoError(t, err)

	return sqlite.NewDB(raw.DB, zap.NewNop())
}

func newReport(patientID, institutionID string, createdAt time.Time) *entity.Report {
	return &entity.Report{
		PatientID:     patientID,
		MedicationID:  "med-1",
		InstitutionID: institutionID,
		Description:   "nausea",
		StartDate:     createdAt.AddDate(0, 0, -1),
		Severity:      entity.SeverityLeve,
		Type:          entity.ReportTypeA,
		Status:        entity.StatusCreated,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func mustCreateReport(t *testing.T, repo interface {
	Create(context.Context, *entity.Report) error
}, r *entity.Report) *entity.Report {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), r))
	return r
}
