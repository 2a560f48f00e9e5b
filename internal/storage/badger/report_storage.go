package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report ID is required")
	}
	if report.JobID == "" {
		return fmt.Errorf("report parent job ID is required")
	}

	if err := s.db.Store().Upsert(report.ID, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ReportStorage) GetReportByJob(ctx context.Context, jobID string) (*models.Report, error) {
	var reports []models.Report
	if err := s.db.Store().Find(&reports, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("report for job %s: %w", jobID, models.ErrNotFound)
	}
	return &reports[0], nil
}

func (s *ReportStorage) SaveArtifact(ctx context.Context, artifact *models.Artifact) error {
	if artifact.ID == "" {
		return fmt.Errorf("artifact ID is required")
	}
	if artifact.ReportID == "" {
		return fmt.Errorf("artifact parent report ID is required")
	}

	if err := s.db.Store().Upsert(artifact.ID, artifact); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (s *ReportStorage) ListArtifactsByJob(ctx context.Context, jobID string, offset, limit int) ([]*models.Artifact, error) {
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")
	if offset > 0 {
		query = query.Skip(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var artifacts []models.Artifact
	if err := s.db.Store().Find(&artifacts, query); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	result := make([]*models.Artifact, len(artifacts))
	for i := range artifacts {
		result[i] = &artifacts[i]
	}
	return result, nil
}

func (s *ReportStorage) CountArtifactsByJob(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.Artifact{}, badgerhold.Where("JobID").Eq(jobID))
	if err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return int(count), nil
}
