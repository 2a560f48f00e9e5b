package badger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// claimMu serialises the read-modify-write in ClaimJob and FinishJob.
	// BadgerHold has no per-record CAS, so the single-winner guarantees
	// for the Waiting -> InProgress and InProgress -> terminal transitions
	// are enforced here.
	claimMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	// FromCache is a read-side projection, never a stored fact
	job.FromCache = false

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) UpdateJob(ctx context.Context, job *models.Job) error {
	return s.SaveJob(ctx, job)
}

// ClaimJob transitions a Waiting job to InProgress. Only one caller wins;
// a job found in any other state yields (nil, nil) so racing runners and
// repeated recovery passes stay idempotent.
func (s *JobStorage) ClaimJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusWaiting {
		return nil, nil
	}

	job.MarkStarted()
	if err := s.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// FinishJob writes a terminal verdict only while the stored status is
// still InProgress, so a stale sweep racing a finishing run cannot
// overwrite the other's terminal state.
func (s *JobStorage) FinishJob(ctx context.Context, job *models.Job) (bool, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	stored, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if stored.Status != models.JobStatusInProgress {
		return false, nil
	}

	if err := s.SaveJob(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, filter *interfaces.JobFilter) ([]*models.Job, error) {
	jobs, err := s.findFiltered(filter)
	if err != nil {
		return nil, err
	}

	// Apply the range after substring filtering
	if filter != nil && filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*models.Job{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter != nil && filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

func (s *JobStorage) CountJobs(ctx context.Context, filter *interfaces.JobFilter) (int, error) {
	jobs, err := s.findFiltered(filter)
	if err != nil {
		return 0, err
	}
	return len(jobs), nil
}

// findFiltered fetches by indexed fields and applies the substring filters
// in Go; BadgerHold's query DSL has no substring criterion.
func (s *JobStorage) findFiltered(filter *interfaces.JobFilter) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if filter != nil {
		if filter.Organization != "" {
			query = badgerhold.Where("Organization").Eq(filter.Organization)
		}
		if filter.Status != "" {
			query = query.And("Status").Eq(filter.Status)
		} else if filter.ExcludeDeleted {
			query = query.And("Status").Ne(models.JobStatusDeleted)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if filter != nil {
			if filter.DataType != "" && !strings.Contains(job.DataType, filter.DataType) {
				continue
			}
			if filter.Data != "" && !strings.Contains(job.Data, filter.Data) {
				continue
			}
			if filter.Analyzer != "" &&
				!strings.Contains(job.AnalyzerID, filter.Analyzer) &&
				!strings.Contains(job.AnalyzerName, filter.Analyzer) {
				continue
			}
		}
		result = append(result, job)
	}
	return result, nil
}

func (s *JobStorage) CountJobsSince(ctx context.Context, analyzerID string, since time.Time) (int, error) {
	count, err := s.db.Store().Count(&models.Job{},
		badgerhold.Where("AnalyzerID").Eq(analyzerID).
			And("CreatedAt").Ge(since))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs for analyzer %s: %w", analyzerID, err)
	}
	return int(count), nil
}

func (s *JobStorage) FindSimilarJob(ctx context.Context, q *interfaces.SimilarJobQuery) (*models.Job, error) {
	// Failure and Deleted jobs never serve as cache hits
	query := badgerhold.Where("AnalyzerID").Eq(q.AnalyzerID).
		And("Status").In(models.JobStatusWaiting, models.JobStatusInProgress, models.JobStatusSuccess).
		And("DataType").Eq(q.DataType).
		And("TLP").Eq(q.TLP).
		And("ParametersKey").Eq(q.ParametersKey).
		SortBy("CreatedAt").Reverse()

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to search similar jobs: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]
		if job.ObservableKey() != q.ObservableKey {
			continue
		}
		if job.ReferenceDate().Before(q.Since) {
			continue
		}
		return job, nil
	}
	return nil, nil
}

func (s *JobStorage) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to get jobs by status: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) JobStats(ctx context.Context, organization string) (map[string]int, error) {
	var jobs []models.Job
	query := badgerhold.Where("Organization").Eq(organization)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to aggregate jobs: %w", err)
	}

	stats := make(map[string]int)
	for i := range jobs {
		stats[string(jobs[i].Status)]++
	}
	return stats, nil
}
