// -----------------------------------------------------------------------
// Facade - Organization-scoped job, report and artifact reads
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// ListOptions narrows a job listing. Range follows the wire convention
// "all" or "from-to" (zero-based, inclusive-exclusive).
type ListOptions struct {
	DataTypeFilter string
	DataFilter     string
	AnalyzerFilter string
	Range          string
}

// Facade serves every read path. All lookups are scoped to the caller's
// organization: an entity in another organization reads as not found.
type Facade struct {
	jobs    interfaces.JobStorage
	reports interfaces.ReportStorage
	logger  arbor.ILogger
}

// NewFacade creates the read facade
func NewFacade(jobs interfaces.JobStorage, reports interfaces.ReportStorage, logger arbor.ILogger) *Facade {
	return &Facade{
		jobs:    jobs,
		reports: reports,
		logger:  logger,
	}
}

// ListForUser lists the organization's jobs, newest first. Deleted jobs
// are excluded.
func (f *Facade) ListForUser(ctx context.Context, user *models.User, opts *ListOptions) ([]*models.Job, error) {
	filter := &interfaces.JobFilter{
		Organization:   user.Organization,
		ExcludeDeleted: true,
	}
	if opts != nil {
		filter.DataType = opts.DataTypeFilter
		filter.Data = opts.DataFilter
		filter.Analyzer = opts.AnalyzerFilter

		offset, limit, err := parseRange(opts.Range)
		if err != nil {
			return nil, err
		}
		filter.Offset = offset
		filter.Limit = limit
	}

	return f.jobs.ListJobs(ctx, filter)
}

// GetForUser fetches one job visible to the organization
func (f *Facade) GetForUser(ctx context.Context, user *models.User, jobID string) (*models.Job, error) {
	job, err := f.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Organization != user.Organization {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	return job, nil
}

// GetReport fetches the report of a finished job
func (f *Facade) GetReport(ctx context.Context, user *models.User, jobID string) (*models.Report, error) {
	job, err := f.GetForUser(ctx, user, jobID)
	if err != nil {
		return nil, err
	}
	return f.reports.GetReportByJob(ctx, job.ID)
}

// WaitReport polls until the job reaches a terminal state or atMost
// elapses, then returns the job with whatever report exists. A job still
// running at the deadline is returned as-is with a nil report.
func (f *Facade) WaitReport(ctx context.Context, user *models.User, jobID string, atMost time.Duration) (*models.Job, *models.Report, error) {
	deadline := time.Now().Add(atMost)

	for {
		job, err := f.GetForUser(ctx, user, jobID)
		if err != nil {
			return nil, nil, err
		}
		if job.Status.Terminal() || job.Status == models.JobStatusDeleted || time.Now().After(deadline) {
			report, err := f.reports.GetReportByJob(ctx, job.ID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					// No report is a valid outcome for failed or running jobs
					return job, nil, nil
				}
				return nil, nil, err
			}
			return job, report, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// ListArtifacts pages through the artifacts extracted from a job's report
func (f *Facade) ListArtifacts(ctx context.Context, user *models.User, jobID, rangeSpec string) ([]*models.Artifact, error) {
	job, err := f.GetForUser(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	offset, limit, err := parseRange(rangeSpec)
	if err != nil {
		return nil, err
	}
	return f.reports.ListArtifactsByJob(ctx, job.ID, offset, limit)
}

// Stats aggregates the organization's job counts by status
func (f *Facade) Stats(ctx context.Context, user *models.User) (map[string]int, error) {
	return f.jobs.JobStats(ctx, user.Organization)
}

// parseRange parses the "all" / "from-to" wire convention into an offset
// and limit. Empty means all.
func parseRange(spec string) (offset, limit int, err error) {
	if spec == "" || spec == "all" {
		return 0, 0, nil
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q: expected \"all\" or \"from-to\"", spec)
	}

	from, err := strconv.Atoi(parts[0])
	if err != nil || from < 0 {
		return 0, 0, fmt.Errorf("invalid range %q: bad start", spec)
	}
	to, err := strconv.Atoi(parts[1])
	if err != nil || to < from {
		return 0, 0, fmt.Errorf("invalid range %q: bad end", spec)
	}

	return from, to - from, nil
}
