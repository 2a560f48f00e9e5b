// -----------------------------------------------------------------------
// Admission - Rate limiting and the similar-job cache
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// AdmissionController gates job creation: the per-analyzer sliding-window
// rate limit runs first, then the similar-job cache may satisfy the
// submission without creating anything.
type AdmissionController struct {
	jobs     interfaces.JobStorage
	cacheTTL time.Duration
	logger   arbor.ILogger
}

// NewAdmissionController creates the admission gate. A zero cacheTTL
// disables the similar-job cache entirely.
func NewAdmissionController(jobs interfaces.JobStorage, cacheTTL time.Duration, logger arbor.ILogger) *AdmissionController {
	return &AdmissionController{
		jobs:     jobs,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// CheckRateLimit rejects the submission when the analyzer has already
// consumed its quota inside the sliding window. Jobs of every status
// count, including failed ones; force does not bypass this check.
func (a *AdmissionController) CheckRateLimit(ctx context.Context, analyzer *models.Analyzer) error {
	if analyzer.Rate == nil || analyzer.RateUnit == nil {
		return nil
	}
	if !analyzer.RateUnit.Valid() {
		return fmt.Errorf("analyzer %s has invalid rate unit %q", analyzer.ID, *analyzer.RateUnit)
	}

	since := time.Now().Add(-analyzer.RateUnit.Duration())
	count, err := a.jobs.CountJobsSince(ctx, analyzer.ID, since)
	if err != nil {
		return err
	}

	if count >= *analyzer.Rate {
		a.logger.Warn().
			Str("analyzer_id", analyzer.ID).
			Int("count", count).
			Int("rate", *analyzer.Rate).
			Str("rate_unit", string(*analyzer.RateUnit)).
			Msg("Analyzer rate limit exceeded")
		return fmt.Errorf("analyzer %s: %d jobs in the last %s: %w",
			analyzer.ID, count, *analyzer.RateUnit, models.ErrRateLimitExceeded)
	}
	return nil
}

// FindCached returns an equivalent recent job when the cache can serve
// this submission, or nil when a fresh job must be created. The returned
// job carries FromCache=true as a response-only marker.
func (a *AdmissionController) FindCached(ctx context.Context, analyzer *models.Analyzer, sub *models.Submission) (*models.Job, error) {
	if sub.Force || a.cacheTTL <= 0 {
		return nil, nil
	}

	observableKey := sub.Data
	if sub.Attachment != nil {
		observableKey = sub.Attachment.ID
	}

	query := &interfaces.SimilarJobQuery{
		AnalyzerID:    analyzer.ID,
		DataType:      sub.DataType,
		TLP:           sub.TLP,
		ObservableKey: observableKey,
		ParametersKey: models.EncodeParameters(sub.Parameters),
		Since:         time.Now().Add(-a.cacheTTL),
	}

	job, err := a.jobs.FindSimilarJob(ctx, query)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	a.logger.Info().
		Str("job_id", job.ID).
		Str("analyzer_id", analyzer.ID).
		Str("status", string(job.Status)).
		Msg("Submission served from similar-job cache")

	job.FromCache = true
	return job, nil
}
