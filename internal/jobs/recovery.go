// -----------------------------------------------------------------------
// Scanner - Startup recovery and the periodic stale-job sweep
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

// Scanner repairs jobs orphaned by a crash or restart. Waiting jobs lost
// their queue slot and are re-driven; InProgress jobs whose process died
// with the old instance are failed once they exceed the stale age.
type Scanner struct {
	jobs       interfaces.JobStorage
	service    *Service
	staleAfter time.Duration
	logger     arbor.ILogger
}

// NewScanner creates the recovery scanner. A zero staleAfter disables the
// stale InProgress check.
func NewScanner(jobs interfaces.JobStorage, service *Service, staleAfter time.Duration, logger arbor.ILogger) *Scanner {
	return &Scanner{
		jobs:       jobs,
		service:    service,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// RecoverOnStartup re-drives Waiting jobs and sweeps stale InProgress
// jobs once, before the server starts accepting submissions.
func (sc *Scanner) RecoverOnStartup(ctx context.Context) error {
	waiting, err := sc.jobs.GetJobsByStatus(ctx, models.JobStatusWaiting)
	if err != nil {
		return fmt.Errorf("failed to scan waiting jobs: %w", err)
	}

	requeued := 0
	for _, job := range waiting {
		if err := sc.service.Enqueue(job.ID); err != nil {
			sc.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to requeue waiting job")
			continue
		}
		requeued++
	}
	if len(waiting) > 0 {
		sc.logger.Info().
			Int("found", len(waiting)).
			Int("requeued", requeued).
			Msg("Waiting jobs recovered on startup")
	}

	return sc.SweepStale(ctx)
}

// SweepStale fails InProgress jobs older than the stale age. Runs on the
// cron schedule so jobs abandoned mid-flight do not hold cache hits and
// listings hostage forever.
func (sc *Scanner) SweepStale(ctx context.Context) error {
	if sc.staleAfter <= 0 {
		return nil
	}

	inProgress, err := sc.jobs.GetJobsByStatus(ctx, models.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to scan in-progress jobs: %w", err)
	}

	cutoff := time.Now().Add(-sc.staleAfter)
	swept := 0
	for _, job := range inProgress {
		if job.StartDate == nil || job.StartDate.After(cutoff) {
			continue
		}
		message := fmt.Sprintf("abandoned after %s in progress", sc.staleAfter)
		failed, err := sc.service.Fail(ctx, job, message)
		if err != nil {
			sc.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to sweep stale job")
			continue
		}
		if !failed {
			// Finished between the scan and the write
			continue
		}
		sc.logger.Warn().
			Str("job_id", job.ID).
			Str("started_at", job.StartDate.Format(time.RFC3339)).
			Msg("Stale in-progress job failed")
		swept++
	}

	if swept > 0 {
		sc.logger.Info().Int("count", swept).Msg("Stale jobs swept")
	}
	return nil
}
