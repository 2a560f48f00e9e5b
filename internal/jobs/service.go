// -----------------------------------------------------------------------
// Service - Job lifecycle orchestration: submit, execute, terminate
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/analyzers"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// Service drives jobs through their lifecycle. Submission is synchronous
// up to the Waiting record; execution happens on the worker pool.
type Service struct {
	jobs      interfaces.JobStorage
	registry  *analyzers.Service
	runner    analyzers.Runner
	inputs    *analyzers.InputBuilder
	admission *AdmissionController
	ingestor  *Ingestor
	pool      *WorkerPool
	timeout   time.Duration // per-run wall clock limit, 0 means none
	logger    arbor.ILogger
}

// NewService wires the job pipeline together
func NewService(
	jobs interfaces.JobStorage,
	registry *analyzers.Service,
	runner analyzers.Runner,
	inputs *analyzers.InputBuilder,
	admission *AdmissionController,
	ingestor *Ingestor,
	pool *WorkerPool,
	timeout time.Duration,
	logger arbor.ILogger,
) *Service {
	return &Service{
		jobs:      jobs,
		registry:  registry,
		runner:    runner,
		inputs:    inputs,
		admission: admission,
		ingestor:  ingestor,
		pool:      pool,
		timeout:   timeout,
		logger:    logger,
	}
}

// Submit handles one observable submission for a user's organization.
//
// Order matters: the cache runs before the rate limit, so a resubmission
// the cache can serve returns the prior job with FromCache set even when
// the analyzer is at quota. A cache hit consumes no capacity and creates
// nothing.
func (s *Service) Submit(ctx context.Context, user *models.User, analyzerID string, raw map[string]interface{}) (*models.Job, error) {
	sub, err := models.ParseSubmission(raw)
	if err != nil {
		return nil, err
	}

	analyzer, err := s.registry.GetForUser(ctx, analyzerID, user.Organization)
	if err != nil {
		return nil, err
	}

	return s.SubmitParsed(ctx, analyzer, sub)
}

// SubmitParsed runs admission and creates the job for an already-resolved
// analyzer and parsed submission.
func (s *Service) SubmitParsed(ctx context.Context, analyzer *models.Analyzer, sub *models.Submission) (*models.Job, error) {
	def, err := s.registry.ResolveDefinition(ctx, analyzer)
	if err != nil {
		return nil, err
	}
	if err := s.registry.CheckDataType(def, sub.DataType); err != nil {
		return nil, err
	}

	if cached, err := s.admission.FindCached(ctx, analyzer, sub); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	if err := s.admission.CheckRateLimit(ctx, analyzer); err != nil {
		return nil, err
	}

	job := models.NewJob(analyzer, sub)
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("analyzer_id", analyzer.ID).
		Str("data_type", job.DataType).
		Msg("Job created")

	if err := s.Enqueue(job.ID); err != nil {
		// The Waiting record survives; the recovery scanner re-drives it
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue job for execution")
	}

	return job, nil
}

// Enqueue schedules a job for execution on the worker pool
func (s *Service) Enqueue(jobID string) error {
	return s.pool.Submit(func(ctx context.Context) {
		s.Execute(ctx, jobID)
	})
}

// Execute claims and runs one job end to end. Safe to call concurrently
// and repeatedly for the same job: only the claim winner proceeds.
func (s *Service) Execute(ctx context.Context, jobID string) {
	job, err := s.jobs.ClaimJob(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to claim job")
		return
	}
	if job == nil {
		// Already claimed, finished or deleted
		return
	}

	result := s.runClaimed(ctx, job)

	job.MarkEnded(result.Status, result.ErrorMessage, result.Input)
	finished, err := s.jobs.FinishJob(ctx, job)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record terminal job state")
		return
	}
	if !finished {
		s.logger.Warn().Str("job_id", job.ID).Msg("Job already ended by another writer, verdict discarded")
		return
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Msg("Job finished")
}

// runClaimed executes the analyzer process for a claimed job and returns
// the terminal verdict.
func (s *Service) runClaimed(ctx context.Context, job *models.Job) *IngestResult {
	analyzer, err := s.registry.GetForUser(ctx, job.AnalyzerID, job.Organization)
	if err != nil {
		return failure(fmt.Sprintf("analyzer %s is no longer available: %v", job.AnalyzerID, err), "")
	}
	def, err := s.registry.ResolveDefinition(ctx, analyzer)
	if err != nil {
		return failure(err.Error(), "")
	}

	input, cleanup, err := s.inputs.Build(ctx, job, analyzer, def)
	if err != nil {
		return failure(fmt.Sprintf("failed to build analyzer input: %v", err), "")
	}
	defer cleanup()

	stdin, err := json.Marshal(input)
	if err != nil {
		return failure(fmt.Sprintf("failed to encode analyzer input: %v", err), "")
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run, err := s.runner.Run(runCtx, def.Command, def.BaseDirectory, stdin)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failure(fmt.Sprintf("timeout after %s", s.timeout), string(stdin))
		}
		return failure(fmt.Sprintf("analyzer process failed: %v", err), string(stdin))
	}

	result := s.ingestor.Ingest(ctx, job, run)
	if result.Status == models.JobStatusFailure && result.Input == "" {
		result.Input = string(stdin)
	}
	return result
}

// Fail forces an InProgress job into Failure with the given message.
// Used by the stale-job sweep; a job that finished between the scan and
// the write is left untouched and reported as false.
func (s *Service) Fail(ctx context.Context, job *models.Job, message string) (bool, error) {
	job.MarkEnded(models.JobStatusFailure, message, "")
	return s.jobs.FinishJob(ctx, job)
}

// Delete soft-deletes a job belonging to the user's organization. The
// record survives so history endures, but the job stops matching cache
// lookups and default listings.
func (s *Service) Delete(ctx context.Context, jobID, organization string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Organization != organization {
		return fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	if job.Status == models.JobStatusDeleted {
		return nil
	}

	job.Status = models.JobStatusDeleted
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job deleted")
	return nil
}

func failure(message, input string) *IngestResult {
	return &IngestResult{
		Status:       models.JobStatusFailure,
		ErrorMessage: message,
		Input:        input,
	}
}
