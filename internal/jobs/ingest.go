// -----------------------------------------------------------------------
// Ingestor - Turns analyzer stdout into a report, artifacts and a verdict
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/analyzers"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"golang.org/x/sync/errgroup"
)

// invalidOutputLimit caps how much raw process output is quoted back in
// the error message of a job whose stdout was not valid JSON.
const invalidOutputLimit = 8192

// IngestResult is the terminal verdict derived from one analyzer run
type IngestResult struct {
	Status       models.JobStatus
	ErrorMessage string
	Input        string // diagnostic copy recorded on failure
}

// Ingestor persists the report and artifacts of a finished analyzer
// process and decides the job's terminal status.
type Ingestor struct {
	reports interfaces.ReportStorage
	logger  arbor.ILogger
}

// NewIngestor creates an ingestor over the report store
func NewIngestor(reports interfaces.ReportStorage, logger arbor.ILogger) *Ingestor {
	return &Ingestor{
		reports: reports,
		logger:  logger,
	}
}

// Ingest processes the run result of one job.
//
// Unparseable stdout fails the job quoting the process output. A parsed
// document with success=false fails the job with the analyzer's own error
// message. A successful document becomes one Report plus its artifacts.
func (ing *Ingestor) Ingest(ctx context.Context, job *models.Job, run *analyzers.RunResult) *IngestResult {
	output, err := models.ParseAnalyzerOutput(run.Stdout)
	if err != nil {
		// Quote stderr followed by stdout, truncated as one block
		raw := make([]byte, 0, len(run.Stderr)+len(run.Stdout))
		raw = append(raw, run.Stderr...)
		raw = append(raw, run.Stdout...)
		if len(raw) > invalidOutputLimit {
			raw = raw[:invalidOutputLimit]
		}
		ing.logger.Warn().
			Str("job_id", job.ID).
			Int("exit_code", run.ExitCode).
			Msg("Analyzer produced unparseable output")
		return &IngestResult{
			Status:       models.JobStatusFailure,
			ErrorMessage: "Invalid output\n" + string(raw),
		}
	}

	if !output.Success {
		return &IngestResult{
			Status:       models.JobStatusFailure,
			ErrorMessage: output.ErrorMessage,
			Input:        output.Input,
		}
	}

	report, err := models.NewReport(job.ID, output)
	if err != nil {
		return &IngestResult{
			Status:       models.JobStatusFailure,
			ErrorMessage: fmt.Sprintf("Report creation failure: %v", err),
			Input:        output.Input,
		}
	}

	if err := ing.reports.SaveReport(ctx, report); err != nil {
		return &IngestResult{
			Status:       models.JobStatusFailure,
			ErrorMessage: fmt.Sprintf("Report creation failure: %v", err),
			Input:        output.Input,
		}
	}

	if err := ing.saveArtifacts(ctx, job, report, output.Artifacts); err != nil {
		return &IngestResult{
			Status:       models.JobStatusFailure,
			ErrorMessage: fmt.Sprintf("Report creation failure: %v", err),
			Input:        output.Input,
		}
	}

	ing.logger.Info().
		Str("job_id", job.ID).
		Str("report_id", report.ID).
		Int("artifacts", len(output.Artifacts)).
		Msg("Analyzer report ingested")

	return &IngestResult{Status: models.JobStatusSuccess}
}

// saveArtifacts persists the extracted artifacts concurrently
func (ing *Ingestor) saveArtifacts(ctx context.Context, job *models.Job, report *models.Report, raw []map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range raw {
		artifact := models.NewArtifact(report.ID, job.ID, item)
		g.Go(func() error {
			return ing.reports.SaveArtifact(gctx, artifact)
		})
	}
	return g.Wait()
}
