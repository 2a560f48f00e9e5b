package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/scrutor/internal/models"
)

func TestSubmitRunsAnalyzerToSuccess(t *testing.T) {
	env := newTestEnv(t, 0, 0, successCommand)
	ctx := context.Background()

	job, err := env.service.Submit(ctx, env.user, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.FromCache {
		t.Error("fresh job must not be marked from cache")
	}

	final := waitTerminal(t, env.manager.Jobs(), job.ID)
	if final.Status != models.JobStatusSuccess {
		t.Fatalf("expected Success, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.StartDate == nil || final.EndDate == nil {
		t.Error("terminal job must carry start and end dates")
	}

	report, err := env.manager.Reports().GetReportByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if !strings.Contains(report.Full, "verdict") {
		t.Errorf("full section lost: %q", report.Full)
	}

	artifacts, err := env.manager.Reports().ListArtifactsByJob(ctx, job.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListArtifactsByJob failed: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].DataType != "ip" || artifacts[0].Data != "203.0.113.9" {
		t.Errorf("artifact not normalized: %+v", artifacts[0])
	}
}

func TestSubmitAnalyzerReportsFailure(t *testing.T) {
	env := newTestEnv(t, 0, 0, failCommand)

	job, err := env.service.Submit(context.Background(), env.user, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitTerminal(t, env.manager.Jobs(), job.ID)
	if final.Status != models.JobStatusFailure {
		t.Fatalf("expected Failure, got %s", final.Status)
	}
	if final.ErrorMessage != "analysis refused" {
		t.Errorf("analyzer's error message lost: %q", final.ErrorMessage)
	}
}

func TestSubmitInvalidOutput(t *testing.T) {
	env := newTestEnv(t, 0, 0, garbageCommand)

	job, err := env.service.Submit(context.Background(), env.user, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitTerminal(t, env.manager.Jobs(), job.ID)
	if final.Status != models.JobStatusFailure {
		t.Fatalf("expected Failure, got %s", final.Status)
	}
	if !strings.HasPrefix(final.ErrorMessage, "Invalid output\n") {
		t.Errorf("expected Invalid output prefix: %q", final.ErrorMessage)
	}
	// Both streams are quoted, stderr first
	if !strings.Contains(final.ErrorMessage, "Traceback") {
		t.Errorf("stderr not quoted: %q", final.ErrorMessage)
	}
	if !strings.Contains(final.ErrorMessage, "not json") {
		t.Errorf("stdout not quoted: %q", final.ErrorMessage)
	}
	if strings.Index(final.ErrorMessage, "Traceback") > strings.Index(final.ErrorMessage, "not json") {
		t.Errorf("stderr should precede stdout: %q", final.ErrorMessage)
	}
}

func TestSubmitAnalyzerReadsInputDocument(t *testing.T) {
	// cat echoes the input document back; it parses as JSON but has no
	// success field, so the job fails while preserving what was sent.
	env := newTestEnv(t, 0, 0, echoCommand)

	job, err := env.service.Submit(context.Background(), env.user, env.analyzer.ID, ipSubmission("198.51.100.7"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitTerminal(t, env.manager.Jobs(), job.ID)
	if final.Status != models.JobStatusFailure {
		t.Fatalf("expected Failure, got %s", final.Status)
	}
	if !strings.Contains(final.Input, "198.51.100.7") {
		t.Errorf("input diagnostic missing observable: %q", final.Input)
	}
	if !strings.Contains(final.Input, `"dataType":"ip"`) {
		t.Errorf("input diagnostic missing dataType: %q", final.Input)
	}
}

func TestSubmitTimeoutKillsProcess(t *testing.T) {
	env := newTestEnv(t, 0, 300*time.Millisecond, `sleep 30`)

	job, err := env.service.Submit(context.Background(), env.user, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitTerminal(t, env.manager.Jobs(), job.ID)
	if final.Status != models.JobStatusFailure {
		t.Fatalf("expected Failure, got %s", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "timeout") {
		t.Errorf("expected timeout message, got %q", final.ErrorMessage)
	}
}

func TestSubmitRejectsUnknownAnalyzer(t *testing.T) {
	env := newTestEnv(t, 0, 0, successCommand)

	_, err := env.service.Submit(context.Background(), env.user, "missing_analyzer", ipSubmission("1.2.3.4"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitRejectsCrossOrganization(t *testing.T) {
	env := newTestEnv(t, 0, 0, successCommand)
	outsider := &models.User{ID: "eve", Organization: "org2"}

	_, err := env.service.Submit(context.Background(), outsider, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("cross-org submission should read as not found, got %v", err)
	}
}

func TestSubmitRejectsUnacceptedDataType(t *testing.T) {
	env := newTestEnv(t, 0, 0, successCommand)

	_, err := env.service.Submit(context.Background(), env.user, env.analyzer.ID, map[string]interface{}{
		"dataType": "registry",
		"data":     "HKLM\\Software",
	})
	if err == nil {
		t.Fatal("expected error for unaccepted data type")
	}

	var checkErr *models.AttributeCheckingError
	if !errors.As(err, &checkErr) {
		t.Errorf("expected attribute error, got %T", err)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	env := newTestEnv(t, 0, 0, successCommand)
	ctx := context.Background()

	job, err := env.service.Submit(ctx, env.user, env.analyzer.ID, ipSubmission("1.2.3.4"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, env.manager.Jobs(), job.ID)

	if err := env.service.Delete(ctx, job.ID, "org1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Record survives with Deleted status
	loaded, err := env.manager.Jobs().GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("deleted job should still be readable: %v", err)
	}
	if loaded.Status != models.JobStatusDeleted {
		t.Errorf("expected Deleted, got %s", loaded.Status)
	}

	// Deleting again is a no-op
	if err := env.service.Delete(ctx, job.ID, "org1"); err != nil {
		t.Errorf("repeat delete should succeed: %v", err)
	}

	// Cross-org delete reads as not found
	if err := env.service.Delete(ctx, job.ID, "org2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("cross-org delete should be not found, got %v", err)
	}
}
