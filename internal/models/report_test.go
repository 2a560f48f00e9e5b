package models

import (
	"encoding/json"
	"testing"
)

func TestParseAnalyzerOutputSuccess(t *testing.T) {
	stdout := []byte(`{
		"success": true,
		"full": {"verdict": "malicious", "score": 87},
		"summary": {"taxonomies": []},
		"artifacts": [{"type": "ip", "value": "203.0.113.9"}]
	}`)

	output, err := ParseAnalyzerOutput(stdout)
	if err != nil {
		t.Fatalf("ParseAnalyzerOutput failed: %v", err)
	}
	if !output.Success {
		t.Error("expected success")
	}
	if len(output.Artifacts) != 1 {
		t.Errorf("expected 1 artifact, got %d", len(output.Artifacts))
	}
}

func TestParseAnalyzerOutputGarbage(t *testing.T) {
	if _, err := ParseAnalyzerOutput([]byte("Traceback (most recent call last):")); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestNewReportRequiresFullAndSummary(t *testing.T) {
	_, err := NewReport("job_1", &AnalyzerOutput{
		Success: true,
		Summary: map[string]interface{}{},
	})
	if err == nil {
		t.Error("expected error for missing full")
	}

	_, err = NewReport("job_1", &AnalyzerOutput{
		Success: true,
		Full:    map[string]interface{}{},
	})
	if err == nil {
		t.Error("expected error for missing summary")
	}
}

func TestNewReportSerializesSections(t *testing.T) {
	report, err := NewReport("job_1", &AnalyzerOutput{
		Success: true,
		Full:    map[string]interface{}{"verdict": "safe"},
		Summary: map[string]interface{}{"level": "info"},
	})
	if err != nil {
		t.Fatalf("NewReport failed: %v", err)
	}

	if report.JobID != "job_1" {
		t.Errorf("unexpected job id %q", report.JobID)
	}

	var full map[string]interface{}
	if err := json.Unmarshal([]byte(report.Full), &full); err != nil {
		t.Fatalf("full section is not valid JSON: %v", err)
	}
	if full["verdict"] != "safe" {
		t.Errorf("full section lost content: %v", full)
	}
}

func TestNewArtifactNormalizesLegacyKeys(t *testing.T) {
	legacy := NewArtifact("report_1", "job_1", map[string]interface{}{
		"type":  "ip",
		"value": "203.0.113.9",
	})
	modern := NewArtifact("report_1", "job_1", map[string]interface{}{
		"dataType": "ip",
		"data":     "203.0.113.9",
	})

	if legacy.DataType != modern.DataType || legacy.Data != modern.Data {
		t.Errorf("legacy and modern artifacts differ: %+v vs %+v", legacy, modern)
	}
	if legacy.DataType != "ip" || legacy.Data != "203.0.113.9" {
		t.Errorf("normalization failed: %+v", legacy)
	}
}

func TestNewArtifactModernKeysWin(t *testing.T) {
	artifact := NewArtifact("report_1", "job_1", map[string]interface{}{
		"dataType": "domain",
		"type":     "ip",
		"data":     "example.com",
		"value":    "203.0.113.9",
	})
	if artifact.DataType != "domain" || artifact.Data != "example.com" {
		t.Errorf("modern keys should take precedence: %+v", artifact)
	}
}
