// -----------------------------------------------------------------------
// Report - Analyzer output, reports and extracted artifacts
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/scrutor/internal/common"
)

// Report is the structured success output of one job. Full and Summary are
// opaque JSON strings; at most one Report exists per Job.
type Report struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId" badgerhold:"index"`
	Full      string    `json:"full"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Artifact is a sub-observable extracted from a report. JobID is carried
// alongside ReportID so organization-scoped artifact queries do not need a
// join through the report.
type Artifact struct {
	ID         string      `json:"id"`
	ReportID   string      `json:"reportId" badgerhold:"index"`
	JobID      string      `json:"jobId" badgerhold:"index"`
	DataType   string      `json:"dataType"`
	Data       string      `json:"data,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// AnalyzerOutput is the JSON document an analyzer writes to stdout
type AnalyzerOutput struct {
	Success      bool                     `json:"success"`
	Full         map[string]interface{}   `json:"full"`
	Summary      map[string]interface{}   `json:"summary"`
	Artifacts    []map[string]interface{} `json:"artifacts"`
	ErrorMessage string                   `json:"errorMessage"`
	Input        string                   `json:"input"`
}

// ParseAnalyzerOutput decodes an analyzer's stdout document
func ParseAnalyzerOutput(stdout []byte) (*AnalyzerOutput, error) {
	var output AnalyzerOutput
	if err := json.Unmarshal(stdout, &output); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w", err)
	}
	return &output, nil
}

// NewReport builds the Report child of a job from a successful output.
// Full and Summary are required when success=true.
func NewReport(jobID string, output *AnalyzerOutput) (*Report, error) {
	if output.Full == nil {
		return nil, MissingAttributeError("full")
	}
	if output.Summary == nil {
		return nil, MissingAttributeError("summary")
	}

	full, err := json.Marshal(output.Full)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize full report: %w", err)
	}
	summary, err := json.Marshal(output.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report summary: %w", err)
	}

	return &Report{
		ID:        common.NewReportID(),
		JobID:     jobID,
		Full:      string(full),
		Summary:   string(summary),
		CreatedAt: time.Now(),
	}, nil
}

// NewArtifact builds an Artifact from one emitted artifact object,
// normalising the legacy keys: "value" -> data, "type" -> dataType.
// An analyzer emitting {type, value} and one emitting {dataType, data}
// produce identical stored artifacts.
func NewArtifact(reportID, jobID string, raw map[string]interface{}) *Artifact {
	artifact := &Artifact{
		ID:        common.NewArtifactID(),
		ReportID:  reportID,
		JobID:     jobID,
		CreatedAt: time.Now(),
	}

	if v, ok := raw["dataType"].(string); ok {
		artifact.DataType = v
	} else if v, ok := raw["type"].(string); ok {
		artifact.DataType = v
	}

	if v, ok := raw["data"].(string); ok {
		artifact.Data = v
	} else if v, ok := raw["value"].(string); ok {
		artifact.Data = v
	}

	if v, ok := raw["attachment"].(map[string]interface{}); ok {
		if att, err := decodeAttachment(v); err == nil {
			artifact.Attachment = att
		}
	}

	return artifact
}
