package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewReportID generates a unique report ID with the "report_" prefix
func NewReportID() string {
	return "report_" + uuid.New().String()
}

// NewArtifactID generates a unique artifact ID with the "artifact_" prefix
func NewArtifactID() string {
	return "artifact_" + uuid.New().String()
}

// NewAttachmentID generates a unique attachment ID with the "att_" prefix
func NewAttachmentID() string {
	return "att_" + uuid.New().String()
}
