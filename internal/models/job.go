// -----------------------------------------------------------------------
// Job - One execution of one analyzer against one observable
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"time"

	"github.com/ternarybob/scrutor/internal/common"
)

// JobStatus is the lifecycle state of a job.
//
// State machine: Waiting -> InProgress (exactly once per run);
// InProgress -> {Success, Failure}; any -> Deleted. No transition out of
// a terminal state except Deleted.
type JobStatus string

const (
	JobStatusWaiting    JobStatus = "Waiting"
	JobStatusInProgress JobStatus = "InProgress"
	JobStatusSuccess    JobStatus = "Success"
	JobStatusFailure    JobStatus = "Failure"
	JobStatusDeleted    JobStatus = "Deleted"
)

// Terminal returns true for states that carry an EndDate
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure
}

// Job represents one submission of an observable to an analyzer.
//
// AnalyzerID, Organization and DataType are immutable after creation.
// Exactly one of Data or Attachment is set. EndDate is set iff the status
// is terminal; StartDate is set iff the status is not Waiting.
type Job struct {
	ID                   string                 `json:"id"`
	AnalyzerDefinitionID string                 `json:"analyzerDefinitionId"`
	AnalyzerID           string                 `json:"analyzerId" badgerhold:"index"`
	AnalyzerName         string                 `json:"analyzerName"`
	Organization         string                 `json:"organization" badgerhold:"index"`
	DataType             string                 `json:"dataType"`
	TLP                  int                    `json:"tlp"`
	Message              string                 `json:"message"`
	Parameters           map[string]interface{} `json:"parameters"`

	// ParametersKey is the canonical JSON encoding of Parameters, used for
	// similar-job equality. encoding/json emits map keys in sorted order,
	// so semantically equal parameter maps produce identical keys.
	ParametersKey string `json:"-"`

	// Observable: exactly one of Data or Attachment is set
	Data       string      `json:"data,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`

	Status       JobStatus  `json:"status" badgerhold:"index"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Input        string     `json:"input,omitempty"`        // diagnostic copy of the analyzer input on failure
	ErrorMessage string     `json:"errorMessage,omitempty"` // terminal error text

	// FromCache is synthesised on reads served by the similar-job cache.
	// It is never persisted as true; storage clears it before every save.
	FromCache bool `json:"fromCache,omitempty"`

	CreatedAt time.Time `json:"createdAt" badgerhold:"index"`
}

// NewJob creates a Waiting job for the given analyzer and submission
func NewJob(analyzer *Analyzer, sub *Submission) *Job {
	return &Job{
		ID:                   common.NewJobID(),
		AnalyzerDefinitionID: analyzer.AnalyzerDefinitionID,
		AnalyzerID:           analyzer.ID,
		AnalyzerName:         analyzer.Name,
		Organization:         analyzer.Organization,
		DataType:             sub.DataType,
		TLP:                  sub.TLP,
		Message:              sub.Message,
		Parameters:           sub.Parameters,
		ParametersKey:        EncodeParameters(sub.Parameters),
		Data:                 sub.Data,
		Attachment:           sub.Attachment,
		Status:               JobStatusWaiting,
		CreatedAt:            time.Now(),
	}
}

// EncodeParameters produces the canonical string encoding used for
// similar-job parameter equality.
func EncodeParameters(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// HasAttachment returns true when the observable is a file
func (j *Job) HasAttachment() bool {
	return j.Attachment != nil
}

// ObservableKey returns the identity of the observable for cache matching:
// the data string, or the attachment id for file observables.
func (j *Job) ObservableKey() string {
	if j.Attachment != nil {
		return j.Attachment.ID
	}
	return j.Data
}

// MarkStarted transitions the job to InProgress and stamps StartDate
func (j *Job) MarkStarted() {
	j.Status = JobStatusInProgress
	now := time.Now()
	j.StartDate = &now
}

// MarkEnded transitions the job to a terminal status and stamps EndDate.
// errorMessage and input are optional diagnostics recorded on failure.
func (j *Job) MarkEnded(status JobStatus, errorMessage, input string) {
	j.Status = status
	now := time.Now()
	j.EndDate = &now
	if errorMessage != "" {
		j.ErrorMessage = errorMessage
	}
	if input != "" {
		j.Input = input
	}
}

// ReferenceDate is the timestamp used for the similar-job cache window:
// StartDate when the job has started, CreatedAt otherwise (a Waiting job
// has no StartDate yet but still shields duplicates).
func (j *Job) ReferenceDate() time.Time {
	if j.StartDate != nil {
		return *j.StartDate
	}
	return j.CreatedAt
}
