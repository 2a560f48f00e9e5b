package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/ternarybob/scrutor/internal/models"
)

// JobFilter narrows job list and count queries
type JobFilter struct {
	Organization   string
	Status         models.JobStatus
	ExcludeDeleted bool
	DataType       string // substring match
	Data           string // substring match
	Analyzer       string // substring match on analyzer id or name
	Offset         int
	Limit          int // 0 means unbounded
}

// SimilarJobQuery is the fingerprint used by the similar-job cache
type SimilarJobQuery struct {
	AnalyzerID    string
	DataType      string
	TLP           int
	ObservableKey string // data string or attachment id
	ParametersKey string // canonical parameters encoding
	Since         time.Time
}

// JobStorage is the document-store contract for jobs
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error

	// ClaimJob transitions a Waiting job to InProgress and stamps its
	// StartDate. At most one caller wins; every other concurrent claim
	// returns (nil, nil).
	ClaimJob(ctx context.Context, jobID string) (*models.Job, error)

	// FinishJob records a terminal verdict for a claimed job. The write
	// only lands while the stored status is still InProgress; false means
	// another writer already ended the job and the verdict was discarded.
	FinishJob(ctx context.Context, job *models.Job) (bool, error)

	ListJobs(ctx context.Context, filter *JobFilter) ([]*models.Job, error)
	CountJobs(ctx context.Context, filter *JobFilter) (int, error)

	// CountJobsSince counts jobs of one analyzer created inside a sliding
	// window, regardless of status.
	CountJobsSince(ctx context.Context, analyzerID string, since time.Time) (int, error)

	// FindSimilarJob returns the most recent non-failed, non-deleted job
	// matching the fingerprint, or nil when none exists.
	FindSimilarJob(ctx context.Context, query *SimilarJobQuery) (*models.Job, error)

	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	JobStats(ctx context.Context, organization string) (map[string]int, error)
}

// ReportStorage is the document-store contract for reports and artifacts
type ReportStorage interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReportByJob(ctx context.Context, jobID string) (*models.Report, error)
	SaveArtifact(ctx context.Context, artifact *models.Artifact) error
	ListArtifactsByJob(ctx context.Context, jobID string, offset, limit int) ([]*models.Artifact, error)
	CountArtifactsByJob(ctx context.Context, jobID string) (int, error)
}

// AnalyzerStorage is the registry store for analyzers and their definitions
type AnalyzerStorage interface {
	SaveDefinition(ctx context.Context, def *models.AnalyzerDefinition) error
	GetDefinition(ctx context.Context, id string) (*models.AnalyzerDefinition, error)
	ListDefinitions(ctx context.Context) ([]*models.AnalyzerDefinition, error)
	SaveAnalyzer(ctx context.Context, analyzer *models.Analyzer) error
	GetAnalyzer(ctx context.Context, id string) (*models.Analyzer, error)
	ListAnalyzers(ctx context.Context, organization string) ([]*models.Analyzer, error)
}

// UserStorage resolves authenticated principals to organizations
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// AttachmentStore is the blob store for uploaded observables
type AttachmentStore interface {
	// Save streams content into the store and returns the attachment
	// reference with its computed hash and size.
	Save(ctx context.Context, name, contentType string, content io.Reader) (*models.Attachment, error)

	// Source opens the stored content for reading
	Source(ctx context.Context, id string) (io.ReadCloser, error)
}

// StorageManager aggregates the store implementations
type StorageManager interface {
	Jobs() JobStorage
	Reports() ReportStorage
	Analyzers() AnalyzerStorage
	Users() UserStorage
	Close() error
}
