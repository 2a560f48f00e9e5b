// -----------------------------------------------------------------------
// Service - Analyzer registry lookups with organization scoping
// -----------------------------------------------------------------------

package analyzers

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// Service answers registry questions for the job pipeline and handlers.
// Organization scoping is enforced here: an analyzer outside the caller's
// organization is indistinguishable from one that does not exist.
type Service struct {
	storage interfaces.AnalyzerStorage
	logger  arbor.ILogger
}

// NewService creates an analyzer registry service
func NewService(storage interfaces.AnalyzerStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// GetForUser fetches an analyzer visible to the given organization
func (s *Service) GetForUser(ctx context.Context, analyzerID, organization string) (*models.Analyzer, error) {
	analyzer, err := s.storage.GetAnalyzer(ctx, analyzerID)
	if err != nil {
		return nil, err
	}
	if analyzer.Organization != organization {
		return nil, fmt.Errorf("analyzer %s: %w", analyzerID, models.ErrNotFound)
	}
	return analyzer, nil
}

// ListForUser lists the analyzers enabled for an organization
func (s *Service) ListForUser(ctx context.Context, organization string) ([]*models.Analyzer, error) {
	return s.storage.ListAnalyzers(ctx, organization)
}

// ListDefinitions lists every known analyzer definition
func (s *Service) ListDefinitions(ctx context.Context) ([]*models.AnalyzerDefinition, error) {
	return s.storage.ListDefinitions(ctx)
}

// ResolveDefinition fetches the definition behind an analyzer instance
func (s *Service) ResolveDefinition(ctx context.Context, analyzer *models.Analyzer) (*models.AnalyzerDefinition, error) {
	def, err := s.storage.GetDefinition(ctx, analyzer.AnalyzerDefinitionID)
	if err != nil {
		return nil, fmt.Errorf("analyzer %s has no definition %s: %w", analyzer.ID, analyzer.AnalyzerDefinitionID, err)
	}
	return def, nil
}

// CheckDataType verifies the definition accepts the submitted data type
func (s *Service) CheckDataType(def *models.AnalyzerDefinition, dataType string) error {
	if !def.Accepts(dataType) {
		collector := &models.ErrorCollector{}
		collector.Invalid("dataType", fmt.Sprintf("analyzer %s does not accept data type %q", def.ID, dataType))
		return collector.Err()
	}
	return nil
}
