package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalyzerStorage implements the AnalyzerStorage interface for Badger
type AnalyzerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalyzerStorage creates a new AnalyzerStorage instance
func NewAnalyzerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalyzerStorage {
	return &AnalyzerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AnalyzerStorage) SaveDefinition(ctx context.Context, def *models.AnalyzerDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("analyzer definition ID is required")
	}
	if err := s.db.Store().Upsert(def.ID, def); err != nil {
		return fmt.Errorf("failed to save analyzer definition: %w", err)
	}
	return nil
}

func (s *AnalyzerStorage) GetDefinition(ctx context.Context, id string) (*models.AnalyzerDefinition, error) {
	var def models.AnalyzerDefinition
	if err := s.db.Store().Get(id, &def); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("analyzer definition %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analyzer definition: %w", err)
	}
	return &def, nil
}

func (s *AnalyzerStorage) ListDefinitions(ctx context.Context) ([]*models.AnalyzerDefinition, error) {
	var defs []models.AnalyzerDefinition
	if err := s.db.Store().Find(&defs, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list analyzer definitions: %w", err)
	}

	result := make([]*models.AnalyzerDefinition, len(defs))
	for i := range defs {
		result[i] = &defs[i]
	}
	return result, nil
}

func (s *AnalyzerStorage) SaveAnalyzer(ctx context.Context, analyzer *models.Analyzer) error {
	if analyzer.ID == "" {
		return fmt.Errorf("analyzer ID is required")
	}
	if err := s.db.Store().Upsert(analyzer.ID, analyzer); err != nil {
		return fmt.Errorf("failed to save analyzer: %w", err)
	}
	return nil
}

func (s *AnalyzerStorage) GetAnalyzer(ctx context.Context, id string) (*models.Analyzer, error) {
	var analyzer models.Analyzer
	if err := s.db.Store().Get(id, &analyzer); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("analyzer %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analyzer: %w", err)
	}
	return &analyzer, nil
}

func (s *AnalyzerStorage) ListAnalyzers(ctx context.Context, organization string) ([]*models.Analyzer, error) {
	query := badgerhold.Where("ID").Ne("")
	if organization != "" {
		query = badgerhold.Where("Organization").Eq(organization)
	}

	var analyzers []models.Analyzer
	if err := s.db.Store().Find(&analyzers, query.SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list analyzers: %w", err)
	}

	result := make([]*models.Analyzer, len(analyzers))
	for i := range analyzers {
		result[i] = &analyzers[i]
	}
	return result, nil
}
