package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"gopkg.in/yaml.v3"
)

// AnalyzerDefinitionFile is the on-disk shape of one analyzer definition,
// including the per-organization instances enabled for it. Files may be
// TOML or YAML.
type AnalyzerDefinitionFile struct {
	ID            string                 `toml:"id" yaml:"id"`
	Name          string                 `toml:"name" yaml:"name"`
	Version       string                 `toml:"version" yaml:"version"`
	Description   string                 `toml:"description" yaml:"description"`
	Command       string                 `toml:"command" yaml:"command"`
	BaseDirectory string                 `toml:"base_directory" yaml:"base_directory"`
	DataTypes     []string               `toml:"data_types" yaml:"data_types"`
	Configuration map[string]interface{} `toml:"configuration" yaml:"configuration"`

	Items []struct {
		Name         string      `toml:"name" yaml:"name"`
		Description  string      `toml:"description" yaml:"description"`
		Type         string      `toml:"type" yaml:"type"`
		MultiValued  bool        `toml:"multi_valued" yaml:"multi_valued"`
		Required     bool        `toml:"required" yaml:"required"`
		DefaultValue interface{} `toml:"default_value" yaml:"default_value"`
	} `toml:"item" yaml:"items"`

	Analyzers []struct {
		ID           string                 `toml:"id" yaml:"id"`
		Name         string                 `toml:"name" yaml:"name"`
		Organization string                 `toml:"organization" yaml:"organization"`
		Rate         *int                   `toml:"rate" yaml:"rate"`
		RateUnit     string                 `toml:"rate_unit" yaml:"rate_unit"`
		Config       map[string]interface{} `toml:"config" yaml:"config"`
	} `toml:"analyzer" yaml:"analyzers"`
}

// ToDefinition converts the file structure to the internal model
func (f *AnalyzerDefinitionFile) ToDefinition() (*models.AnalyzerDefinition, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("analyzer definition id is required")
	}
	if f.Command == "" {
		return nil, fmt.Errorf("analyzer definition %s: command is required", f.ID)
	}

	items := make([]models.ConfigurationItem, 0, len(f.Items))
	for _, item := range f.Items {
		itemType := models.ConfigItemType(item.Type)
		switch itemType {
		case models.ConfigItemString, models.ConfigItemNumber, models.ConfigItemBoolean:
		default:
			return nil, fmt.Errorf("analyzer definition %s: item %q has invalid type %q - must be one of: string, number, boolean", f.ID, item.Name, item.Type)
		}
		items = append(items, models.ConfigurationItem{
			Name:         item.Name,
			Description:  item.Description,
			Type:         itemType,
			MultiValued:  item.MultiValued,
			Required:     item.Required,
			DefaultValue: item.DefaultValue,
		})
	}

	configuration := f.Configuration
	if configuration == nil {
		configuration = map[string]interface{}{}
	}

	return &models.AnalyzerDefinition{
		ID:                 f.ID,
		Name:               f.Name,
		Version:            f.Version,
		Description:        f.Description,
		Command:            f.Command,
		BaseDirectory:      f.BaseDirectory,
		DataTypeList:       f.DataTypes,
		ConfigurationItems: items,
		Configuration:      configuration,
	}, nil
}

// LoadAnalyzersFromFiles loads analyzer definitions and their enabled
// instances from TOML and YAML files in the definitions directory.
func LoadAnalyzersFromFiles(ctx context.Context, storage interfaces.AnalyzerStorage, definitionsDir string, logger arbor.ILogger) error {
	if _, err := os.Stat(definitionsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", definitionsDir).Msg("Analyzer definitions directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", definitionsDir).Msg("Loading analyzer definitions from files")

	entries, err := os.ReadDir(definitionsDir)
	if err != nil {
		return fmt.Errorf("failed to read analyzer definitions directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		filePath := filepath.Join(definitionsDir, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read analyzer definition file")
			continue
		}

		var defFile AnalyzerDefinitionFile
		if ext == ".toml" {
			err = toml.Unmarshal(data, &defFile)
		} else {
			err = yaml.Unmarshal(data, &defFile)
		}
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse analyzer definition file")
			continue
		}

		def, err := defFile.ToDefinition()
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Invalid analyzer definition")
			continue
		}

		if err := storage.SaveDefinition(ctx, def); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("definition_id", def.ID).Msg("Failed to save analyzer definition")
			continue
		}

		for _, a := range defFile.Analyzers {
			analyzer := &models.Analyzer{
				ID:                   a.ID,
				Name:                 a.Name,
				Organization:         a.Organization,
				Rate:                 a.Rate,
				Config:               a.Config,
				AnalyzerDefinitionID: def.ID,
				CreatedAt:            time.Now(),
			}
			if analyzer.ID == "" {
				analyzer.ID = def.ID + "_" + a.Organization
			}
			if analyzer.Name == "" {
				analyzer.Name = def.Name
			}
			if analyzer.Config == nil {
				analyzer.Config = map[string]interface{}{}
			}
			if a.RateUnit != "" {
				unit := models.RateUnit(a.RateUnit)
				if !unit.Valid() {
					logger.Warn().Str("file", entry.Name()).Str("analyzer_id", analyzer.ID).Str("rate_unit", a.RateUnit).Msg("Invalid rate unit - analyzer loaded without rate limit")
				} else {
					analyzer.RateUnit = &unit
				}
			}

			if err := storage.SaveAnalyzer(ctx, analyzer); err != nil {
				logger.Warn().Err(err).Str("file", entry.Name()).Str("analyzer_id", analyzer.ID).Msg("Failed to save analyzer")
				continue
			}
		}

		logger.Info().Str("file", entry.Name()).Str("definition_id", def.ID).Int("analyzers", len(defFile.Analyzers)).Msg("Analyzer definition loaded from file")
		loadedCount++
	}

	if loadedCount > 0 {
		logger.Info().Int("count", loadedCount).Msg("Analyzer definitions loaded from files")
	} else {
		logger.Debug().Msg("No analyzer definitions loaded from files")
	}

	return nil
}
