// -----------------------------------------------------------------------
// Analyzer - Registry types for external analyzer programs
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// RateUnit is the window unit for per-analyzer rate limits
type RateUnit string

const (
	RateUnitDay   RateUnit = "Day"
	RateUnitMonth RateUnit = "Month"
)

// Seconds returns the sliding-window length of the unit
func (u RateUnit) Seconds() int64 {
	switch u {
	case RateUnitDay:
		return 24 * 60 * 60
	case RateUnitMonth:
		return 30 * 24 * 60 * 60
	default:
		return 0
	}
}

// Duration returns the sliding-window length as a time.Duration
func (u RateUnit) Duration() time.Duration {
	return time.Duration(u.Seconds()) * time.Second
}

// Valid reports whether the unit is a recognised value
func (u RateUnit) Valid() bool {
	return u == RateUnitDay || u == RateUnitMonth
}

// Analyzer is an enabled instance of an analyzer definition, scoped to one
// organization. Rate and RateUnit are both required for a limit to apply;
// if either is absent, submissions are admitted unconditionally.
type Analyzer struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Organization         string                 `json:"organization" badgerhold:"index"`
	Rate                 *int                   `json:"rate,omitempty"`
	RateUnit             *RateUnit              `json:"rateUnit,omitempty"`
	Config               map[string]interface{} `json:"config"`
	AnalyzerDefinitionID string                 `json:"analyzerDefinitionId"`
	CreatedAt            time.Time              `json:"createdAt"`
}

// AnalyzerDefinition describes how to invoke an analyzer: the command to
// run, its working directory, the data types it accepts, its configuration
// schema and the defaults it ships with.
type AnalyzerDefinition struct {
	ID                 string                 `json:"id"`
	Name               string                 `json:"name"`
	Version            string                 `json:"version"`
	Description        string                 `json:"description,omitempty"`
	Command            string                 `json:"command"`
	BaseDirectory      string                 `json:"baseDirectory"`
	DataTypeList       []string               `json:"dataTypeList"`
	ConfigurationItems []ConfigurationItem    `json:"configurationItems"`
	Configuration      map[string]interface{} `json:"configuration"`
}

// Accepts reports whether the definition declares the given data type
func (d *AnalyzerDefinition) Accepts(dataType string) bool {
	for _, dt := range d.DataTypeList {
		if dt == dataType {
			return true
		}
	}
	return false
}

// ConfigItemType is the declared type of a configuration item
type ConfigItemType string

const (
	ConfigItemString  ConfigItemType = "string"
	ConfigItemNumber  ConfigItemType = "number"
	ConfigItemBoolean ConfigItemType = "boolean"
)

// ConfigurationItem is one entry of an analyzer configuration schema
type ConfigurationItem struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Type         ConfigItemType `json:"type"`
	MultiValued  bool           `json:"multiValued"`
	Required     bool           `json:"required"`
	DefaultValue interface{}    `json:"defaultValue,omitempty"`
}

// Read extracts this item's value from the merged configuration, applying
// type coercion and the default. A nil value with Required set, or a value
// of the wrong shape, yields an AttributeError.
func (i *ConfigurationItem) Read(config map[string]interface{}) (interface{}, *AttributeError) {
	value, present := config[i.Name]
	if !present || value == nil {
		if i.DefaultValue != nil {
			return i.DefaultValue, nil
		}
		if i.Required {
			return nil, MissingAttributeError(i.Name)
		}
		return nil, nil
	}

	if i.MultiValued {
		items, ok := value.([]interface{})
		if !ok {
			return nil, InvalidAttributeError(i.Name, fmt.Sprintf("expected a list of %s", i.Type))
		}
		coerced := make([]interface{}, 0, len(items))
		for _, item := range items {
			v, err := coerceConfigValue(i.Name, i.Type, item)
			if err != nil {
				return nil, err
			}
			coerced = append(coerced, v)
		}
		return coerced, nil
	}

	return coerceConfigValue(i.Name, i.Type, value)
}

func coerceConfigValue(name string, itemType ConfigItemType, value interface{}) (interface{}, *AttributeError) {
	switch itemType {
	case ConfigItemString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case ConfigItemNumber:
		// JSON decoding yields float64; TOML yields int64 or float64
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case ConfigItemBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	}
	return nil, InvalidAttributeError(name, fmt.Sprintf("expected %s, got %T", itemType, value))
}

// GlobalConfigurationItems is the base schema validated for every analyzer
// in addition to the definition's own items.
var GlobalConfigurationItems = []ConfigurationItem{
	{Name: "proxy_http", Type: ConfigItemString, Required: false},
	{Name: "proxy_https", Type: ConfigItemString, Required: false},
	{Name: "auto_extract", Type: ConfigItemBoolean, Required: false, DefaultValue: true},
}

// ValidateConfiguration validates the merged configuration against the
// union of the global base schema and the definition's items. All errors
// are accumulated; on success the returned map holds the coerced and
// defaulted values for every declared item plus any undeclared passthrough
// keys.
func ValidateConfiguration(config map[string]interface{}, items []ConfigurationItem) (map[string]interface{}, error) {
	schema := make([]ConfigurationItem, 0, len(GlobalConfigurationItems)+len(items))
	schema = append(schema, GlobalConfigurationItems...)
	schema = append(schema, items...)

	declared := make(map[string]bool, len(schema))
	validated := make(map[string]interface{}, len(config))
	collector := &ErrorCollector{}

	for idx := range schema {
		item := &schema[idx]
		declared[item.Name] = true
		value, err := item.Read(config)
		if err != nil {
			collector.Add(err)
			continue
		}
		if value != nil {
			validated[item.Name] = value
		}
	}

	// Keys outside the schema pass through untouched
	for k, v := range config {
		if !declared[k] {
			validated[k] = v
		}
	}

	if err := collector.Err(); err != nil {
		return nil, err
	}
	return validated, nil
}
