package models

import (
	"errors"
	"testing"
	"time"
)

func TestRateUnitSeconds(t *testing.T) {
	if RateUnitDay.Seconds() != 86400 {
		t.Errorf("Day = %d seconds", RateUnitDay.Seconds())
	}
	if RateUnitMonth.Seconds() != 30*86400 {
		t.Errorf("Month = %d seconds", RateUnitMonth.Seconds())
	}
	if RateUnit("Week").Valid() {
		t.Error("Week should not be a valid rate unit")
	}
	if RateUnitDay.Duration() != 24*time.Hour {
		t.Errorf("Day duration = %s", RateUnitDay.Duration())
	}
}

func TestConfigurationItemRead(t *testing.T) {
	item := ConfigurationItem{Name: "api_key", Type: ConfigItemString, Required: true}

	if _, err := item.Read(map[string]interface{}{}); err == nil {
		t.Error("required item without value should fail")
	}

	value, err := item.Read(map[string]interface{}{"api_key": "secret"})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if value != "secret" {
		t.Errorf("unexpected value %v", value)
	}

	if _, err := item.Read(map[string]interface{}{"api_key": 42}); err == nil {
		t.Error("wrong type should fail")
	}
}

func TestConfigurationItemDefault(t *testing.T) {
	item := ConfigurationItem{Name: "max_results", Type: ConfigItemNumber, DefaultValue: float64(10)}

	value, err := item.Read(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if value != float64(10) {
		t.Errorf("expected default 10, got %v", value)
	}
}

func TestConfigurationItemNumberCoercion(t *testing.T) {
	item := ConfigurationItem{Name: "limit", Type: ConfigItemNumber}

	for _, raw := range []interface{}{float64(5), int(5), int64(5)} {
		value, err := item.Read(map[string]interface{}{"limit": raw})
		if err != nil {
			t.Errorf("coercion of %T failed: %v", raw, err)
			continue
		}
		if value != float64(5) {
			t.Errorf("expected 5.0 from %T, got %v", raw, value)
		}
	}
}

func TestConfigurationItemMultiValued(t *testing.T) {
	item := ConfigurationItem{Name: "tags", Type: ConfigItemString, MultiValued: true}

	value, err := item.Read(map[string]interface{}{
		"tags": []interface{}{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	list, ok := value.([]interface{})
	if !ok || len(list) != 2 {
		t.Errorf("unexpected multi value %v", value)
	}

	if _, err := item.Read(map[string]interface{}{"tags": "a"}); err == nil {
		t.Error("scalar for multi-valued item should fail")
	}
	if _, err := item.Read(map[string]interface{}{"tags": []interface{}{"a", 1}}); err == nil {
		t.Error("mixed-type list should fail")
	}
}

func TestValidateConfigurationAccumulatesErrors(t *testing.T) {
	items := []ConfigurationItem{
		{Name: "key", Type: ConfigItemString, Required: true},
		{Name: "count", Type: ConfigItemNumber, Required: true},
	}

	_, err := ValidateConfiguration(map[string]interface{}{
		"count": "not a number",
	}, items)
	if err == nil {
		t.Fatal("expected error")
	}

	var checkErr *AttributeCheckingError
	if !errors.As(err, &checkErr) {
		t.Fatalf("expected AttributeCheckingError, got %T", err)
	}
	if len(checkErr.Errors) != 2 {
		t.Errorf("expected 2 faults, got %d", len(checkErr.Errors))
	}
}

func TestValidateConfigurationGlobalDefaults(t *testing.T) {
	validated, err := ValidateConfiguration(map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("ValidateConfiguration failed: %v", err)
	}

	// auto_extract carries a global default of true
	if v, ok := validated["auto_extract"].(bool); !ok || !v {
		t.Errorf("expected auto_extract=true default, got %v", validated["auto_extract"])
	}
}

func TestValidateConfigurationPassthrough(t *testing.T) {
	validated, err := ValidateConfiguration(map[string]interface{}{
		"undeclared": "kept",
	}, nil)
	if err != nil {
		t.Fatalf("ValidateConfiguration failed: %v", err)
	}
	if validated["undeclared"] != "kept" {
		t.Error("undeclared keys should pass through")
	}
}

func TestAnalyzerDefinitionAccepts(t *testing.T) {
	def := &AnalyzerDefinition{DataTypeList: []string{"ip", "domain"}}
	if !def.Accepts("ip") {
		t.Error("ip should be accepted")
	}
	if def.Accepts("url") {
		t.Error("url should not be accepted")
	}
}
