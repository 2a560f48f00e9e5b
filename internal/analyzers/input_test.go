package analyzers

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/storage/files"
)

func testDefinition() *models.AnalyzerDefinition {
	return &models.AnalyzerDefinition{
		ID:      "geo",
		Command: "python3 geo.py",
		ConfigurationItems: []models.ConfigurationItem{
			{Name: "api_key", Type: models.ConfigItemString, Required: true},
			{Name: "max_results", Type: models.ConfigItemNumber, DefaultValue: float64(10)},
		},
		Configuration: map[string]interface{}{
			"endpoint": "https://geo.example.com",
		},
	}
}

func TestInputBuilderDataObservable(t *testing.T) {
	builder := NewInputBuilder(nil, common.GetLogger())

	analyzer := &models.Analyzer{
		ID:     "geo_org1",
		Config: map[string]interface{}{"api_key": "secret"},
	}
	job := &models.Job{
		ID:         "job_1",
		DataType:   "ip",
		TLP:        2,
		Message:    "check this",
		Data:       "1.2.3.4",
		Parameters: map[string]interface{}{},
	}

	input, cleanup, err := builder.Build(context.Background(), job, analyzer, testDefinition())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer cleanup()

	if input["data"] != "1.2.3.4" || input["dataType"] != "ip" {
		t.Errorf("observable missing: %v", input)
	}
	if _, hasFile := input["file"]; hasFile {
		t.Error("data observable must not carry a file")
	}

	config, ok := input["config"].(map[string]interface{})
	if !ok {
		t.Fatalf("config missing: %v", input)
	}
	if config["api_key"] != "secret" {
		t.Errorf("analyzer config not merged: %v", config)
	}
	if config["endpoint"] != "https://geo.example.com" {
		t.Errorf("definition defaults not merged: %v", config)
	}
	if config["max_results"] != float64(10) {
		t.Errorf("schema default not applied: %v", config)
	}
}

func TestInputBuilderParametersOverrideAnalyzerConfig(t *testing.T) {
	builder := NewInputBuilder(nil, common.GetLogger())

	analyzer := &models.Analyzer{
		ID:     "geo_org1",
		Config: map[string]interface{}{"api_key": "secret", "max_results": float64(10)},
	}
	job := &models.Job{
		ID:         "job_1",
		DataType:   "ip",
		Data:       "1.2.3.4",
		Parameters: map[string]interface{}{"max_results": float64(50)},
	}

	input, cleanup, err := builder.Build(context.Background(), job, analyzer, testDefinition())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer cleanup()

	config := input["config"].(map[string]interface{})
	if config["max_results"] != float64(50) {
		t.Errorf("job parameters should win: %v", config)
	}
}

func TestInputBuilderValidationFailure(t *testing.T) {
	builder := NewInputBuilder(nil, common.GetLogger())

	analyzer := &models.Analyzer{ID: "geo_org1", Config: map[string]interface{}{}}
	job := &models.Job{
		ID:         "job_1",
		DataType:   "ip",
		Data:       "1.2.3.4",
		Parameters: map[string]interface{}{},
	}

	// Required api_key absent
	if _, _, err := builder.Build(context.Background(), job, analyzer, testDefinition()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestInputBuilderFileObservable(t *testing.T) {
	store, err := files.NewAttachmentStore(t.TempDir(), common.GetLogger())
	if err != nil {
		t.Fatalf("NewAttachmentStore failed: %v", err)
	}

	content := []byte("MZ binary content")
	attachment, err := store.Save(context.Background(), "sample.exe", "application/octet-stream", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	builder := NewInputBuilder(store, common.GetLogger())
	analyzer := &models.Analyzer{
		ID:     "file_org1",
		Config: map[string]interface{}{"api_key": "secret"},
	}
	job := &models.Job{
		ID:         "job_1",
		DataType:   "file",
		Attachment: attachment,
		Parameters: map[string]interface{}{},
	}

	input, cleanup, err := builder.Build(context.Background(), job, analyzer, testDefinition())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	path, ok := input["file"].(string)
	if !ok || path == "" {
		t.Fatalf("file path missing: %v", input)
	}
	if input["filename"] != "sample.exe" {
		t.Errorf("filename missing: %v", input)
	}
	if input["contentType"] != "application/octet-stream" {
		t.Errorf("content type missing: %v", input)
	}
	if _, hasData := input["data"]; hasData {
		t.Error("file observable must not carry data")
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("temp file unreadable: %v", err)
	}
	if !bytes.Equal(onDisk, content) {
		t.Error("temp file content differs from stored attachment")
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup should remove the temp file")
	}
}
