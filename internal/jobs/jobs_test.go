package jobs

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ternarybob/scrutor/internal/analyzers"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/storage/badger"
	"github.com/ternarybob/scrutor/internal/storage/files"
)

// Shell commands standing in for real analyzer programs. Each reads the
// input document from stdin like a real analyzer would.
const (
	successCommand = `cat > /dev/null; echo '{"success": true, "full": {"verdict": "ok"}, "summary": {"level": "info"}, "artifacts": [{"type": "ip", "value": "203.0.113.9"}]}'`
	failCommand    = `cat > /dev/null; echo '{"success": false, "errorMessage": "analysis refused"}'`
	garbageCommand = `cat > /dev/null; echo 'Traceback (most recent call last):' >&2; echo 'not json'`
	echoCommand    = `cat`
)

type testEnv struct {
	manager   interfaces.StorageManager
	registry  *analyzers.Service
	admission *AdmissionController
	service   *Service
	facade    *Facade
	pool      *WorkerPool
	user      *models.User
	analyzer  *models.Analyzer
}

// newTestEnv builds the full pipeline over real stores in a temp dir,
// with one analyzer whose command is the given shell snippet.
func newTestEnv(t *testing.T, cacheTTL, timeout time.Duration, command string) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive sh analyzer commands")
	}

	logger := common.GetLogger()
	ctx := context.Background()

	manager, err := badger.NewManager(&common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	}, logger)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	attachments, err := files.NewAttachmentStore(filepath.Join(t.TempDir(), "attachments"), logger)
	if err != nil {
		t.Fatalf("failed to open attachment store: %v", err)
	}

	def := &models.AnalyzerDefinition{
		ID:            "test_analyzer",
		Name:          "Test Analyzer",
		Version:       "1.0",
		Command:       command,
		BaseDirectory: t.TempDir(),
		DataTypeList:  []string{"ip", "domain", "file"},
		Configuration: map[string]interface{}{},
	}
	if err := manager.Analyzers().SaveDefinition(ctx, def); err != nil {
		t.Fatalf("SaveDefinition failed: %v", err)
	}

	analyzer := &models.Analyzer{
		ID:                   "test_analyzer_org1",
		Name:                 "Test Analyzer",
		Organization:         "org1",
		Config:               map[string]interface{}{},
		AnalyzerDefinitionID: def.ID,
		CreatedAt:            time.Now(),
	}
	if err := manager.Analyzers().SaveAnalyzer(ctx, analyzer); err != nil {
		t.Fatalf("SaveAnalyzer failed: %v", err)
	}

	registry := analyzers.NewService(manager.Analyzers(), logger)
	runner := analyzers.NewShellRunner(logger)
	inputs := analyzers.NewInputBuilder(attachments, logger)
	admission := NewAdmissionController(manager.Jobs(), cacheTTL, logger)
	ingestor := NewIngestor(manager.Reports(), logger)
	pool := NewWorkerPool(2, 64, logger)
	pool.Start(ctx)
	t.Cleanup(pool.Stop)

	service := NewService(manager.Jobs(), registry, runner, inputs, admission, ingestor, pool, timeout, logger)
	facade := NewFacade(manager.Jobs(), manager.Reports(), logger)

	return &testEnv{
		manager:   manager,
		registry:  registry,
		admission: admission,
		service:   service,
		facade:    facade,
		pool:      pool,
		user:      &models.User{ID: "alice", Organization: "org1"},
		analyzer:  analyzer,
	}
}

// waitTerminal polls until the job reaches a terminal status
func waitTerminal(t *testing.T, storage interfaces.JobStorage, jobID string) *models.Job {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := storage.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func ipSubmission(data string) map[string]interface{} {
	return map[string]interface{}{
		"dataType": "ip",
		"data":     data,
	}
}
