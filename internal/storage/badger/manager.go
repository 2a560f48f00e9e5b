package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
)

// Manager aggregates the Badger-backed storage implementations
type Manager struct {
	db        *BadgerDB
	jobs      interfaces.JobStorage
	reports   interfaces.ReportStorage
	analyzers interfaces.AnalyzerStorage
	users     interfaces.UserStorage
	logger    arbor.ILogger
}

// NewManager opens the database and wires up all storages
func NewManager(config *common.BadgerConfig, logger arbor.ILogger) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:        db,
		jobs:      NewJobStorage(db, logger),
		reports:   NewReportStorage(db, logger),
		analyzers: NewAnalyzerStorage(db, logger),
		users:     NewUserStorage(db, logger),
		logger:    logger,
	}, nil
}

func (m *Manager) Jobs() interfaces.JobStorage {
	return m.jobs
}

func (m *Manager) Reports() interfaces.ReportStorage {
	return m.reports
}

func (m *Manager) Analyzers() interfaces.AnalyzerStorage {
	return m.analyzers
}

func (m *Manager) Users() interfaces.UserStorage {
	return m.users
}

func (m *Manager) Close() error {
	return m.db.Close()
}
