// ccpm.go
package ccpm

import (
	"context"
	"errors"
	"log"
	"path/filepath"

	"github.com/Deleranax/ccpm/pkg/config"
	"github.com/Deleranax/ccpm/pkg/driver"
	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
	"github.com/Deleranax/ccpm/pkg/query"
	"github.com/Deleranax/ccpm/pkg/repository"
	"github.com/Deleranax/ccpm/pkg/store"
	"github.com/Deleranax/ccpm/pkg/transaction"
)

// Re-export model types for convenience, the way the teacher re-exports its
// backend package's types from the root.
type (
	Repository       = model.Repository
	PackagesIndex    = model.PackagesIndex
	IndexEntry       = model.IndexEntry
	InstalledPackage = model.InstalledPackage
	PackagesDatabase = model.PackagesDatabase
	TransactionStatus = model.TransactionStatus
	Progress         = model.Progress
)

// Re-export transaction status constants.
const (
	StatusIdle       = model.StatusIdle
	StatusPending    = model.StatusPending
	StatusCommitting = model.StatusCommitting
	StatusCommitted  = model.StatusCommitted
	StatusAborted    = model.StatusAborted
	StatusFailed     = model.StatusFailed
	StatusRolledBack = model.StatusRolledBack
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *config.Config {
	return config.DefaultConfig()
}

// Manager is the engine facade: the single entry point a CLI or embedder
// constructs, tying the stores, repository layer, transaction engine, and
// query API together over one data directory.
type Manager struct {
	cfg *config.Config

	Repositories *repository.Manager
	Transaction  *transaction.Engine
	Query        *query.Service

	events *event.Bus
	logger *log.Logger
}

// NewManager builds a Manager over cfg, loading (or initialising) every
// store beneath cfg.DataDir. sink receives every engine event; nil
// discards them. A nil cfg uses DefaultConfig().
func NewManager(cfg *config.Config, sink event.Sink) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := log.New(log.Writer(), "ccpm: ", 0)
	if !cfg.Debug {
		logger = log.New(noopWriter{}, "", 0)
	}

	var sinks []event.Sink
	if sink != nil {
		sinks = append(sinks, sink)
	}
	bus := event.New(sinks...)

	reposPath := filepath.Join(cfg.DataDir, "repositories-index.json")
	indexPath := filepath.Join(cfg.DataDir, "packages-index.json")
	installedPath := filepath.Join(cfg.DataDir, "packages-database.json")

	repoStore, err := store.OpenRepositories(reposPath, logger, bus)
	if err != nil {
		return nil, err
	}
	indexStore, err := store.OpenPackages(indexPath, logger, bus)
	if err != nil {
		return nil, err
	}
	installedStore, err := store.OpenInstalled(installedPath, logger, bus)
	if err != nil {
		return nil, err
	}

	drivers := driver.NewRegistry(
		driver.NewHTTPDriver(0, logger),
		driver.NewFileDriver(logger),
	)

	repoMgr := repository.New(repoStore, indexStore, drivers, logger, bus)
	queryService := query.New(repoStore, indexStore, installedStore)
	txEngine, err := transaction.New(cfg.DataDir, "/", installedStore, indexStore, repoStore, drivers, logger, bus)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:          cfg,
		Repositories: repoMgr,
		Transaction:  txEngine,
		Query:        queryService,
		events:       bus,
		logger:       logger,
	}, nil
}

// AddRepository registers a repository given its manifest URL.
func (m *Manager) AddRepository(ctx context.Context, url string) (model.Repository, error) {
	repo, err := m.Repositories.Add(ctx, url)
	if err != nil {
		return model.Repository{}, classifyRepoErr("add-repository", url, err)
	}
	return repo, nil
}

// RefreshRepositories re-fetches every registered repository and
// re-merges the package index.
func (m *Manager) RefreshRepositories(ctx context.Context) error {
	if err := m.Repositories.Refresh(ctx); err != nil {
		return classifyRepoErr("refresh-repositories", "", err)
	}
	return nil
}

// classifyRepoErr wraps an error surfaced by the repository layer into the
// facade's Error, the single boundary where a driver/store sentinel is
// translated into a Kind the caller can branch on without reaching into
// package internals.
func classifyRepoErr(op, pkg string, err error) *Error {
	if errors.Is(err, store.ErrDuplicate) {
		return newErr(op, pkg, InvalidInput, ErrDuplicateRepository)
	}
	return newErr(op, pkg, DriverError, err)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
