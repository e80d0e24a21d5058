// Package transaction implements the transaction engine (C6): the single
// in-flight transaction's state machine, its durable journal (init.json +
// progress.json), the download/install/uninstall staging areas beneath it,
// and the commit/recover/rollback protocol that moves packages between the
// archive and the real filesystem. This is the component everything else
// feeds: the repository layer's merged index, the resolver's staging and
// pre-commit checks, the archive codec, and the driver registry all meet
// here.
package transaction

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Deleranax/ccpm/pkg/driver"
	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/lockfile"
	"github.com/Deleranax/ccpm/pkg/model"
	"github.com/Deleranax/ccpm/pkg/resolver"
	"github.com/Deleranax/ccpm/pkg/store"
)

const (
	initFile     = "init.json"
	progressFile = "progress.json"
	downloadDir  = "download"
	installDir   = "install"
	uninstallDir = "uninstall"
	lockFile     = ".lock"
)

// Engine owns the one transaction a data directory can have in flight, the
// stores it reads and mutates, and the driver registry it downloads
// through. A process constructs a fresh Engine on every invocation — there
// is no in-memory state that outlives the process other than what is
// re-loaded from disk, which is what makes recover/rollback meaningful
// after a crash.
type Engine struct {
	dataDir string
	root    string

	tx       *store.File[model.Transaction]
	progress *store.File[model.Progress]

	installed *store.Installed
	index     *store.Packages
	repos     *store.Repositories
	drivers   *driver.Registry
	resolver  *resolver.Resolver

	lock   *lockfile.Lock
	logger *log.Logger
	events *event.Bus
}

// New builds an Engine rooted at dataDir (where transaction/, init.json
// etc. live) mutating packages under root (normally "/", overridable in
// tests). A nil logger discards output; a nil events bus discards events.
func New(dataDir, root string, installed *store.Installed, index *store.Packages, repos *store.Repositories, drivers *driver.Registry, logger *log.Logger, events *event.Bus) (*Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if events == nil {
		events = event.New()
	}

	txDir := filepath.Join(dataDir, "transaction")
	tx, err := store.Open(filepath.Join(txDir, initFile), func() model.Transaction {
		return model.Transaction{Status: model.StatusIdle}
	}, logger, events)
	if err != nil {
		return nil, err
	}
	progress, err := store.Open(filepath.Join(txDir, progressFile), func() model.Progress {
		return model.Progress{}
	}, logger, events)
	if err != nil {
		return nil, err
	}

	return &Engine{
		dataDir:   dataDir,
		root:      root,
		tx:        tx,
		progress:  progress,
		installed: installed,
		index:     index,
		repos:     repos,
		drivers:   drivers,
		resolver:  resolver.New(),
		lock:      lockfile.New(filepath.Join(dataDir, lockFile)),
		logger:    logger,
		events:    events,
	}, nil
}

func (e *Engine) txDir() string        { return filepath.Join(e.dataDir, "transaction") }
func (e *Engine) downloadPath() string  { return filepath.Join(e.txDir(), downloadDir) }
func (e *Engine) installPath() string   { return filepath.Join(e.txDir(), installDir) }
func (e *Engine) uninstallPath() string { return filepath.Join(e.txDir(), uninstallDir) }

func (e *Engine) loadTx() model.Transaction {
	var out model.Transaction
	e.tx.View(func(v model.Transaction) { out = v })
	return out
}

func (e *Engine) loadProgress() model.Progress {
	var out model.Progress
	e.progress.View(func(v model.Progress) { out = append(model.Progress(nil), v...) })
	return out
}

func (e *Engine) saveTx(tx model.Transaction) error { return e.tx.Set(tx) }

func (e *Engine) saveProgress(p model.Progress) error { return e.progress.Set(p) }

// Status returns the current transaction's status and progress journal.
func (e *Engine) Status() (model.TransactionStatus, model.Progress) {
	tx := e.loadTx()
	return tx.Status, e.loadProgress()
}

// stateErr wraps err as a StateError for op.
func stateErr(op string, err error) error {
	return &txError{op: op, kind: "StateError", err: err}
}

// txError is the transaction engine's local error wrapper. It is
// intentionally unexported: callers of the root facade see it only through
// the standard error interface, matching the teacher's habit of returning
// plain errors from internal layers and wrapping once at the facade.
type txError struct {
	op   string
	kind string
	err  error
}

func (e *txError) Error() string { return fmt.Sprintf("transaction: %s: %v", e.op, e.err) }
func (e *txError) Unwrap() error { return e.err }

// Begin opens a new transaction. A transaction left Pending by a previous
// run is auto-aborted first; Committing or Failed refuse to be
// auto-discarded since they require recover or rollback. Any other state
// (Idle, Aborted, Committed, RolledBack) is simply replaced.
func (e *Engine) Begin(ctx context.Context) error {
	return e.lock.With(func() error {
		tx := e.loadTx()
		if tx.Status == model.StatusCommitting || tx.Status == model.StatusFailed {
			return stateErr("begin", fmt.Errorf("a transaction is %s; run recover or rollback first", tx.Status))
		}

		if err := e.resetDir(); err != nil {
			return err
		}
		next := model.Transaction{TimeBegin: time.Now().Unix(), Status: model.StatusPending}
		if err := e.saveTx(next); err != nil {
			return err
		}
		return e.saveProgress(model.Progress{})
	})
}

// resetDir removes every staging directory beneath the transaction
// directory, leaving init.json/progress.json untouched — those are
// rewritten separately by whichever caller invoked resetDir.
func (e *Engine) resetDir() error {
	for _, d := range []string{e.downloadPath(), e.installPath(), e.uninstallPath()} {
		if err := os.RemoveAll(d); err != nil {
			return fmt.Errorf("transaction: clearing %s: %w", d, err)
		}
	}
	return nil
}

// Abort discards a Pending transaction by removing its transaction
// directory, without touching the install root or the installed database.
func (e *Engine) Abort() error {
	return e.lock.With(func() error {
		tx := e.loadTx()
		if tx.Status != model.StatusPending {
			return stateErr("abort", fmt.Errorf("transaction is %s, not Pending", tx.Status))
		}
		if err := os.RemoveAll(e.txDir()); err != nil {
			return fmt.Errorf("transaction: removing %s: %w", e.txDir(), err)
		}
		if err := e.saveTx(model.Transaction{Status: model.StatusAborted}); err != nil {
			return err
		}
		return e.saveProgress(model.Progress{})
	})
}
