package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Deleranax/ccpm/pkg/archive"
	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
)

// Commit runs the full commit protocol: pre-commit checks, journal seal,
// download, uninstall, install, promote, finalise. Any failure past the
// pre-commit checks moves the transaction to Failed and runs rollback
// automatically before returning the triggering error.
func (e *Engine) Commit(ctx context.Context) error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("commit")
		if err != nil {
			return err
		}

		e.events.Emit(event.TransactionChecking)
		if err := e.resolver.PrecommitCheck(e.index.List(), e.installed.List(), tx.Install, tx.Uninstall); err != nil {
			e.events.Emit(event.TransactionFailed)
			return err
		}

		progress := make(model.Progress, len(tx.Uninstall)+len(tx.Install))
		for i := range progress {
			progress[i] = model.ProgressEntry{Status: model.StepPending}
		}
		if err := e.saveProgress(progress); err != nil {
			return err
		}
		tx.Status = model.StatusCommitting
		if err := e.saveTx(tx); err != nil {
			return err
		}

		if err := e.runCommitSteps(ctx); err != nil {
			tx := e.loadTx()
			tx.Status = model.StatusFailed
			_ = e.saveTx(tx)
			e.events.Emit(event.TransactionFailed, err)
			if rerr := e.rollbackLocked(); rerr != nil {
				return fmt.Errorf("commit failed (%v), and rollback also failed: %w", err, rerr)
			}
			return err
		}
		return nil
	})
}

// Recover resumes a transaction left in Committing by a prior crash,
// continuing from wherever the progress journal says steps left off.
func (e *Engine) Recover(ctx context.Context) error {
	return e.lock.With(func() error {
		tx := e.loadTx()
		if tx.Status != model.StatusCommitting {
			return stateErr("recover", fmt.Errorf("transaction is %s, not Committing", tx.Status))
		}

		if err := e.runCommitSteps(ctx); err != nil {
			tx := e.loadTx()
			tx.Status = model.StatusFailed
			_ = e.saveTx(tx)
			e.events.Emit(event.TransactionFailed, err)
			if rerr := e.rollbackLocked(); rerr != nil {
				return fmt.Errorf("recover failed (%v), and rollback also failed: %w", err, rerr)
			}
			return err
		}
		return nil
	})
}

// Rollback undoes a Committing or Failed transaction: completed installs
// are discarded, completed uninstalls are restored from their snapshot, and
// every staging directory is removed.
func (e *Engine) Rollback(ctx context.Context) error {
	return e.lock.With(func() error {
		tx := e.loadTx()
		if tx.Status != model.StatusCommitting && tx.Status != model.StatusFailed {
			return stateErr("rollback", fmt.Errorf("transaction is %s, not Committing or Failed", tx.Status))
		}
		return e.rollbackLocked()
	})
}

// rollbackLocked performs the rollback body; the caller must already hold
// the engine lock (either directly, as in Rollback, or because it is
// already inside a lock.With call, as in Commit/Recover's failure path).
func (e *Engine) rollbackLocked() error {
	tx := e.loadTx()
	progress := e.loadProgress()

	for j, entry := range tx.Install {
		idx := len(tx.Uninstall) + j
		if idx < len(progress) && progress[idx].Status == model.StepCompleted {
			if err := e.installed.Delete(entry.Name); err != nil {
				return fmt.Errorf("transaction: rollback: discarding %s: %w", entry.Name, err)
			}
		}
	}

	if err := moveTreeInto(e.uninstallPath(), e.root, event.FileConflictStorage, e.events); err != nil {
		return fmt.Errorf("transaction: rollback: restoring files: %w", err)
	}

	for i, entry := range tx.Uninstall {
		if i < len(progress) && progress[i].Status == model.StepCompleted {
			if err := e.installed.Put(entry.Name, entry.Installed()); err != nil {
				return fmt.Errorf("transaction: rollback: restoring %s: %w", entry.Name, err)
			}
		}
	}

	if err := e.resetDir(); err != nil {
		return err
	}

	tx.Status = model.StatusRolledBack
	if err := e.saveTx(tx); err != nil {
		return err
	}
	e.events.Emit(event.TransactionRolledBack)
	return nil
}

// runCommitSteps executes steps 3-7 of the commit protocol (download,
// uninstall loop, install loop, promote, finalise), skipping any step whose
// progress entry is already Completed. It is shared verbatim between a
// fresh Commit and a resumed Recover.
func (e *Engine) runCommitSteps(ctx context.Context) error {
	tx := e.loadTx()
	progress := e.loadProgress()

	if err := e.downloadStep(ctx, tx, progress); err != nil {
		return err
	}
	if err := e.uninstallStep(tx, progress); err != nil {
		return err
	}
	if err := e.installStep(tx, progress); err != nil {
		return err
	}
	if err := e.promoteStep(); err != nil {
		return err
	}
	return e.finaliseStep()
}

func (e *Engine) downloadStep(ctx context.Context, tx model.Transaction, progress model.Progress) error {
	e.events.Emit(event.TransactionDownloading, len(tx.Install))
	for j, entry := range tx.Install {
		idx := len(tx.Uninstall) + j
		if idx < len(progress) && progress[idx].Status == model.StepCompleted {
			continue
		}

		indexEntry, ok := e.index.Get(entry.Name)
		if !ok {
			e.events.Emit(event.PackageNotDownloaded, entry.Name)
			return fmt.Errorf("transaction: download: %s is no longer in the merged index", entry.Name)
		}
		repo, ok := e.repos.Get(indexEntry.Repository)
		if !ok {
			e.events.Emit(event.PackageNotDownloaded, entry.Name)
			return fmt.Errorf("transaction: download: repository %s for %s is gone", indexEntry.Repository, entry.Name)
		}
		d, err := e.drivers.For(repo.URL)
		if err != nil {
			e.events.Emit(event.PackageNotDownloaded, entry.Name)
			return err
		}

		manifest := model.RepositoryManifest{Name: repo.Name, URL: repo.URL, Priority: repo.Priority}
		e.events.Emit(event.PackageDownloading, entry.Name)
		if err := d.DownloadPackage(ctx, manifest, entry.Name, entry.Version, e.downloadPath()); err != nil {
			e.events.Emit(event.PackageNotDownloaded, entry.Name)
			return fmt.Errorf("transaction: downloading %s: %w", entry.Name, err)
		}
		e.events.Emit(event.PackageDownloaded, entry.Name)
	}
	return nil
}

func (e *Engine) uninstallStep(tx model.Transaction, progress model.Progress) error {
	e.events.Emit(event.TransactionUninstalling, len(tx.Uninstall))
	for i, entry := range tx.Uninstall {
		if progress[i].Status == model.StepCompleted {
			continue
		}

		progress[i] = model.ProgressEntry{Status: model.StepStarted}
		if err := e.saveProgress(progress); err != nil {
			return err
		}
		e.events.Emit(event.PackageUninstalling, entry.Name)

		for path := range entry.Files {
			src := filepath.Join(e.root, path)
			dst := filepath.Join(e.uninstallPath(), path)
			if err := moveFile(src, dst); err != nil {
				e.events.Emit(event.PackageNotUninstalled, entry.Name)
				return fmt.Errorf("transaction: uninstalling %s: moving %s: %w", entry.Name, path, err)
			}
			removeEmptyParents(filepath.Dir(src), e.root)
		}

		if err := e.installed.Delete(entry.Name); err != nil {
			return fmt.Errorf("transaction: uninstalling %s: updating database: %w", entry.Name, err)
		}

		progress[i] = model.ProgressEntry{Status: model.StepCompleted}
		if err := e.saveProgress(progress); err != nil {
			return err
		}
		e.events.Emit(event.PackageUninstalled, entry.Name)
	}
	return nil
}

func (e *Engine) installStep(tx model.Transaction, progress model.Progress) error {
	e.events.Emit(event.TransactionInstalling, len(tx.Install))
	for j, entry := range tx.Install {
		idx := len(tx.Uninstall) + j
		if progress[idx].Status == model.StepCompleted {
			continue
		}
		resuming := progress[idx].Status == model.StepStarted

		progress[idx] = model.ProgressEntry{Status: model.StepStarted}
		if err := e.saveProgress(progress); err != nil {
			return err
		}
		e.events.Emit(event.PackageInstalling, entry.Name)

		archivePath := filepath.Join(e.downloadPath(), entry.Name+"."+entry.Version+".ccp")
		raw, err := os.ReadFile(archivePath)
		if err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: reading archive: %w", entry.Name, err)
		}
		manifest, err := archive.Decode(raw)
		if err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: decoding archive: %w", entry.Name, err)
		}
		if err := archive.Verify(manifest); err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: %w", entry.Name, err)
		}

		// A resumed recover re-enters this step for any entry not yet
		// Completed, including one whose unpack already landed files on a
		// prior run that crashed before the step was marked done. Every
		// path this entry's manifest writes is cleared first, on every
		// attempt, so Unpack sees a clean destination instead of failing
		// on FileExistsError. On an entry's first attempt a cleared path
		// can only belong to another staged package, so it is reported as
		// a package conflict (last writer wins); on a resumed attempt no
		// conflict event is emitted, since the cleared files may be this
		// entry's own leftovers.
		conflicts, err := clearStagedFiles(manifest, e.installPath())
		if err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: %w", entry.Name, err)
		}
		if !resuming {
			for _, relPath := range conflicts {
				e.events.Emit(event.FileConflictPackage, relPath)
			}
		}

		unpacked, err := archive.Unpack(manifest, e.installPath())
		if err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: unpacking: %w", entry.Name, err)
		}

		files := make(map[string]string, len(unpacked))
		for relPath, digest := range unpacked {
			files[filepath.Join(string(filepath.Separator), relPath)] = digest
		}

		pkg := model.InstalledPackage{
			Version:      entry.Version,
			Files:        files,
			Dependencies: manifest.Dependencies,
			Description:  manifest.Description,
			License:      manifest.License,
			Authors:      manifest.Authors,
			Maintainers:  manifest.Maintainers,
			Wanted:       entry.Wanted,
		}
		if err := e.installed.Put(entry.Name, pkg); err != nil {
			e.events.Emit(event.PackageNotInstalled, entry.Name)
			return fmt.Errorf("transaction: installing %s: updating database: %w", entry.Name, err)
		}

		progress[idx] = model.ProgressEntry{Status: model.StepCompleted}
		if err := e.saveProgress(progress); err != nil {
			return err
		}
		e.events.Emit(event.PackageInstalled, entry.Name)
	}
	return nil
}

// clearStagedFiles removes any file manifest would write beneath destDir
// that is already present there, so a resumed Unpack of the same manifest
// overwrites cleanly instead of tripping FileExistsError on its own (or
// another package's) leftovers. It returns the relative paths that had to
// be cleared, so the caller can tell a genuine cross-package collision
// from a no-op. A missing file is not an error: the common case is a
// fresh unpack that never ran before.
func clearStagedFiles(manifest model.ArchiveManifest, destDir string) ([]string, error) {
	var cleared []string
	for relPath := range manifest.Files {
		dest := filepath.Join(destDir, filepath.FromSlash(relPath))
		if err := os.Remove(dest); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("clearing %s: %w", dest, err)
		}
		cleared = append(cleared, relPath)
	}
	return cleared, nil
}

func (e *Engine) promoteStep() error {
	return moveTreeInto(e.installPath(), e.root, event.FileConflictStorage, e.events)
}

func (e *Engine) finaliseStep() error {
	if err := e.resetDir(); err != nil {
		return err
	}
	tx := e.loadTx()
	tx.Status = model.StatusCommitted
	tx.TimeCommit = time.Now().Unix()
	if err := e.saveTx(tx); err != nil {
		return err
	}
	e.events.Emit(event.TransactionCompleted)
	return nil
}
