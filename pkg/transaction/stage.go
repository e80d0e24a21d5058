package transaction

import (
	"fmt"

	"github.com/Deleranax/ccpm/pkg/model"
)

// requirePending returns the loaded transaction if it is Pending, else a
// StateError.
func (e *Engine) requirePending(op string) (model.Transaction, error) {
	tx := e.loadTx()
	if tx.Status != model.StatusPending {
		return model.Transaction{}, stateErr(op, fmt.Errorf("transaction is %s, not Pending", tx.Status))
	}
	return tx, nil
}

// Install stages name for installation, defaulting version to the merged
// index's latest if version is empty. A second Install of an already-staged
// name updates its version and OR's in wanted rather than duplicating the
// entry.
func (e *Engine) Install(name, version string, wanted bool) error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("install")
		if err != nil {
			return err
		}

		if version == "" {
			entry, ok := e.index.Get(name)
			if !ok {
				return fmt.Errorf("transaction: install: %w: %s", errUnknownPackage, name)
			}
			version = entry.LatestVersion
		}

		found := false
		for i, existing := range tx.Install {
			if existing.Name == name {
				tx.Install[i].Version = version
				tx.Install[i].Wanted = existing.Wanted || wanted
				found = true
				break
			}
		}
		if !found {
			tx.Install = append(tx.Install, model.InstallEntry{Name: name, Version: version, Wanted: wanted})
		}

		return e.saveTx(tx)
	})
}

// Uninstall stages name for removal, snapshotting its installed record so
// rollback never needs to re-read a possibly-changed index.
func (e *Engine) Uninstall(name string) error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("uninstall")
		if err != nil {
			return err
		}

		for _, existing := range tx.Uninstall {
			if existing.Name == name {
				return nil // already staged
			}
		}

		pkg, ok := e.installed.Get(name)
		if !ok {
			return fmt.Errorf("transaction: uninstall: %w: %s", errNotInstalled, name)
		}
		tx.Uninstall = append(tx.Uninstall, model.UninstallRecord(name, pkg))

		return e.saveTx(tx)
	})
}

// ResolveDependencies extends the staged install list with every transitive
// dependency not already installed or staged.
func (e *Engine) ResolveDependencies() error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("resolve-dependencies")
		if err != nil {
			return err
		}
		next, err := e.resolver.ResolveDependencies(e.index.List(), e.installed.List(), tx.Install)
		if err != nil {
			return err
		}
		tx.Install = next
		return e.saveTx(tx)
	})
}

// ResolveRequiredBy extends the staged uninstall list with every installed,
// non-staged, non-upgrading package that depends on something already
// staged for removal.
func (e *Engine) ResolveRequiredBy() error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("resolve-required-by")
		if err != nil {
			return err
		}
		tx.Uninstall = e.resolver.ResolveRequiredBy(e.installed.List(), tx.Install, tx.Uninstall)
		return e.saveTx(tx)
	})
}

// AutoRemove extends the staged uninstall list with every installed,
// non-wanted package left with no remaining dependent once the currently
// staged changes are applied.
func (e *Engine) AutoRemove() error {
	return e.lock.With(func() error {
		tx, err := e.requirePending("auto-remove")
		if err != nil {
			return err
		}
		tx.Uninstall = e.resolver.AutoRemove(e.index.List(), e.installed.List(), tx.Install, tx.Uninstall)
		return e.saveTx(tx)
	})
}
