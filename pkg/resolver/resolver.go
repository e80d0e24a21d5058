// Package resolver implements the dependency/reverse-dependency/orphan
// resolver (C5): forward dependency closure, reverse-dependency closure,
// and orphan sweep over the installed and staged sets, plus the
// transaction engine's pre-commit checks. Every operation here is a pure
// function over (installed database, install list, uninstall list, merged
// index) — explicit worklists over immutable snapshots, not recursive
// in-place table mutation, so none of it needs re-entrancy guards and the
// pre-commit checks can be tested in isolation from the transaction
// engine.
package resolver

import (
	"errors"
	"fmt"

	"github.com/Deleranax/ccpm/pkg/model"
)

var (
	// ErrUnknownPackage is returned when a name has no entry in the merged
	// index.
	ErrUnknownPackage = errors.New("resolver: unknown package")
	// ErrUnknownVersion is returned when a named version is absent from an
	// index entry's Versions map.
	ErrUnknownVersion = errors.New("resolver: unknown version")
)

// Resolver holds no state: every method takes the full snapshot it needs
// and returns a new slice, never mutating its inputs.
type Resolver struct{}

// New constructs a Resolver. It is a value type in all but name — kept as
// a constructor so callers have a stable place to attach future options.
func New() *Resolver { return &Resolver{} }

// versionOf resolves an entry's latest version when the requested version
// string is empty.
func versionOf(entry model.IndexEntry, requested string) string {
	if requested == "" {
		return entry.LatestVersion
	}
	return requested
}

func dependenciesOf(idx model.PackagesIndex, name, version string) ([]string, error) {
	entry, ok := idx[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, name)
	}
	version = versionOf(entry, version)
	v, ok := entry.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrUnknownVersion, name, version)
	}
	return v.Dependencies, nil
}

func containsName(entries []model.InstallEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ResolveDependencies runs a worklist BFS over install's current entries
// as seeds, staging every transitive dependency not already installed or
// staged, with Wanted=false. Returns ErrUnknownPackage/ErrUnknownVersion if
// any referenced name/version is absent from idx.
func (r *Resolver) ResolveDependencies(idx model.PackagesIndex, installed model.PackagesDatabase, install []model.InstallEntry) ([]model.InstallEntry, error) {
	result := append([]model.InstallEntry(nil), install...)
	staged := make(map[string]bool, len(result))
	for _, e := range result {
		staged[e.Name] = true
	}

	queue := append([]model.InstallEntry(nil), install...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		deps, err := dependenciesOf(idx, cur.Name, cur.Version)
		if err != nil {
			return nil, err
		}

		for _, dep := range deps {
			if _, ok := installed[dep]; ok {
				continue
			}
			if staged[dep] {
				continue
			}
			entry, ok := idx[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, dep)
			}
			next := model.InstallEntry{Name: dep, Version: entry.LatestVersion, Wanted: false}
			result = append(result, next)
			staged[dep] = true
			queue = append(queue, next)
		}
	}
	return result, nil
}

// ResolveRequiredBy runs a worklist BFS over uninstall's current entries
// as seeds: for each staged removal p, every installed package not already
// staged for removal and not being upgraded (present in install) that
// depends on p is itself staged for removal, snapshotted in full so
// rollback never needs to re-read the index.
func (r *Resolver) ResolveRequiredBy(installed model.PackagesDatabase, install []model.InstallEntry, uninstall []model.UninstallEntry) []model.UninstallEntry {
	result := append([]model.UninstallEntry(nil), uninstall...)
	staged := make(map[string]bool, len(result))
	for _, e := range result {
		staged[e.Name] = true
	}

	queue := append([]model.UninstallEntry(nil), uninstall...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if containsName(install, p.Name) {
			// p is being reinstalled in the same transaction (upgrade): it
			// stays installed throughout, so nothing that depends on it
			// needs to be swept too.
			continue
		}

		for name, q := range installed {
			if staged[name] || containsName(install, name) {
				continue
			}
			if containsString(q.Dependencies, p.Name) {
				entry := model.UninstallRecord(name, q)
				result = append(result, entry)
				staged[name] = true
				queue = append(queue, entry)
			}
		}
	}
	return result
}

// AutoRemove performs the orphan sweep: every installed, non-wanted
// package with no remaining dependent — neither another still-present
// installed package nor a staged install — is staged for removal, and its
// own non-wanted dependencies are re-queued for the same check. The loop
// terminates because every iteration drops a worklist item, and a name is
// only re-queued when the iteration that queues it strictly grows the
// uninstall set.
func (r *Resolver) AutoRemove(idx model.PackagesIndex, installed model.PackagesDatabase, install []model.InstallEntry, uninstall []model.UninstallEntry) []model.UninstallEntry {
	result := append([]model.UninstallEntry(nil), uninstall...)
	staged := make(map[string]bool, len(result))
	for _, e := range result {
		staged[e.Name] = true
	}

	hasDependent := func(name string) bool {
		for other, pkg := range installed {
			if other == name || staged[other] {
				continue
			}
			if containsString(pkg.Dependencies, name) {
				return true
			}
		}
		for _, e := range install {
			deps, err := dependenciesOf(idx, e.Name, e.Version)
			if err != nil {
				continue
			}
			if containsString(deps, name) {
				return true
			}
		}
		return false
	}

	var queue []string
	for name, pkg := range installed {
		if !pkg.Wanted && !staged[name] {
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if staged[name] {
			continue
		}
		if hasDependent(name) {
			continue
		}

		pkg := installed[name]
		entry := model.UninstallRecord(name, pkg)
		result = append(result, entry)
		staged[name] = true

		for _, dep := range pkg.Dependencies {
			depPkg, ok := installed[dep]
			if !ok || depPkg.Wanted || staged[dep] {
				continue
			}
			queue = append(queue, dep)
		}
	}

	return result
}

// PrecommitCheck runs the four pre-commit checks of §4.5. Any violation
// aborts commit before any side effect; the first violation encountered is
// returned.
func (r *Resolver) PrecommitCheck(idx model.PackagesIndex, installed model.PackagesDatabase, install []model.InstallEntry, uninstall []model.UninstallEntry) error {
	uninstallNames := make(map[string]bool, len(uninstall))
	for _, u := range uninstall {
		uninstallNames[u.Name] = true
	}
	installNames := make(map[string]bool, len(install))
	for _, i := range install {
		installNames[i.Name] = true
	}

	// 1. Every uninstall name is currently installed.
	for _, u := range uninstall {
		if _, ok := installed[u.Name]; !ok {
			return fmt.Errorf("precommit: %s is staged for uninstall but not installed", u.Name)
		}
	}

	// 2. No install name already installed, unless also staged for
	// uninstall (upgrade).
	for _, i := range install {
		if _, ok := installed[i.Name]; ok && !uninstallNames[i.Name] {
			return fmt.Errorf("precommit: %s is already installed", i.Name)
		}
	}

	// 3. No still-present installed package, and no staged install,
	// depends on a staged uninstall — except when that uninstall is being
	// reinstalled in the same transaction.
	for _, u := range uninstall {
		if installNames[u.Name] {
			continue // reinstall/upgrade carve-out
		}
		for name, pkg := range installed {
			if uninstallNames[name] {
				continue
			}
			if containsString(pkg.Dependencies, u.Name) {
				return fmt.Errorf("precommit: %s cannot be uninstalled, %s still depends on it", u.Name, name)
			}
		}
		for _, i := range install {
			deps, err := dependenciesOf(idx, i.Name, i.Version)
			if err != nil {
				return err
			}
			if containsString(deps, u.Name) {
				return fmt.Errorf("precommit: %s cannot be uninstalled, staged install %s depends on it", u.Name, i.Name)
			}
		}
	}

	// 4. Every dependency of every staged install is already installed
	// (and not being uninstalled) or also staged for install.
	for _, i := range install {
		deps, err := dependenciesOf(idx, i.Name, i.Version)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			_, isInstalled := installed[dep]
			satisfiedByInstalled := isInstalled && !uninstallNames[dep]
			if satisfiedByInstalled || installNames[dep] {
				continue
			}
			return fmt.Errorf("precommit: %s depends on %s, which is neither installed nor staged", i.Name, dep)
		}
	}

	return nil
}
