// Package repository implements the repository layer (C4): registering
// and removing repositories, and refreshing/merging their manifests and
// package indices into the single merged PackagesIndex the resolver reads.
package repository

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/Deleranax/ccpm/pkg/driver"
	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
	"github.com/Deleranax/ccpm/pkg/store"
)

// Manager owns repository registration and index refresh/merge.
type Manager struct {
	repos   *store.Repositories
	index   *store.Packages
	drivers *driver.Registry
	logger  *log.Logger
	events  *event.Bus
}

// New builds a Manager over the given stores and driver registry.
func New(repos *store.Repositories, index *store.Packages, drivers *driver.Registry, logger *log.Logger, events *event.Bus) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if events == nil {
		events = event.New()
	}
	return &Manager{repos: repos, index: index, drivers: drivers, logger: logger, events: events}
}

// Add normalises the given URL, fetches the repository's manifest, and
// registers it. The stored record's name/url/priority come from the
// fetched manifest, not from the raw input URL — the input URL only needs
// to resolve to a manifest.json once; from then on the repository's own
// manifest is authoritative, which is what lets Refresh migrate a
// repository seamlessly between hosts.
func (m *Manager) Add(ctx context.Context, rawURL string) (model.Repository, error) {
	addURL := driver.NormalizeRepoURL(rawURL)

	d, err := m.drivers.For(addURL)
	if err != nil {
		return model.Repository{}, err
	}

	manifest, err := d.GetManifest(ctx, addURL)
	if err != nil {
		return model.Repository{}, err
	}
	if manifest.Name == "" || manifest.URL == "" {
		return model.Repository{}, fmt.Errorf("repository: manifest at %s is missing name or url", addURL)
	}

	repo, err := m.repos.Add(manifest.Name, manifest.URL, manifest.Priority)
	if err != nil {
		return model.Repository{}, err
	}
	return repo, nil
}

// Remove deletes the repository with the given id. It does not re-merge
// the index; callers that want the removed repository's packages gone
// from the merged view should call Refresh afterwards.
func (m *Manager) Remove(id string) error {
	return m.repos.Remove(id)
}

// List returns every registered repository.
func (m *Manager) List() []model.Repository {
	return m.repos.List()
}

// staged holds one repository's freshly-fetched manifest and index during
// a Refresh, before anything is persisted.
type staged struct {
	manifest model.RepositoryManifest
	index    model.PackagesIndex
}

// Refresh fetches every registered repository's manifest and packages
// index, then merges them into a single PackagesIndex. All fetches are
// staged before any persistent write: either every repository record and
// the merged index are replaced together, or nothing changes at all.
func (m *Manager) Refresh(ctx context.Context) error {
	m.events.Emit(event.IndexUpdateStart)

	repos := m.repos.List()
	results := make(map[string]staged, len(repos))

	for _, repo := range repos {
		m.events.Emit(event.IndexUpdating, repo.ID, repo.Name)

		d, err := m.drivers.For(repo.URL)
		if err != nil {
			m.events.Emit(event.IndexNotUpdated, repo.ID, repo.Name)
			return err
		}

		manifest, err := d.GetManifest(ctx, repo.URL)
		if err != nil {
			m.events.Emit(event.IndexNotUpdated, repo.ID, repo.Name)
			return err
		}

		idx, err := d.GetPackagesIndex(ctx, manifest)
		if err != nil {
			m.events.Emit(event.IndexNotUpdated, repo.ID, repo.Name)
			return err
		}

		results[repo.ID] = staged{manifest: manifest, index: idx}
		m.events.Emit(event.IndexUpdated, repo.ID, repo.Name)
	}

	// All fetches succeeded: persist any repository record changes (name,
	// url, or priority drift reported by the repository's own manifest).
	for _, repo := range repos {
		st := results[repo.ID]
		if st.manifest.Name != repo.Name || st.manifest.URL != repo.URL || st.manifest.Priority != repo.Priority {
			updated := model.Repository{ID: repo.ID, Name: st.manifest.Name, URL: st.manifest.URL, Priority: st.manifest.Priority}
			if err := m.repos.Update(repo.ID, updated); err != nil {
				return err
			}
		}
	}

	// Re-read the live repository records (not the pre-refresh snapshot)
	// for merge priorities, per the design note: always trust the live
	// repository record, never a cached merged-entry priority.
	live := m.repos.List()
	merged := merge(live, results)

	if err := m.index.Set(merged); err != nil {
		return err
	}

	m.events.Emit(event.IndexUpdateEnd)
	return nil
}

// merge combines each repository's staged index into one PackagesIndex,
// keeping for each package name the entry from the repository with the
// numerically smaller (stronger) priority. Ties are broken by repository
// UUID (smaller wins) so the merge is reproducible in tests, per §8.
func merge(repos []model.Repository, results map[string]staged) model.PackagesIndex {
	merged := model.PackagesIndex{}
	winnerRepoID := map[string]string{}

	for _, repo := range repos {
		st, ok := results[repo.ID]
		if !ok {
			continue
		}
		for name, entry := range st.index {
			entry.Repository = repo.ID
			entry.Priority = repo.Priority

			current, exists := merged[name]
			if !exists ||
				entry.Priority < current.Priority ||
				(entry.Priority == current.Priority && repo.ID < winnerRepoID[name]) {
				merged[name] = entry
				winnerRepoID[name] = repo.ID
			}
		}
	}
	return merged
}
