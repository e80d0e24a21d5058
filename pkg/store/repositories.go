package store

import (
	"log"

	"github.com/google/uuid"

	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
)

// RepositoriesTable is the on-disk shape of repositories-index.json.
type RepositoriesTable map[string]model.Repository

// Repositories is the repository table store.
type Repositories struct {
	file *File[RepositoriesTable]
}

// OpenRepositories loads (or initialises) the repository table at path.
func OpenRepositories(path string, logger *log.Logger, events *event.Bus) (*Repositories, error) {
	f, err := Open(path, func() RepositoriesTable { return RepositoriesTable{} }, logger, events)
	if err != nil {
		return nil, err
	}
	return &Repositories{file: f}, nil
}

// Get returns a copy of the repository with the given id, or false if
// absent.
func (r *Repositories) Get(id string) (model.Repository, bool) {
	var out model.Repository
	var ok bool
	r.file.View(func(v RepositoriesTable) {
		out, ok = v[id]
	})
	return out, ok
}

// FindByURL returns the repository currently registered for url, if any.
// Add enforces the no-shared-URL invariant with its own check and does
// not call FindByURL.
func (r *Repositories) FindByURL(url string) (model.Repository, bool) {
	var out model.Repository
	var ok bool
	r.file.View(func(v RepositoriesTable) {
		for _, repo := range v {
			if repo.URL == url {
				out, ok = repo, true
				return
			}
		}
	})
	return out, ok
}

// Add records a repository with the given name, url and priority under a
// fresh UUID and persists it. Returns ErrDuplicate if url is already
// registered.
func (r *Repositories) Add(name, url string, priority int) (model.Repository, error) {
	var out model.Repository
	err := r.file.Mutate(func(v RepositoriesTable) (RepositoriesTable, error) {
		for _, repo := range v {
			if repo.URL == url {
				return v, ErrDuplicate
			}
		}
		next := copyTable(v)
		id := uuid.NewString()
		out = model.Repository{ID: id, Name: name, URL: url, Priority: priority}
		next[id] = out
		return next, nil
	})
	if err != nil {
		return model.Repository{}, err
	}
	return out, nil
}

// Update overwrites the record for id (used by refresh when a repository's
// own manifest reports a changed name/url/priority).
func (r *Repositories) Update(id string, repo model.Repository) error {
	return r.file.Mutate(func(v RepositoriesTable) (RepositoriesTable, error) {
		if _, ok := v[id]; !ok {
			return v, ErrNotFound
		}
		next := copyTable(v)
		repo.ID = id
		next[id] = repo
		return next, nil
	})
}

// Remove deletes the repository with the given id.
func (r *Repositories) Remove(id string) error {
	return r.file.Mutate(func(v RepositoriesTable) (RepositoriesTable, error) {
		if _, ok := v[id]; !ok {
			return v, ErrNotFound
		}
		next := copyTable(v)
		delete(next, id)
		return next, nil
	})
}

// List returns a copy of every registered repository.
func (r *Repositories) List() []model.Repository {
	var out []model.Repository
	r.file.View(func(v RepositoriesTable) {
		out = make([]model.Repository, 0, len(v))
		for _, repo := range v {
			out = append(out, repo)
		}
	})
	return out
}

// Search returns the registered repositories whose name matches pattern.
func (r *Repositories) Search(pattern string) []model.Repository {
	var out []model.Repository
	r.file.View(func(v RepositoriesTable) {
		for _, repo := range v {
			if MatchGlob(pattern, repo.Name) {
				out = append(out, repo)
			}
		}
	})
	return out
}

func copyTable(v RepositoriesTable) RepositoriesTable {
	next := make(RepositoriesTable, len(v)+1)
	for k, val := range v {
		next[k] = val
	}
	return next
}
