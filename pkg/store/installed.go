package store

import (
	"log"

	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
)

// Installed is the installed-package database store
// (packages-database.json).
type Installed struct {
	file *File[model.PackagesDatabase]
}

// OpenInstalled loads (or initialises) the installed database at path.
func OpenInstalled(path string, logger *log.Logger, events *event.Bus) (*Installed, error) {
	f, err := Open(path, func() model.PackagesDatabase { return model.PackagesDatabase{} }, logger, events)
	if err != nil {
		return nil, err
	}
	return &Installed{file: f}, nil
}

// Get returns a copy of the installed record for name.
func (i *Installed) Get(name string) (model.InstalledPackage, bool) {
	var out model.InstalledPackage
	var ok bool
	i.file.View(func(v model.PackagesDatabase) {
		out, ok = v[name]
	})
	return out, ok
}

// Set replaces the entire installed database.
func (i *Installed) Set(db model.PackagesDatabase) error {
	return i.file.Set(db)
}

// Put inserts or overwrites a single installed record, persisting the
// whole table (§4.3: "mutations rewrite the whole file").
func (i *Installed) Put(name string, pkg model.InstalledPackage) error {
	return i.file.Mutate(func(v model.PackagesDatabase) (model.PackagesDatabase, error) {
		next := copyDB(v)
		next[name] = pkg
		return next, nil
	})
}

// Delete removes a single installed record, persisting the whole table.
func (i *Installed) Delete(name string) error {
	return i.file.Mutate(func(v model.PackagesDatabase) (model.PackagesDatabase, error) {
		next := copyDB(v)
		delete(next, name)
		return next, nil
	})
}

// List returns a copy of the whole installed database.
func (i *Installed) List() model.PackagesDatabase {
	var out model.PackagesDatabase
	i.file.View(func(v model.PackagesDatabase) {
		out = copyDB(v)
	})
	return out
}

// Search returns the installed packages whose name matches pattern.
func (i *Installed) Search(pattern string) model.PackagesDatabase {
	out := model.PackagesDatabase{}
	i.file.View(func(v model.PackagesDatabase) {
		for name, pkg := range v {
			if MatchGlob(pattern, name) {
				out[name] = pkg
			}
		}
	})
	return out
}

func copyDB(v model.PackagesDatabase) model.PackagesDatabase {
	next := make(model.PackagesDatabase, len(v)+1)
	for k, val := range v {
		filesCopy := make(map[string]string, len(val.Files))
		for fp, digest := range val.Files {
			filesCopy[fp] = digest
		}
		val.Files = filesCopy
		next[k] = val
	}
	return next
}
