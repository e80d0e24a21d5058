package store

import (
	"log"

	"github.com/Deleranax/ccpm/pkg/event"
	"github.com/Deleranax/ccpm/pkg/model"
)

// Packages is the merged-index store (packages-index.json).
type Packages struct {
	file *File[model.PackagesIndex]
}

// OpenPackages loads (or initialises) the merged index at path.
func OpenPackages(path string, logger *log.Logger, events *event.Bus) (*Packages, error) {
	f, err := Open(path, func() model.PackagesIndex { return model.PackagesIndex{} }, logger, events)
	if err != nil {
		return nil, err
	}
	return &Packages{file: f}, nil
}

// Get returns a copy of the merged entry for name.
func (p *Packages) Get(name string) (model.IndexEntry, bool) {
	var out model.IndexEntry
	var ok bool
	p.file.View(func(v model.PackagesIndex) {
		out, ok = v[name]
	})
	return out, ok
}

// Set replaces the entire merged index. The repository layer always
// rebuilds the index from scratch (it is a pure function of the live
// repositories), so there is no field-level mutation here.
func (p *Packages) Set(idx model.PackagesIndex) error {
	return p.file.Set(idx)
}

// List returns a copy of the whole index.
func (p *Packages) List() model.PackagesIndex {
	var out model.PackagesIndex
	p.file.View(func(v model.PackagesIndex) {
		out = make(model.PackagesIndex, len(v))
		for k, val := range v {
			out[k] = val
		}
	})
	return out
}

// Search returns the package names (with their entries) matching pattern.
func (p *Packages) Search(pattern string) model.PackagesIndex {
	out := model.PackagesIndex{}
	p.file.View(func(v model.PackagesIndex) {
		for name, entry := range v {
			if MatchGlob(pattern, name) {
				out[name] = entry
			}
		}
	})
	return out
}
