// Package driver defines the transport capability the engine consumes to
// fetch manifests, indices, and archives from a repository (C1). A driver
// is picked by URL scheme from a small table, replacing the source's
// duck-typed "inspect the scheme, dynamically load a module of that name"
// lookup with an explicit interface and two concrete implementations.
package driver

import (
	"context"
	"fmt"

	"github.com/Deleranax/ccpm/pkg/model"
)

// Driver is the capability trait every transport implements: manifest and
// index fetch, plus archive download, for one URL scheme.
type Driver interface {
	// CanHandle reports whether this driver owns the given URL's scheme.
	CanHandle(url string) bool

	// GetManifest fetches <repoURL>/manifest.json.
	GetManifest(ctx context.Context, repoURL string) (model.RepositoryManifest, error)

	// GetPackagesIndex fetches <repo.URL>/pool/index.json.
	GetPackagesIndex(ctx context.Context, repo model.RepositoryManifest) (model.PackagesIndex, error)

	// DownloadPackage fetches <repo.URL>/pool/<name>.<version>.ccp into
	// destDir/<name>.<version>.ccp.
	DownloadPackage(ctx context.Context, repo model.RepositoryManifest, name, version, destDir string) error
}

// Registry selects a Driver for a URL by scheme. New schemes are added by
// registering another Driver, never by touching the selection logic.
type Registry struct {
	drivers []Driver
}

// NewRegistry builds a Registry trying each driver in order.
func NewRegistry(drivers ...Driver) *Registry {
	return &Registry{drivers: drivers}
}

// For returns the first registered driver that claims url.
func (r *Registry) For(url string) (Driver, error) {
	for _, d := range r.drivers {
		if d.CanHandle(url) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("driver: no driver handles url %q", url)
}
