// Package query implements the read-only glob search surface (C8): thin
// wrappers over the three stores that never touch the transaction or
// repository layers, so a query never blocks on or interferes with an
// in-flight transaction.
package query

import (
	"github.com/Deleranax/ccpm/pkg/model"
	"github.com/Deleranax/ccpm/pkg/store"
)

// Service answers read-only questions about repositories, the merged
// index, and installed packages.
type Service struct {
	repos     *store.Repositories
	index     *store.Packages
	installed *store.Installed
}

// New builds a Service over the given stores.
func New(repos *store.Repositories, index *store.Packages, installed *store.Installed) *Service {
	return &Service{repos: repos, index: index, installed: installed}
}

// Repositories returns every registered repository whose name matches
// pattern ("" and "*" both match everything).
func (s *Service) Repositories(pattern string) []model.Repository {
	if pattern == "" {
		pattern = "*"
	}
	return s.repos.Search(pattern)
}

// Available returns every merged-index entry whose name matches pattern.
func (s *Service) Available(pattern string) model.PackagesIndex {
	if pattern == "" {
		pattern = "*"
	}
	return s.index.Search(pattern)
}

// Installed returns every installed package whose name matches pattern.
func (s *Service) Installed(pattern string) model.PackagesDatabase {
	if pattern == "" {
		pattern = "*"
	}
	return s.installed.Search(pattern)
}

// IsInstalled reports whether name is currently installed, and its record
// if so.
func (s *Service) IsInstalled(name string) (model.InstalledPackage, bool) {
	return s.installed.Get(name)
}

// Describe returns the merged-index entry for name, if any repository
// currently serves it.
func (s *Service) Describe(name string) (model.IndexEntry, bool) {
	return s.index.Get(name)
}
