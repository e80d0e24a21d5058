// Package model holds the persistent record types of the package engine:
// repositories, the merged package index, installed packages, package
// archives, and the transaction journal. These are the tagged records that
// replace the untyped tables of the source implementation (see root
// DESIGN.md).
package model

// Repository is a registered package source. Identified by an opaque UUID
// assigned locally on registration; never by URL or name.
type Repository struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// RepositoryManifest is what a repository serves at <url>/manifest.json.
type RepositoryManifest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// PackageManifest describes one package at one version, as published by a
// single repository.
type PackageManifest struct {
	Description  string   `json:"description"`
	License      string   `json:"license"`
	Authors      []string `json:"authors"`
	Maintainers  []string `json:"maintainers"`
	Dependencies []string `json:"dependencies"`
	Version      string   `json:"version"`
}

// VersionEntry is the per-version slice of an IndexEntry: just enough to
// resolve and fetch without re-reading the owning manifest.
type VersionEntry struct {
	Digest       string   `json:"digest"`
	Dependencies []string `json:"dependencies"`
}

// IndexEntry is the merged, per-package-name view produced by the
// repository layer (C4). It is a pure function of the set of live
// repositories' indices and priorities; any refresh reconstructs it
// entirely, so it is always safe to overwrite in place.
type IndexEntry struct {
	Description   string                  `json:"description"`
	License       string                  `json:"license"`
	Authors       []string                `json:"authors"`
	Maintainers   []string                `json:"maintainers"`
	LatestVersion string                  `json:"latest_version"`
	Versions      map[string]VersionEntry `json:"versions"`
	Repository    string                  `json:"repository"`
	Priority      int                     `json:"priority"`
}

// PackagesIndex maps package name to its merged entry.
type PackagesIndex map[string]IndexEntry

// InstalledPackage records one currently-installed package.
type InstalledPackage struct {
	Version      string            `json:"version"`
	Files        map[string]string `json:"files"` // absolute path -> content digest
	Dependencies []string          `json:"dependencies"`
	Description  string            `json:"description"`
	License      string            `json:"license"`
	Authors      []string          `json:"authors"`
	Maintainers  []string          `json:"maintainers"`
	Wanted       bool              `json:"wanted"`
}

// PackagesDatabase maps package name to its installed record.
type PackagesDatabase map[string]InstalledPackage

// ArchiveFile is one file packed inside an archive, as decoded from JSON
// before the codec strips content out into a plain digest map.
type ArchiveFile struct {
	Content string `json:"content"`
	Digest  string `json:"digest"`
}

// ArchiveManifest is the JSON payload embedded (base64+zlib) in a .ccp file.
type ArchiveManifest struct {
	Description  string                 `json:"description"`
	License      string                 `json:"license"`
	Authors      []string               `json:"authors"`
	Maintainers  []string               `json:"maintainers"`
	Dependencies []string               `json:"dependencies"`
	Version      string                 `json:"version"`
	Files        map[string]ArchiveFile `json:"files"`
}

// TransactionStatus is the transaction engine's state machine value (§4.6).
type TransactionStatus string

const (
	StatusIdle        TransactionStatus = "Idle"
	StatusPending     TransactionStatus = "Pending"
	StatusCommitting  TransactionStatus = "Committing"
	StatusCommitted   TransactionStatus = "Committed"
	StatusAborted     TransactionStatus = "Aborted"
	StatusFailed      TransactionStatus = "Failed"
	StatusRolledBack  TransactionStatus = "RolledBack"
)

// InstallEntry is one package staged for installation in a transaction.
type InstallEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Wanted  bool   `json:"wanted"`
}

// UninstallEntry is one package staged for removal, carrying a full
// snapshot of its installed record so rollback can restore the database
// without needing the (possibly since-changed) merged index.
type UninstallEntry struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Files        map[string]string `json:"files"`
	Dependencies []string          `json:"dependencies"`
	Description  string            `json:"description"`
	License      string            `json:"license"`
	Authors      []string          `json:"authors"`
	Maintainers  []string          `json:"maintainers"`
	Wanted       bool              `json:"wanted"`
}

// Transaction is the persisted journal record for the engine's single
// in-flight transaction.
type Transaction struct {
	TimeBegin  int64             `json:"time_begin"`
	TimeCommit int64             `json:"time_commit"`
	Status     TransactionStatus `json:"status"`
	Install    []InstallEntry    `json:"install"`
	Uninstall  []UninstallEntry  `json:"uninstall"`
}

// StepStatus is the per-entry status in the progress journal.
type StepStatus string

const (
	StepPending   StepStatus = "Pending"
	StepStarted   StepStatus = "Started"
	StepCompleted StepStatus = "Completed"
)

// ProgressEntry is one slot of the progress journal. Slots are indexed
// from 0: uninstall i is slot i, install j is slot len(uninstall)+j.
type ProgressEntry struct {
	Status StepStatus `json:"status"`
}

// Progress is the durable array backing recover/rollback: all uninstalls
// first, then all installs, as laid out in §3.
type Progress []ProgressEntry

// UninstallRecord converts an InstalledPackage snapshot plus its name into
// the full record stored on an UninstallEntry.
func UninstallRecord(name string, p InstalledPackage) UninstallEntry {
	return UninstallEntry{
		Name:         name,
		Version:      p.Version,
		Files:        p.Files,
		Dependencies: p.Dependencies,
		Description:  p.Description,
		License:      p.License,
		Authors:      p.Authors,
		Maintainers:  p.Maintainers,
		Wanted:       p.Wanted,
	}
}

// Installed converts an uninstall snapshot back into an InstalledPackage,
// used by rollback to restore a database entry.
func (u UninstallEntry) Installed() InstalledPackage {
	return InstalledPackage{
		Version:      u.Version,
		Files:        u.Files,
		Dependencies: u.Dependencies,
		Description:  u.Description,
		License:      u.License,
		Authors:      u.Authors,
		Maintainers:  u.Maintainers,
		Wanted:       u.Wanted,
	}
}
