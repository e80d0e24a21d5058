package driver

import (
	"regexp"
	"strings"
)

// TrimTrailingSlash strips a single trailing "/" before a path suffix is
// composed onto a repository URL, per §4.1.
func TrimTrailingSlash(url string) string {
	return strings.TrimSuffix(url, "/")
}

// githubRepoPattern matches a plain GitHub repository URL, with or without
// scheme, owner/repo only (no further path segments).
var githubRepoPattern = regexp.MustCompile(`^(?:https?://)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// NormalizeRepoURL rewrites a user-provided repository URL that points at
// a recognised forge host to that host's raw-file prefix, so a GitHub
// project page can be registered directly as a repository. Unrecognised
// hosts (including unrecognised forges) pass through unchanged — this is
// best-effort, not validation.
func NormalizeRepoURL(raw string) string {
	if m := githubRepoPattern.FindStringSubmatch(raw); m != nil {
		owner, repo := m[1], m[2]
		return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/dist"
	}
	return raw
}
