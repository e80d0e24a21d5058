package driver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deleranax/ccpm/pkg/driver"
	"github.com/Deleranax/ccpm/pkg/model"
)

func TestRegistryPicksByScheme(t *testing.T) {
	reg := driver.NewRegistry(driver.NewHTTPDriver(0, nil), driver.NewFileDriver(nil))

	d, err := reg.For("https://example.com/repo")
	require.NoError(t, err)
	assert.IsType(t, &driver.HTTPDriver{}, d)

	d, err = reg.For("file:///tmp/repo")
	require.NoError(t, err)
	assert.IsType(t, &driver.FileDriver{}, d)

	_, err = reg.For("ftp://example.com/repo")
	assert.Error(t, err)
}

func TestNormalizeRepoURLRewritesGithub(t *testing.T) {
	got := driver.NormalizeRepoURL("https://github.com/acme/widgets")
	assert.Equal(t, "https://raw.githubusercontent.com/acme/widgets/dist", got)

	got = driver.NormalizeRepoURL("https://example.com/repo")
	assert.Equal(t, "https://example.com/repo", got)
}

func TestHTTPDriverFetchesManifestAndIndexAndPackage(t *testing.T) {
	idx := model.PackagesIndex{"app": {LatestVersion: "1.0"}}
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.RepositoryManifest{Name: "acme", Priority: 1})
	})
	mux.HandleFunc("/pool/index.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(idx)
	})
	mux.HandleFunc("/pool/app.1.0.ccp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := driver.NewHTTPDriver(0, nil)

	manifest, err := d.GetManifest(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "acme", manifest.Name)

	gotIdx, err := d.GetPackagesIndex(context.Background(), model.RepositoryManifest{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "1.0", gotIdx["app"].LatestVersion)

	destDir := t.TempDir()
	err = d.DownloadPackage(context.Background(), model.RepositoryManifest{URL: srv.URL}, "app", "1.0", destDir)
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(destDir, "app.1.0.ccp"))
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(body))
}

func TestHTTPDriverReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := driver.NewHTTPDriver(0, nil)
	_, err := d.GetManifest(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *driver.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFileDriverReadsFromDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pool"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "manifest.json"), []byte(`{"name":"local"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pool", "index.json"), []byte(`{"app":{"latest_version":"1.0"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pool", "app.1.0.ccp"), []byte("bytes"), 0o644))

	d := driver.NewFileDriver(nil)
	repoURL := "file://" + root

	manifest, err := d.GetManifest(context.Background(), repoURL)
	require.NoError(t, err)
	assert.Equal(t, "local", manifest.Name)

	destDir := t.TempDir()
	err = d.DownloadPackage(context.Background(), model.RepositoryManifest{URL: repoURL}, "app", "1.0", destDir)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(destDir, "app.1.0.ccp"))
	assert.NoError(t, statErr)
}
