package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Deleranax/ccpm/pkg/model"
)

// HTTPDriver handles http:// and https:// repositories, fetching each
// resource with a plain net/http.Client the way the teacher's own HTTP
// backends (pkg/nix, pkg/brew) do — no third-party HTTP client is pulled
// in for this, since none of the pack's repos reach for one either.
type HTTPDriver struct {
	client *http.Client
	logger *log.Logger
}

// NewHTTPDriver builds an HTTPDriver with the given timeout. A nil logger
// discards output, matching the teacher's Config.Logger default.
func NewHTTPDriver(timeout time.Duration, logger *log.Logger) *HTTPDriver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &HTTPDriver{client: &http.Client{Timeout: timeout}, logger: logger}
}

func (d *HTTPDriver) CanHandle(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (d *HTTPDriver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("driver: building request for %s: %w", url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("driver: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (d *HTTPDriver) GetManifest(ctx context.Context, repoURL string) (model.RepositoryManifest, error) {
	url := TrimTrailingSlash(repoURL) + "/manifest.json"
	d.logger.Printf("fetching manifest %s", url)
	body, err := d.fetch(ctx, url)
	if err != nil {
		return model.RepositoryManifest{}, err
	}
	var m model.RepositoryManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return model.RepositoryManifest{}, fmt.Errorf("driver: parsing manifest from %s: %w", url, err)
	}
	return m, nil
}

func (d *HTTPDriver) GetPackagesIndex(ctx context.Context, repo model.RepositoryManifest) (model.PackagesIndex, error) {
	url := TrimTrailingSlash(repo.URL) + "/pool/index.json"
	d.logger.Printf("fetching index %s", url)
	body, err := d.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	var idx model.PackagesIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("driver: parsing index from %s: %w", url, err)
	}
	return idx, nil
}

func (d *HTTPDriver) DownloadPackage(ctx context.Context, repo model.RepositoryManifest, name, version, destDir string) error {
	url := TrimTrailingSlash(repo.URL) + "/pool/" + name + "." + version + ".ccp"
	d.logger.Printf("downloading package %s", url)
	body, err := d.fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("driver: creating %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, name+"."+version+".ccp")
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return fmt.Errorf("driver: writing %s: %w", dest, err)
	}
	return nil
}

// StatusError reports a non-200 HTTP response, carrying the status code as
// the spec requires ("A non-200 response is an error carrying the status
// code.").
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("driver: %s: http status %d", e.URL, e.StatusCode)
}
