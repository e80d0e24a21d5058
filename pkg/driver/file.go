package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Deleranax/ccpm/pkg/model"
)

// FileDriver handles file:// repositories: a local directory laid out the
// same way an HTTP repository root is.
type FileDriver struct {
	logger *log.Logger
}

// NewFileDriver builds a FileDriver. A nil logger discards output.
func NewFileDriver(logger *log.Logger) *FileDriver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &FileDriver{logger: logger}
}

func (d *FileDriver) CanHandle(url string) bool {
	return strings.HasPrefix(url, "file://")
}

func toPath(fileURL string) string {
	return strings.TrimPrefix(fileURL, "file://")
}

func (d *FileDriver) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("driver: %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("driver: %s is a directory, not a file", path)
	}
	return os.ReadFile(path)
}

func (d *FileDriver) GetManifest(ctx context.Context, repoURL string) (model.RepositoryManifest, error) {
	path := filepath.Join(TrimTrailingSlash(toPath(repoURL)), "manifest.json")
	d.logger.Printf("reading manifest %s", path)
	body, err := d.read(path)
	if err != nil {
		return model.RepositoryManifest{}, err
	}
	var m model.RepositoryManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return model.RepositoryManifest{}, fmt.Errorf("driver: parsing manifest at %s: %w", path, err)
	}
	return m, nil
}

func (d *FileDriver) GetPackagesIndex(ctx context.Context, repo model.RepositoryManifest) (model.PackagesIndex, error) {
	path := filepath.Join(TrimTrailingSlash(toPath(repo.URL)), "pool", "index.json")
	d.logger.Printf("reading index %s", path)
	body, err := d.read(path)
	if err != nil {
		return nil, err
	}
	var idx model.PackagesIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("driver: parsing index at %s: %w", path, err)
	}
	return idx, nil
}

func (d *FileDriver) DownloadPackage(ctx context.Context, repo model.RepositoryManifest, name, version, destDir string) error {
	src := filepath.Join(TrimTrailingSlash(toPath(repo.URL)), "pool", name+"."+version+".ccp")
	d.logger.Printf("copying package %s", src)
	body, err := d.read(src)
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
