package transaction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deleranax/ccpm/pkg/archive"
	"github.com/Deleranax/ccpm/pkg/driver"
	"github.com/Deleranax/ccpm/pkg/model"
	"github.com/Deleranax/ccpm/pkg/store"
)

// testEnv wires a full Engine over a temp data dir, a temp install root,
// and a file:// repository serving one package archive ("app", with no
// dependencies) through the real driver/store stack.
type testEnv struct {
	engine    *Engine
	installed *store.Installed
	index     *store.Packages
	repos     *store.Repositories
	root      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	root := t.TempDir()
	repoDir := t.TempDir()

	installed, err := store.OpenInstalled(filepath.Join(dataDir, "installed.json"), nil, nil)
	require.NoError(t, err)
	index, err := store.OpenPackages(filepath.Join(dataDir, "index.json"), nil, nil)
	require.NoError(t, err)
	repos, err := store.OpenRepositories(filepath.Join(dataDir, "repositories.json"), nil, nil)
	require.NoError(t, err)

	repo, err := repos.Add("acme", "file://"+repoDir, 10)
	require.NoError(t, err)

	require.NoError(t, index.Set(model.PackagesIndex{
		"app": {
			LatestVersion: "1.0",
			Repository:    repo.ID,
			Versions: map[string]model.VersionEntry{
				"1.0": {},
			},
		},
	}))

	manifest := model.ArchiveManifest{
		Version: "1.0",
		Files: map[string]model.ArchiveFile{
			"usr/bin/app": {Content: "#!/bin/sh\necho hi\n", Digest: archive.Digest("#!/bin/sh\necho hi\n")},
		},
	}
	wire, err := archive.Encode(manifest)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, "pool"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "pool", "app.1.0.ccp"), wire, 0o644))

	drivers := driver.NewRegistry(driver.NewFileDriver(nil))

	engine, err := New(dataDir, root, installed, index, repos, drivers, nil, nil)
	require.NoError(t, err)

	return &testEnv{engine: engine, installed: installed, index: index, repos: repos, root: root}
}

func TestBeginStageResolveCommitInstallsPackage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Install("app", "", true))
	require.NoError(t, env.engine.ResolveDependencies())
	require.NoError(t, env.engine.Commit(ctx))

	status, _ := env.engine.Status()
	assert.Equal(t, model.StatusCommitted, status)

	pkg, ok := env.installed.Get("app")
	require.True(t, ok)
	assert.Equal(t, "1.0", pkg.Version)
	assert.True(t, pkg.Wanted)

	content, err := os.ReadFile(filepath.Join(env.root, "usr", "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(content))
}

func TestBeginRefusesWhileCommitting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Install("app", "", true))

	tx := env.engine.loadTx()
	tx.Status = model.StatusCommitting
	require.NoError(t, env.engine.saveTx(tx))

	err := env.engine.Begin(ctx)
	assert.Error(t, err)
}

func TestRecoverResumesFromCrashedCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Install("app", "", true))
	require.NoError(t, env.engine.ResolveDependencies())

	tx := env.engine.loadTx()
	progress := make(model.Progress, len(tx.Install))
	progress[0] = model.ProgressEntry{Status: model.StepPending}
	require.NoError(t, env.engine.saveProgress(progress))
	tx.Status = model.StatusCommitting
	require.NoError(t, env.engine.saveTx(tx))

	require.NoError(t, env.engine.Recover(ctx))

	status, _ := env.engine.Status()
	assert.Equal(t, model.StatusCommitted, status)

	_, ok := env.installed.Get("app")
	assert.True(t, ok)
}

// TestRecoverResumesAfterCrashMidUnpack covers the scenario where the
// process dies after installStep has already unpacked an entry's files
// but before its progress entry was marked Completed: recover must redo
// the unpack rather than trip over its own leftovers.
func TestRecoverResumesAfterCrashMidUnpack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Install("app", "", true))
	require.NoError(t, env.engine.ResolveDependencies())

	tx := env.engine.loadTx()
	progress := make(model.Progress, len(tx.Install))
	require.NoError(t, env.engine.downloadStep(ctx, tx, progress))

	archivePath := filepath.Join(env.engine.downloadPath(), "app.1.0.ccp")
	raw, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	manifest, err := archive.Decode(raw)
	require.NoError(t, err)
	_, err = archive.Unpack(manifest, env.engine.installPath())
	require.NoError(t, err)

	// The crash lands here: files are already on disk under install/, but
	// the progress entry never advanced past Started.
	progress[0] = model.ProgressEntry{Status: model.StepStarted}
	require.NoError(t, env.engine.saveProgress(progress))
	tx.Status = model.StatusCommitting
	require.NoError(t, env.engine.saveTx(tx))

	require.NoError(t, env.engine.Recover(ctx))

	status, _ := env.engine.Status()
	assert.Equal(t, model.StatusCommitted, status)

	pkg, ok := env.installed.Get("app")
	require.True(t, ok)
	assert.Equal(t, "1.0", pkg.Version)

	content, err := os.ReadFile(filepath.Join(env.root, "usr", "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(content))
}

func TestRollbackRestoresUninstalledPackageOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Install("app", "", true))
	require.NoError(t, env.engine.ResolveDependencies())
	require.NoError(t, env.engine.Commit(ctx))

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Uninstall("app"))

	// Simulate uninstallStep having already run and been recorded complete
	// before a later step failed.
	require.NoError(t, env.installed.Delete("app"))

	tx := env.engine.loadTx()
	tx.Status = model.StatusFailed
	require.NoError(t, env.engine.saveTx(tx))
	require.NoError(t, env.engine.saveProgress(model.Progress{{Status: model.StepCompleted}}))

	require.NoError(t, env.engine.Rollback(ctx))

	status, _ := env.engine.Status()
	assert.Equal(t, model.StatusRolledBack, status)

	pkg, ok := env.installed.Get("app")
	require.True(t, ok)
	assert.Equal(t, "1.0", pkg.Version)
}

func TestAbortOnlyAllowedWhilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.engine.Abort()
	assert.Error(t, err)

	require.NoError(t, env.engine.Begin(ctx))
	require.NoError(t, env.engine.Abort())

	status, _ := env.engine.Status()
	assert.Equal(t, model.StatusAborted, status)
}

func TestInstallRejectsUnknownPackage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	err := env.engine.Install("nonexistent", "", true)
	assert.ErrorIs(t, err, errUnknownPackage)
}

func TestUninstallRejectsPackageNotInstalled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Begin(ctx))
	err := env.engine.Uninstall("app")
	assert.ErrorIs(t, err, errNotInstalled)
}

func TestStageOperationsRequirePendingTransaction(t *testing.T) {
	env := newTestEnv(t)

	assert.Error(t, env.engine.Install("app", "1.0", true))
	assert.Error(t, env.engine.Uninstall("app"))
	assert.Error(t, env.engine.ResolveDependencies())
	assert.Error(t, env.engine.ResolveRequiredBy())
	assert.Error(t, env.engine.AutoRemove())
}
