package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deleranax/ccpm/pkg/model"
)

func sampleIndex() model.PackagesIndex {
	return model.PackagesIndex{
		"app": {
			LatestVersion: "1.0",
			Versions: map[string]model.VersionEntry{
				"1.0": {Dependencies: []string{"libfoo"}},
			},
		},
		"libfoo": {
			LatestVersion: "2.0",
			Versions: map[string]model.VersionEntry{
				"2.0": {Dependencies: nil},
			},
		},
	}
}

func TestResolveDependenciesStagesTransitiveDeps(t *testing.T) {
	r := New()
	idx := sampleIndex()
	install := []model.InstallEntry{{Name: "app", Version: "1.0", Wanted: true}}

	out, err := r.ResolveDependencies(idx, model.PackagesDatabase{}, install)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "app", out[0].Name)
	assert.Equal(t, "libfoo", out[1].Name)
	assert.False(t, out[1].Wanted)
}

func TestResolveDependenciesSkipsAlreadyInstalled(t *testing.T) {
	r := New()
	idx := sampleIndex()
	installed := model.PackagesDatabase{"libfoo": {Version: "2.0"}}
	install := []model.InstallEntry{{Name: "app", Version: "1.0"}}

	out, err := r.ResolveDependencies(idx, installed, install)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestResolveRequiredByStagesDependents(t *testing.T) {
	r := New()
	installed := model.PackagesDatabase{
		"app":    {Dependencies: []string{"libfoo"}},
		"libfoo": {},
	}
	uninstall := []model.UninstallEntry{{Name: "libfoo"}}

	out := r.ResolveRequiredBy(installed, nil, uninstall)
	names := map[string]bool{}
	for _, e := range out {
		names[e.Name] = true
	}
	assert.True(t, names["app"])
	assert.True(t, names["libfoo"])
}

func TestResolveRequiredBySkipsDependentsOfAnUpgradingSeed(t *testing.T) {
	r := New()
	installed := model.PackagesDatabase{
		"app":    {Dependencies: []string{"libfoo"}},
		"libfoo": {},
	}
	// libfoo is staged for both uninstall and install in the same
	// transaction (an upgrade): it stays installed throughout, so app
	// must not be swept as a dependent of a package that is "going away".
	install := []model.InstallEntry{{Name: "libfoo", Version: "2.0"}}
	uninstall := []model.UninstallEntry{{Name: "libfoo"}}

	out := r.ResolveRequiredBy(installed, install, uninstall)
	names := map[string]bool{}
	for _, e := range out {
		names[e.Name] = true
	}
	assert.False(t, names["app"])
	assert.True(t, names["libfoo"])
}

func TestPrecommitCheckRejectsMissingDependency(t *testing.T) {
	r := New()
	idx := sampleIndex()
	install := []model.InstallEntry{{Name: "app", Version: "1.0"}}

	err := r.PrecommitCheck(idx, model.PackagesDatabase{}, install, nil)
	assert.Error(t, err)
}

func TestPrecommitCheckAllowsReinstallCarveOut(t *testing.T) {
	r := New()
	idx := sampleIndex()
	installed := model.PackagesDatabase{"app": {Version: "0.9"}, "libfoo": {Version: "2.0"}}
	install := []model.InstallEntry{{Name: "app", Version: "1.0"}}
	uninstall := []model.UninstallEntry{{Name: "app"}}

	err := r.PrecommitCheck(idx, installed, install, uninstall)
	assert.NoError(t, err)
}

func TestAutoRemoveSweepsOrphans(t *testing.T) {
	r := New()
	idx := sampleIndex()
	installed := model.PackagesDatabase{
		"app":    {Dependencies: []string{"libfoo"}, Wanted: true},
		"libfoo": {Wanted: false},
	}
	uninstall := []model.UninstallEntry{{Name: "app"}}

	out := r.AutoRemove(idx, installed, nil, uninstall)
	names := map[string]bool{}
	for _, e := range out {
		names[e.Name] = true
	}
	assert.True(t, names["libfoo"])
}
