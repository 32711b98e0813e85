package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrarium-dev/terrarium/internal/platform"
)

func featureWithTargets(t *testing.T, defaultTarget Target, selected map[platform.Platform]Target) *Feature {
	t.Helper()
	feature := NewFeature(DefaultName())
	feature.Targets = NewTargets(defaultTarget)
	for p, target := range selected {
		feature.Targets.AddTarget(TargetSelector{Platform: p}, target)
	}
	return feature
}

func TestFeatureDependenciesSingleLayerIsBorrowed(t *testing.T) {
	runDeps := DependencyMap{"python": {Version: "3.11"}}
	feature := featureWithTargets(t, Target{
		Dependencies: map[SpecType]DependencyMap{SpecTypeRun: runDeps},
	}, nil)

	got := feature.Dependencies(specType(SpecTypeRun), platformPtr(platform.Linux64))
	require.NotNil(t, got)
	assert.True(t, sameMap(runDeps, got), "a single contributing layer should be returned by reference")
}

func TestFeatureDependenciesMostSpecificWins(t *testing.T) {
	feature := featureWithTargets(t, Target{
		Dependencies: map[SpecType]DependencyMap{
			SpecTypeRun: {"foo": {Version: "1.0"}, "shared": {Version: "1"}},
		},
	}, map[platform.Platform]Target{
		platform.Linux64: {
			Dependencies: map[SpecType]DependencyMap{
				SpecTypeRun: {"foo": {Version: "2.0"}},
			},
		},
	})

	t.Run("selected platform overrides the default layer", func(t *testing.T) {
		got := feature.Dependencies(specType(SpecTypeRun), platformPtr(platform.Linux64))
		require.Len(t, got, 2)
		assert.Equal(t, "2.0", got["foo"].Version)
		assert.Equal(t, "1", got["shared"].Version)
	})

	t.Run("other platforms see only the default layer", func(t *testing.T) {
		got := feature.Dependencies(specType(SpecTypeRun), platformPtr(platform.Win64))
		require.Len(t, got, 2)
		assert.Equal(t, "1.0", got["foo"].Version)
	})

	t.Run("merged result does not alias any layer", func(t *testing.T) {
		got := feature.Dependencies(specType(SpecTypeRun), platformPtr(platform.Linux64))
		defaultDeps := feature.Targets.Default().Dependencies[SpecTypeRun]
		assert.False(t, sameMap(defaultDeps, got))

		// Mutating the merged map must not leak into the layers.
		got["injected"] = Spec{Version: "9"}
		assert.NotContains(t, defaultDeps, PackageName("injected"))
	})
}

func TestFeatureDependenciesDeclaredEmptyMap(t *testing.T) {
	// An explicitly declared empty table is a real layer: the result is the
	// empty map itself, not nil.
	hostDeps := DependencyMap{}
	feature := featureWithTargets(t, Target{
		Dependencies: map[SpecType]DependencyMap{SpecTypeHost: hostDeps},
	}, nil)

	got := feature.Dependencies(specType(SpecTypeHost), platformPtr(platform.Linux64))
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.True(t, sameMap(hostDeps, got))
}

func TestFeatureDependenciesUndeclaredKindIsNil(t *testing.T) {
	feature := featureWithTargets(t, Target{
		Dependencies: map[SpecType]DependencyMap{SpecTypeRun: {"foo": {Version: "1"}}},
	}, nil)

	assert.Nil(t, feature.Dependencies(specType(SpecTypeBuild), platformPtr(platform.Linux64)))
}

func TestFeaturePyPiDependencies(t *testing.T) {
	defaultDeps := PyPiDependencyMap{"requests": {Version: ">=2"}, "rich": {Version: "*"}}
	feature := featureWithTargets(t, Target{
		PyPiDependencies: defaultDeps,
	}, map[platform.Platform]Target{
		platform.OsxArm64: {
			PyPiDependencies: PyPiDependencyMap{"requests": {Version: "==2.31"}},
		},
	})

	t.Run("single layer is borrowed", func(t *testing.T) {
		got := feature.PyPiDependencies(platformPtr(platform.Linux64))
		assert.True(t, sameMap(defaultDeps, got))
	})

	t.Run("specific layer wins", func(t *testing.T) {
		got := feature.PyPiDependencies(platformPtr(platform.OsxArm64))
		require.Len(t, got, 2)
		assert.Equal(t, "==2.31", got["requests"].Version)
		assert.Equal(t, "*", got["rich"].Version)
	})
}

func TestFeatureActivationScriptsFirstMatchOnly(t *testing.T) {
	feature := featureWithTargets(t, Target{
		Activation: &Activation{Scripts: []string{"setup.sh"}},
	}, map[platform.Platform]Target{
		platform.Win64: {
			Activation: &Activation{Scripts: []string{"setup.bat", "extra.bat"}},
		},
	})

	// Scripts are never merged across layers; the most specific declaration
	// replaces everything below it.
	assert.Equal(t, []string{"setup.bat", "extra.bat"}, feature.ActivationScripts(platformPtr(platform.Win64)))
	assert.Equal(t, []string{"setup.sh"}, feature.ActivationScripts(platformPtr(platform.Linux64)))
}

func TestFeatureActivationScriptsAbsent(t *testing.T) {
	t.Run("no layer declares scripts", func(t *testing.T) {
		feature := featureWithTargets(t, Target{}, nil)
		assert.Nil(t, feature.ActivationScripts(platformPtr(platform.Linux64)))
	})

	t.Run("explicit empty list shadows the default layer", func(t *testing.T) {
		feature := featureWithTargets(t, Target{
			Activation: &Activation{Scripts: []string{"setup.sh"}},
		}, map[platform.Platform]Target{
			platform.Linux64: {
				Activation: &Activation{Scripts: []string{}},
			},
		})

		got := feature.ActivationScripts(platformPtr(platform.Linux64))
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestFeatureActivationEnvFirstKeyWins(t *testing.T) {
	feature := featureWithTargets(t, Target{
		Activation: &Activation{Env: map[string]string{
			"SHARED":       "default",
			"ONLY_DEFAULT": "yes",
		}},
	}, map[platform.Platform]Target{
		platform.Linux64: {
			Activation: &Activation{Env: map[string]string{
				"SHARED":     "linux",
				"ONLY_LINUX": "yes",
			}},
		},
	})

	got := feature.ActivationEnv(platformPtr(platform.Linux64))
	assert.Equal(t, map[string]string{
		"SHARED":       "linux",
		"ONLY_DEFAULT": "yes",
		"ONLY_LINUX":   "yes",
	}, got)

	got = feature.ActivationEnv(platformPtr(platform.Win64))
	assert.Equal(t, map[string]string{
		"SHARED":       "default",
		"ONLY_DEFAULT": "yes",
	}, got)
}

func TestFeatureHasPyPiDependencies(t *testing.T) {
	t.Run("empty feature", func(t *testing.T) {
		assert.False(t, NewFeature(DefaultName()).HasPyPiDependencies())
	})

	t.Run("declared only on a platform target", func(t *testing.T) {
		feature := featureWithTargets(t, Target{}, map[platform.Platform]Target{
			platform.Win64: {
				PyPiDependencies: PyPiDependencyMap{"pywin32": {Version: "*"}},
			},
		})
		assert.True(t, feature.HasPyPiDependencies())
	})
}

func TestFeatureTasks(t *testing.T) {
	feature := featureWithTargets(t, Target{
		Tasks: map[TaskName]Task{
			"build": {Cmd: "make all"},
			"test":  {Cmd: "make test"},
		},
	}, map[platform.Platform]Target{
		platform.Win64: {
			Tasks: map[TaskName]Task{"build": {Cmd: "msbuild"}},
		},
	})

	got := feature.Tasks(platformPtr(platform.Win64))
	require.Len(t, got, 2)
	assert.Equal(t, "msbuild", got["build"].Cmd)
	assert.Equal(t, "make test", got["test"].Cmd)
}
